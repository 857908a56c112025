package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acederberg/captura-platform/internal/config"
	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/logger"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := &app{log: logger.NewWithWriters(&out, &out)}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 3, exitCode(&domain.BuildFailedError{ExitCode: 3}))
	assert.Equal(t, 3, exitCode(fmt.Errorf("wrapped: %w", &domain.BuildFailedError{ExitCode: 3})))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
	assert.Equal(t, 1, exitCode(&domain.BuildFailedError{ExitCode: -1}))
}

func TestHydrate(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "pipelines.yaml", "domain: acederberg.io\nregistry:\n  host: registry.acederberg.io\n")
	descriptor := writeFile(t, dir, "build.yaml", fmt.Sprintf(
		"git:\n  path: %s\n  branch: master\nimage:\n  repository: captura\n  tags: [latest]\n", dir))

	out, err := run(t, "--config", cfg, "builder", "hydrate", "-f", descriptor, "--tag", "v1.2.0", "--push")
	require.NoError(t, err)

	var spec domain.BuildSpec
	require.NoError(t, yaml.Unmarshal([]byte(out), &spec))
	assert.Equal(t, "v1.2.0", spec.Git.Tag)
	assert.Equal(t, "registry.acederberg.io", spec.Registry.Host)
	assert.Equal(t, domain.DefaultDockerfile, spec.Git.Dockerfile)
	assert.True(t, spec.PushEnabled())
}

func TestHydrate_MissingDescriptor(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "absent.yaml"), "builder", "hydrate")
	assert.Error(t, err)

	cfg := writeFile(t, t.TempDir(), "pipelines.yaml", "domain: acederberg.io\n")
	_, err = run(t, "--config", cfg, "builder", "hydrate", "-f", filepath.Join(t.TempDir(), "build.yaml"))
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}

func TestDNSReconcile(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if strings.HasPrefix(r.URL.Path, "/dns/retrieveByNameType/") {
			json.NewEncoder(w).Encode(map[string]interface{}{"status": "SUCCESS", "records": []interface{}{}})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "SUCCESS"})
	}))
	defer server.Close()

	dir := t.TempDir()
	logs := filepath.Join(dir, "logs")
	cfg := writeFile(t, dir, "pipelines.yaml", fmt.Sprintf(`domain: acederberg.io
logs_dir: %s
porkbun:
  api_url: %s
  api_key: pk1
  secret_key: sk1
`, logs, server.URL))

	out, err := run(t, "--config", cfg, "dns", "reconcile", "203.0.113.5")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "Record created!"))
	assert.Equal(t, []string{
		"/ping",
		"/dns/retrieveByNameType/acederberg.io/A/*",
		"/dns/create/acederberg.io",
		"/dns/retrieveByNameType/acederberg.io/A",
		"/dns/create/acederberg.io",
		"/dns/retrieveByNameType/acederberg.io/A/www",
		"/dns/create/acederberg.io",
	}, paths)

	entries, err := os.ReadDir(logs)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	trace, err := os.ReadFile(filepath.Join(logs, entries[0].Name()))
	require.NoError(t, err)
	assert.Contains(t, string(trace), "Logs for `dns reconcile`")
	assert.Contains(t, string(trace), "Creating records for acederberg.io -> www -> 203.0.113.5")
}

func TestDNSPing_MissingKeys(t *testing.T) {
	cfg := writeFile(t, t.TempDir(), "pipelines.yaml", "domain: acederberg.io\n")
	t.Setenv("CAPTURA_PORKBUN_API_KEY", "")

	_, err := run(t, "--config", cfg, "dns", "ping")
	assert.ErrorIs(t, err, config.ErrMissingKey)
}
