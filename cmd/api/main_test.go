package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acederberg/captura-platform/internal/config"
	"github.com/acederberg/captura-platform/internal/logger"
	"github.com/acederberg/captura-platform/internal/platform"
)

func newTestPlatform(t *testing.T, cfg *config.Config) *platform.Platform {
	t.Helper()
	cfg.Builder = config.Builder{Engine: config.EngineDocker, Binary: "sh"}
	p, err := platform.New(cfg, logger.Discard())
	require.NoError(t, err)
	return p
}

func status(t *testing.T, p *platform.Platform, method, target, body string) int {
	t.Helper()
	app, err := newApp(p)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	return resp.StatusCode
}

func TestNewApp_BuildsOnly(t *testing.T) {
	p := newTestPlatform(t, &config.Config{CloneRoot: t.TempDir()})

	assert.Equal(t, http.StatusBadRequest, status(t, p, http.MethodPost, "/api/v1/builds/hydrate", `{}`))
	assert.Equal(t, http.StatusNotFound, status(t, p, http.MethodGet, "/api/v1/registry/catalog", ""))
	assert.Equal(t, http.StatusNotFound, status(t, p, http.MethodPost, "/api/v1/dns/reconcile", `{"ip":"203.0.113.5"}`))
}

func TestNewApp_DNSConfigured(t *testing.T) {
	p := newTestPlatform(t, &config.Config{
		CloneRoot: t.TempDir(),
		Porkbun: config.Porkbun{
			APIURL:    "http://127.0.0.1:1",
			APIKey:    "pk1",
			SecretKey: "sk1",
		},
	})

	// No domain is configured nor given, so the request is rejected before
	// the API is called.
	assert.Equal(t, http.StatusBadRequest, status(t, p, http.MethodPost, "/api/v1/dns/reconcile", `{"ip":"203.0.113.5"}`))
	assert.Equal(t, http.StatusNotFound, status(t, p, http.MethodGet, "/api/v1/registry/catalog", ""))
}
