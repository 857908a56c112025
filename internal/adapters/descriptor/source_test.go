package descriptor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acederberg/captura-platform/internal/core/domain"
)

func TestSource_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/acederberg/captura/master/build.yaml" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("git:\n  branch: master\n"))
	}))
	defer server.Close()

	s := NewSource(WithHTTPClient(server.Client()))

	b, err := s.Fetch(context.Background(), server.URL+"/acederberg/captura/master/build.yaml")
	require.NoError(t, err)
	assert.Equal(t, "git:\n  branch: master\n", string(b))

	_, err = s.Fetch(context.Background(), server.URL+"/missing")
	require.ErrorIs(t, err, domain.ErrSourceNotFound)
	assert.Contains(t, err.Error(), server.URL+"/missing")
}

func TestSource_Read(t *testing.T) {
	path := filepath.Join(t.TempDir(), "build.yaml")
	require.NoError(t, os.WriteFile(path, []byte("image:\n  repository: captura\n"), 0o644))

	s := NewSource()
	b, err := s.Read(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "captura")

	_, err = s.Read(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, domain.ErrSourceNotFound)
}
