package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acederberg/captura-platform/internal/adapters/builder"
	"github.com/acederberg/captura-platform/internal/adapters/docker"
	"github.com/acederberg/captura-platform/internal/config"
	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/logger"
)

func newPlatform(t *testing.T, cfg *config.Config) *Platform {
	t.Helper()
	p, err := New(cfg, logger.Discard())
	require.NoError(t, err)
	return p
}

func TestPlatform_Backend(t *testing.T) {
	p := newPlatform(t, &config.Config{Builder: config.Builder{Engine: config.EngineSDK}})
	backend, err := p.Backend()
	require.NoError(t, err)
	assert.IsType(t, &docker.Adapter{}, backend)

	p = newPlatform(t, &config.Config{Builder: config.Builder{Engine: config.EngineDocker, Binary: "sh"}})
	backend, err = p.Backend()
	require.NoError(t, err)
	assert.IsType(t, &builder.Adapter{}, backend)

	p = newPlatform(t, &config.Config{Builder: config.Builder{Engine: "kaniko"}})
	_, err = p.Backend()
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestPlatform_MissingValues(t *testing.T) {
	p := newPlatform(t, &config.Config{})

	_, err := p.Registry()
	assert.ErrorIs(t, err, config.ErrMissingKey)

	_, err = p.Reconciler()
	assert.ErrorIs(t, err, config.ErrMissingKey)

	_, err = p.Domain("")
	assert.ErrorIs(t, err, config.ErrMissingKey)

	d, err := p.Domain("acederberg.io")
	require.NoError(t, err)
	assert.Equal(t, "acederberg.io", d)
}

func TestPlatform_Configured(t *testing.T) {
	p := newPlatform(t, &config.Config{
		Domain: "acederberg.io",
		Registry: config.Registry{
			Host:     "registry.acederberg.io",
			Username: "captura",
			Password: "hunter2",
		},
		Porkbun: config.Porkbun{APIKey: "pk1", SecretKey: "sk1", APIURL: config.DefaultPorkbunURL},
	})

	_, err := p.Registry()
	require.NoError(t, err)
	_, err = p.Reconciler()
	require.NoError(t, err)

	d, err := p.Domain("")
	require.NoError(t, err)
	assert.Equal(t, "acederberg.io", d)
	assert.Equal(t, domain.RegistryAddress{Host: "registry.acederberg.io"}, p.RegistryAddress())
}
