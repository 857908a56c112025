// Package platform constructs the services and adapters from a Config. It is
// shared by the pipelines CLI and the API server.
package platform

import (
	"fmt"

	"github.com/acederberg/captura-platform/internal/adapters/builder"
	"github.com/acederberg/captura-platform/internal/adapters/descriptor"
	"github.com/acederberg/captura-platform/internal/adapters/docker"
	"github.com/acederberg/captura-platform/internal/adapters/gitrepo"
	"github.com/acederberg/captura-platform/internal/adapters/porkbun"
	"github.com/acederberg/captura-platform/internal/adapters/registry"
	"github.com/acederberg/captura-platform/internal/config"
	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/core/ports"
	"github.com/acederberg/captura-platform/internal/core/services"
	"github.com/acederberg/captura-platform/internal/logger"
)

// Platform builds components on demand so that a command only needs the
// configuration of the components it uses.
type Platform struct {
	Config   *config.Config
	Provider *config.Provider
	Log      *logger.Logger
}

func New(cfg *config.Config, log *logger.Logger) (*Platform, error) {
	provider, err := config.NewProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &Platform{Config: cfg, Provider: provider, Log: log}, nil
}

// RegistryAddress is the default registry of resolved BuildSpecs.
func (p *Platform) RegistryAddress() domain.RegistryAddress {
	return domain.RegistryAddress{
		Host:      p.Config.Registry.Host,
		Namespace: p.Config.Registry.Namespace,
	}
}

func (p *Platform) Resolver() *services.Resolver {
	return services.NewResolver(descriptor.NewSource(), p.RegistryAddress(), p.Config.CloneRoot)
}

// Backend is the build backend selected by `builder.engine`.
func (p *Platform) Backend() (ports.BuildBackend, error) {
	switch engine := p.Config.Builder.Engine; engine {
	case config.EngineSDK:
		return docker.NewAdapter()
	case config.EngineDocker, config.EnginePodman:
		binary := p.Config.Builder.Binary
		if binary == "" {
			binary = string(engine)
		}
		return builder.NewBuilderAdapter(binary, p.Log.Writer())
	default:
		return nil, fmt.Errorf("%w: unknown engine `%s`", domain.ErrInvalidArgument, engine)
	}
}

func (p *Platform) ImageBuilder() (*services.ImageBuilder, error) {
	backend, err := p.Backend()
	if err != nil {
		return nil, err
	}

	opts := []services.ImageBuilderOption{
		services.WithLogger(p.Log),
		services.WithLabelDomain(p.Config.Domain),
		services.WithPull(p.Config.Builder.Pull),
	}
	if reg := p.Config.Registry; reg.HasCredentials() {
		opts = append(opts, services.WithCredentials(services.Credentials{
			Username: reg.Username,
			Password: reg.Password.Reveal(),
			Registry: reg.Host,
		}))
	}

	revisions := services.NewRevisionResolver(gitrepo.NewCheckout(p.Log.Writer()))
	return services.NewImageBuilder(backend, revisions, opts...), nil
}

// Registry inspects `registry.host`.
func (p *Platform) Registry() (*registry.Client, error) {
	host, err := p.Provider.Require("registry.host")
	if err != nil {
		return nil, err
	}

	opts := []registry.Option{}
	if reg := p.Config.Registry; reg.HasCredentials() {
		opts = append(opts, registry.WithBasicAuth(reg.Username, reg.Password.Reveal()))
	}
	if p.Config.Registry.Insecure {
		opts = append(opts, registry.WithInsecure())
	}
	return registry.NewClient(host, opts...), nil
}

// DNS is the Porkbun client. Both API keys are required.
func (p *Platform) DNS() (*porkbun.Client, error) {
	apiKey, err := p.Provider.RequireSecret("porkbun.api_key")
	if err != nil {
		return nil, err
	}
	secretKey, err := p.Provider.RequireSecret("porkbun.secret_key")
	if err != nil {
		return nil, err
	}
	return porkbun.NewClient(apiKey.Reveal(), secretKey.Reveal(),
		porkbun.WithAPIURL(p.Config.Porkbun.APIURL),
		porkbun.WithTimeout(p.Config.Porkbun.Timeout),
	), nil
}

func (p *Platform) Reconciler() (*services.Reconciler, error) {
	client, err := p.DNS()
	if err != nil {
		return nil, err
	}
	return services.NewReconciler(client), nil
}

// Domain returns override when set and `domain` otherwise.
func (p *Platform) Domain(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return p.Provider.Require("domain")
}
