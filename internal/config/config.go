// Package config loads the configuration shared by the pipelines CLI and the API.
//
// Configuration is read from a YAML file and then overridden by CAPTURA_*
// environment variables. The resulting Config is constructed once in main and
// passed to the components that need it.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPath is the configuration file used when none is given.
	DefaultPath       = "configs/pipelines.yaml"
	DefaultPorkbunURL = "https://api.porkbun.com/api/json/v3"
)

var (
	errLoadingConfig = errors.New("loading configuration")
	errInvalidEngine = errors.New("invalid builder engine")
)

// Config holds every setting of the platform tooling.
type Config struct {
	// Domain is the root domain served by the platform.
	Domain string `yaml:"domain" env:"DOMAIN"`
	// CloneRoot is where repositories are checked out to.
	CloneRoot string `yaml:"clone_root" env:"CLONE_ROOT"`
	// LogsDir receives the DNS reconciliation traces.
	LogsDir string `yaml:"logs_dir" env:"LOGS_DIR"`

	Registry Registry `yaml:"registry" envPrefix:"REGISTRY_"`
	Porkbun  Porkbun  `yaml:"porkbun" envPrefix:"PORKBUN_"`
	Builder  Builder  `yaml:"builder" envPrefix:"BUILDER_"`
}

// Registry is where images are pushed.
type Registry struct {
	Host      string `yaml:"host" env:"HOST"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	Username  string `yaml:"username" env:"USERNAME"`
	Password  Secret `yaml:"password" env:"PASSWORD"`
	// Insecure talks plain http to the registry.
	Insecure bool `yaml:"insecure" env:"INSECURE"`
}

// HasCredentials reports whether a login should happen before pushing.
func (r Registry) HasCredentials() bool {
	return r.Username != "" && r.Password != ""
}

// Porkbun configures the DNS provider.
type Porkbun struct {
	APIURL    string        `yaml:"api_url" env:"API_URL"`
	APIKey    Secret        `yaml:"api_key" env:"API_KEY"`
	SecretKey Secret        `yaml:"secret_key" env:"SECRET_KEY"`
	Timeout   time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// Engine selects the build backend.
type Engine string

const (
	// EngineSDK talks to the Docker Engine API.
	EngineSDK    Engine = "sdk"
	EngineDocker Engine = "docker"
	EnginePodman Engine = "podman"
)

// Builder configures the build backend.
type Builder struct {
	Engine Engine `yaml:"engine" env:"ENGINE"`
	// Binary overrides the CLI executable for the docker and podman engines.
	Binary string `yaml:"binary" env:"BINARY"`
	// Pull always attempts to pull newer base images.
	Pull bool `yaml:"pull" env:"PULL"`
}

// Validate checks the values that have a fixed set of choices.
func (c *Config) Validate() error {
	switch c.Builder.Engine {
	case EngineSDK, EngineDocker, EnginePodman:
	default:
		return fmt.Errorf("%w: must be one of %v, got %q",
			errInvalidEngine, []Engine{EngineSDK, EngineDocker, EnginePodman}, c.Builder.Engine)
	}
	return nil
}

// Load reads the YAML file at path (a missing file is not an error when
// optional is true) and applies environment overrides.
func Load(path string, optional bool) (*Config, error) {
	cfg := &Config{}

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("%w: parsing `%s`: %w", errLoadingConfig, path, err)
		}
	case os.IsNotExist(err) && optional:
	default:
		return nil, fmt.Errorf("%w: %w", errLoadingConfig, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errLoadingConfig, err)
	}
	return cfg, nil
}

// applyEnv overrides cfg with the CAPTURA_* variables that are set.
func applyEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "CAPTURA_"}); err != nil {
		return fmt.Errorf("%w: %w", errLoadingConfig, err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.CloneRoot == "" {
		cfg.CloneRoot = ".builder"
	}
	if cfg.LogsDir == "" {
		cfg.LogsDir = "logs"
	}
	if cfg.Porkbun.APIURL == "" {
		cfg.Porkbun.APIURL = DefaultPorkbunURL
	}
	if cfg.Porkbun.Timeout == 0 {
		cfg.Porkbun.Timeout = 30 * time.Second
	}
	if cfg.Builder.Engine == "" {
		cfg.Builder.Engine = EngineSDK
	}
}
