package main

import (
	"errors"
	"flag"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/acederberg/captura-platform/internal/adapters/http"
	"github.com/acederberg/captura-platform/internal/config"
	"github.com/acederberg/captura-platform/internal/logger"
	"github.com/acederberg/captura-platform/internal/platform"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the configuration file")
	addr := flag.String("addr", ":3000", "address to listen on")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath, true)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	out := logger.New()
	p, err := platform.New(cfg, out)
	if err != nil {
		log.Fatalf("Failed to initialize platform: %v", err)
	}

	app, err := newApp(p)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	log.Printf("Server starting on %s", *addr)
	if err := app.Listen(*addr); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}

// newApp wires the handlers. Builds are always served; the registry and DNS
// routes are only mounted when their configuration is present.
func newApp(p *platform.Platform) (*fiber.App, error) {
	builder, err := p.ImageBuilder()
	if err != nil {
		return nil, err
	}
	buildHandler := http.NewBuildHandler(p.Resolver(), builder, p.Log)

	var registryHandler *http.RegistryHandler
	switch registry, err := p.Registry(); {
	case errors.Is(err, config.ErrMissingKey):
		p.Log.Warn("Registry routes disabled: %v", err)
	case err != nil:
		return nil, err
	default:
		registryHandler = http.NewRegistryHandler(registry)
	}

	var dnsHandler *http.DNSHandler
	switch reconciler, err := p.Reconciler(); {
	case errors.Is(err, config.ErrMissingKey):
		p.Log.Warn("DNS routes disabled: %v", err)
	case err != nil:
		return nil, err
	default:
		dnsHandler = http.NewDNSHandler(reconciler, p.Config.Domain, p.Config.LogsDir, p.Log)
	}

	app := fiber.New()
	http.SetupRoutes(app, buildHandler, registryHandler, dnsHandler)
	return app, nil
}
