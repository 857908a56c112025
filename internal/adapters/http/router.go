package http

import (
	"github.com/gofiber/fiber/v2"
)

// SetupRoutes mounts every handler below /api/v1. The registry and DNS routes
// are left out when their handler is nil.
func SetupRoutes(app *fiber.App, builds *BuildHandler, registry *RegistryHandler, dns *DNSHandler) {
	api := app.Group("/api")
	v1 := api.Group("/v1")

	b := v1.Group("/builds")
	b.Post("/", builds.Build)
	b.Post("/hydrate", builds.Hydrate)

	if registry != nil {
		r := v1.Group("/registry")
		r.Get("/catalog", registry.Catalog)
		r.Get("/tags/*", registry.Tags)
	}

	if dns != nil {
		d := v1.Group("/dns")
		d.Post("/reconcile", dns.Reconcile)
	}
}
