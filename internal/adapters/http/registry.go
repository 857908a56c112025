package http

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/core/ports"
)

type RegistryHandler struct {
	registry ports.Registry
}

func NewRegistryHandler(registry ports.Registry) *RegistryHandler {
	return &RegistryHandler{registry: registry}
}

func (h *RegistryHandler) Catalog(c *fiber.Ctx) error {
	repos, err := h.registry.Catalog(c.UserContext())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"repositories": repos,
	})
}

// Tags lists the tags of the repository named by the rest of the path, which
// may contain slashes.
func (h *RegistryHandler) Tags(c *fiber.Ctx) error {
	repository, err := url.PathUnescape(c.Params("*"))
	if err != nil || repository == "" {
		return errorResponse(c, fmt.Errorf("%w: repository is required", domain.ErrInvalidArgument))
	}

	tags, err := h.registry.Tags(c.UserContext(), repository)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(fiber.Map{
		"repository": repository,
		"tags":       tags,
	})
}
