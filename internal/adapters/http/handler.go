package http

import (
	"bufio"
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/core/services"
	"github.com/acederberg/captura-platform/internal/logger"
)

// BuildHeader carries the id of a build started through the API.
const BuildHeader = "X-Build-Id"

type BuildHandler struct {
	resolver *services.Resolver
	builder  *services.ImageBuilder
	log      *logger.Logger
}

func NewBuildHandler(resolver *services.Resolver, builder *services.ImageBuilder, log *logger.Logger) *BuildHandler {
	return &BuildHandler{resolver: resolver, builder: builder, log: log}
}

// BuildRequest selects a descriptor either by source or by repository, the
// latter reading `build.yaml` from the repository's branch.
type BuildRequest struct {
	Source     services.Source  `json:"source"`
	Repository string           `json:"repository"`
	Branch     string           `json:"branch"`
	Overrides  domain.BuildSpec `json:"overrides"`
}

func (h *BuildHandler) resolve(c *fiber.Ctx) (*domain.BuildSpec, error) {
	var req BuildRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidArgument, err)
	}
	if req.Repository != "" {
		return h.resolver.ResolveRepository(c.UserContext(), req.Repository, req.Branch, req.Overrides)
	}
	return h.resolver.Resolve(c.UserContext(), req.Source, req.Overrides)
}

// Hydrate renders the resolved BuildSpec without building it.
func (h *BuildHandler) Hydrate(c *fiber.Ctx) error {
	spec, err := h.resolve(c)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(spec)
}

// Build resolves the descriptor, then streams the build output as plain text.
// The last line reports the outcome since the status is sent before the
// build starts.
func (h *BuildHandler) Build(c *fiber.Ctx) error {
	spec, err := h.resolve(c)
	if err != nil {
		return errorResponse(c, err)
	}

	id := uuid.NewString()
	h.log.Info("Build `%s` of `%s` started.", id, spec.Image.Repository)

	c.Set(BuildHeader, id)
	c.Set("Content-Type", "text/plain; charset=utf-8")
	c.Status(fiber.StatusAccepted)
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		stream := h.builder.Build(ctx, spec)
		for line := range stream.Lines() {
			w.WriteString(line + "\n")
			if err := w.Flush(); err != nil {
				// Client went away, stop the build.
				cancel()
			}
		}

		err := stream.Err()
		if err == nil {
			err = h.builder.Push(ctx, spec)
		}

		var failed *domain.BuildFailedError
		switch {
		case errors.As(err, &failed):
			fmt.Fprintf(w, "build %s failed with exit code %d\n", id, failed.ExitCode)
		case err != nil:
			fmt.Fprintf(w, "build %s failed: %v\n", id, err)
		default:
			fmt.Fprintf(w, "build %s succeeded at commit %s\n", id, spec.Git.Commit)
		}
		w.Flush()

		if err != nil {
			h.log.Error("Build `%s` failed: %v", id, err)
			return
		}
		h.log.Success("Build `%s` succeeded.", id)
	})
	return nil
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrSourceNotFound), errors.Is(err, domain.ErrBranchNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrAmbiguousState), errors.Is(err, domain.ErrDeleteNotConfirmed):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrMalformedDescriptor), errors.Is(err, domain.ErrBuildFailed):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAuthFailed), errors.Is(err, domain.ErrPushFailed):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func errorResponse(c *fiber.Ctx, err error) error {
	return c.Status(statusFor(err)).JSON(fiber.Map{
		"error": err.Error(),
	})
}
