package ports

import "context"

// BuildRequest is a single build invocation handed to a BuildBackend.
type BuildRequest struct {
	// ContextDir is the checked out source directory.
	ContextDir string
	// Dockerfile is relative to ContextDir.
	Dockerfile string
	Target     string
	// Tag is the one reference the image is built as.
	Tag    string
	Labels map[string]string
	// Pull always attempts to pull newer base images.
	Pull bool
}

// BuildBackend defines operations for building container images.
// This interface allows us to switch between the Docker Engine API and a
// container CLI (docker, podman) without changing the build orchestration.
type BuildBackend interface {
	// Build builds the image and sends every output line on lines while the
	// build runs. It returns the exit code of the build; err is reserved for
	// failures to run the build at all. Build must not close lines.
	Build(ctx context.Context, req BuildRequest, lines chan<- string) (exitCode int, err error)

	// Tag adds target as a reference of the already built source image.
	Tag(ctx context.Context, source, target string) error

	// Push pushes repository:tag to its registry.
	Push(ctx context.Context, repository, tag string) error

	// Login authenticates against registry for subsequent pushes.
	Login(ctx context.Context, username, password, registry string) error
}
