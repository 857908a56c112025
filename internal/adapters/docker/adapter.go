package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/archive"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/core/ports"
)

// engineAPI is the subset of the Docker Engine client used for builds.
type engineAPI interface {
	ImageBuild(ctx context.Context, buildContext io.Reader, options types.ImageBuildOptions) (types.ImageBuildResponse, error)
	ImageTag(ctx context.Context, source, target string) error
	ImagePush(ctx context.Context, ref string, options types.ImagePushOptions) (io.ReadCloser, error)
	RegistryLogin(ctx context.Context, auth registry.AuthConfig) (registry.AuthenticateOKBody, error)
}

// Adapter implements ports.BuildBackend using the Docker SDK
type Adapter struct {
	cli  engineAPI
	auth string
}

var _ ports.BuildBackend = (*Adapter)(nil)

// NewAdapter creates a new Docker adapter instance
func NewAdapter() (*Adapter, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return newAdapter(cli), nil
}

func newAdapter(cli engineAPI) *Adapter {
	// The daemon expects an X-Registry-Auth header even for anonymous pushes.
	auth, _ := registry.EncodeAuthConfig(registry.AuthConfig{})
	return &Adapter{cli: cli, auth: auth}
}

// Build sends the context directory to the daemon and relays the build
// output line by line. An error reported in the stream becomes the exit code.
func (a *Adapter) Build(ctx context.Context, req ports.BuildRequest, lines chan<- string) (int, error) {
	tar, err := archive.TarWithOptions(req.ContextDir, &archive.TarOptions{})
	if err != nil {
		return -1, fmt.Errorf("failed to create build context: %w", err)
	}
	defer tar.Close()

	resp, err := a.cli.ImageBuild(ctx, tar, types.ImageBuildOptions{
		Tags:        []string{req.Tag},
		Dockerfile:  req.Dockerfile,
		Target:      req.Target,
		Labels:      req.Labels,
		PullParent:  req.Pull,
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return -1, fmt.Errorf("failed to build image: %w", err)
	}
	defer resp.Body.Close()

	return relay(ctx, resp.Body, lines)
}

// relay decodes a JSON message stream and forwards its text. It returns the
// exit code carried by the first error message, or 0.
func relay(ctx context.Context, r io.Reader, lines chan<- string) (int, error) {
	exitCode := 0
	dec := json.NewDecoder(r)
	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return exitCode, nil
			}
			return -1, fmt.Errorf("failed to read build output: %w", err)
		}

		var text string
		switch {
		case msg.Error != nil:
			if exitCode == 0 {
				exitCode = msg.Error.Code
				if exitCode == 0 {
					exitCode = 1
				}
			}
			text = msg.Error.Message
		case msg.ErrorMessage != "":
			if exitCode == 0 {
				exitCode = 1
			}
			text = msg.ErrorMessage
		case msg.Stream != "":
			text = msg.Stream
		case msg.Status != "":
			text = msg.Status
			if msg.ID != "" {
				text = msg.ID + ": " + text
			}
		default:
			continue
		}

		for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
			select {
			case lines <- strings.TrimRight(line, "\r"):
			case <-ctx.Done():
				return -1, ctx.Err()
			}
		}
	}
}

// Tag adds target as a reference of source.
func (a *Adapter) Tag(ctx context.Context, source, target string) error {
	if err := a.cli.ImageTag(ctx, source, target); err != nil {
		return fmt.Errorf("failed to tag `%s` as `%s`: %w", source, target, err)
	}
	return nil
}

// Push pushes repository:tag with the credentials of the last Login.
func (a *Adapter) Push(ctx context.Context, repository, tag string) error {
	ref := repository + ":" + tag
	body, err := a.cli.ImagePush(ctx, ref, types.ImagePushOptions{RegistryAuth: a.auth})
	if err != nil {
		return fmt.Errorf("%w: `%s`: %v", domain.ErrPushFailed, ref, err)
	}
	defer body.Close()

	dec := json.NewDecoder(body)
	for {
		var msg jsonmessage.JSONMessage
		if err := dec.Decode(&msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("%w: `%s`: %v", domain.ErrPushFailed, ref, err)
		}
		if msg.Error != nil {
			return fmt.Errorf("%w: `%s`: %s", domain.ErrPushFailed, ref, msg.Error.Message)
		}
	}
}

// Login verifies the credentials and keeps them for subsequent pushes.
func (a *Adapter) Login(ctx context.Context, username, password, serverAddress string) error {
	cfg := registry.AuthConfig{
		Username:      username,
		Password:      password,
		ServerAddress: serverAddress,
	}
	if _, err := a.cli.RegistryLogin(ctx, cfg); err != nil {
		return fmt.Errorf("failed to login to `%s`: %w", serverAddress, err)
	}
	auth, err := registry.EncodeAuthConfig(cfg)
	if err != nil {
		return err
	}
	a.auth = auth
	return nil
}
