package builder

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"

	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/core/ports"
)

// maxLineSize bounds a single line of build output.
const maxLineSize = 1 << 20

// Adapter implements ports.BuildBackend by running a container CLI such as
// docker or podman.
type Adapter struct {
	binary string
	out    io.Writer
}

var _ ports.BuildBackend = (*Adapter)(nil)

// NewBuilderAdapter creates an adapter running binary. Output of push and tag
// commands is copied to out when it is not nil.
func NewBuilderAdapter(binary string, out io.Writer) (*Adapter, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: container cli `%s`: %v", domain.ErrInvalidArgument, binary, err)
	}
	if out == nil {
		out = io.Discard
	}
	return &Adapter{binary: path, out: out}, nil
}

// BuildArgs are the arguments of the build command. The context is the
// working directory.
func BuildArgs(req ports.BuildRequest) []string {
	args := []string{"build", "--file", req.Dockerfile, "--tag", req.Tag}
	if req.Target != "" {
		args = append(args, "--target", req.Target)
	}
	if req.Pull {
		args = append(args, "--pull")
	}
	keys := make([]string, 0, len(req.Labels))
	for k := range req.Labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--label", k+"="+req.Labels[k])
	}
	return append(args, ".")
}

// Build runs the build command with stdout and stderr merged into lines.
func (a *Adapter) Build(ctx context.Context, req ports.BuildRequest, lines chan<- string) (int, error) {
	cmd := exec.CommandContext(ctx, a.binary, BuildArgs(req)...)
	cmd.Dir = req.ContextDir

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return -1, fmt.Errorf("failed to start build: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
			}
		}
		// Keep draining so the command never blocks on a full pipe.
		io.Copy(io.Discard, pr)
	}()

	err := cmd.Wait()
	pw.Close()
	<-done

	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, fmt.Errorf("build did not complete: %w", err)
	}
	return 0, nil
}

func (a *Adapter) run(ctx context.Context, stdin io.Reader, args ...string) error {
	var buf bytes.Buffer
	cmd := exec.CommandContext(ctx, a.binary, args...)
	cmd.Stdin = stdin
	cmd.Stdout = io.MultiWriter(&buf, a.out)
	cmd.Stderr = io.MultiWriter(&buf, a.out)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("`%s %s`: %w: %s", a.binary, args[0], err, strings.TrimSpace(buf.String()))
	}
	return nil
}

// Tag adds target as a reference of source.
func (a *Adapter) Tag(ctx context.Context, source, target string) error {
	return a.run(ctx, nil, "tag", source, target)
}

// Push pushes repository:tag.
func (a *Adapter) Push(ctx context.Context, repository, tag string) error {
	if err := a.run(ctx, nil, "push", repository+":"+tag); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPushFailed, err)
	}
	return nil
}

// Login logs in to registry, passing the password on stdin.
func (a *Adapter) Login(ctx context.Context, username, password, registry string) error {
	return a.run(ctx, strings.NewReader(password), "login", "--username", username, "--password-stdin", registry)
}
