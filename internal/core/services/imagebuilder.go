package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/go-containerregistry/pkg/name"

	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/core/ports"
	"github.com/acederberg/captura-platform/internal/logger"
)

// Credentials are used to log in before pushing.
type Credentials struct {
	Username string
	Password string
	Registry string
}

// ImageBuilder checks out, builds, tags and pushes images.
type ImageBuilder struct {
	backend     ports.BuildBackend
	revisions   *RevisionResolver
	log         *logger.Logger
	domain      string
	pull        bool
	credentials *Credentials

	worktrees worktreeLocks
}

// worktreeLocks serializes work on a working copy. A build holds the lock of
// its path from checkout until its last tag is applied.
type worktreeLocks struct {
	mu    sync.Mutex
	paths map[string]chan struct{}
}

func (l *worktreeLocks) lock(ctx context.Context, path string) (func(), error) {
	path = filepath.Clean(path)

	l.mu.Lock()
	if l.paths == nil {
		l.paths = map[string]chan struct{}{}
	}
	ch, ok := l.paths[path]
	if !ok {
		ch = make(chan struct{}, 1)
		l.paths[path] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("waiting for working copy `%s`: %w", path, ctx.Err())
	}
}

// ImageBuilderOption configures an ImageBuilder.
type ImageBuilderOption func(*ImageBuilder)

// WithCredentials logs in to the registry before pushing.
func WithCredentials(c Credentials) ImageBuilderOption {
	return func(b *ImageBuilder) {
		if c.Username != "" {
			b.credentials = &c
		}
	}
}

// WithLabelDomain namespaces image labels, e.g. `acederberg.io/tier`.
func WithLabelDomain(domain string) ImageBuilderOption {
	return func(b *ImageBuilder) {
		b.domain = domain
	}
}

// WithPull makes every build attempt to pull newer base images.
func WithPull(pull bool) ImageBuilderOption {
	return func(b *ImageBuilder) {
		b.pull = pull
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(log *logger.Logger) ImageBuilderOption {
	return func(b *ImageBuilder) {
		b.log = log
	}
}

func NewImageBuilder(backend ports.BuildBackend, revisions *RevisionResolver, opts ...ImageBuilderOption) *ImageBuilder {
	b := &ImageBuilder{
		backend:   backend,
		revisions: revisions,
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildStream is the output of a running build. Lines must be drained before
// Err returns.
type BuildStream struct {
	lines chan string
	done  chan struct{}
	err   error
}

// Lines yields output as the backend produces it and is closed when the build
// is over.
func (s *BuildStream) Lines() <-chan string {
	return s.lines
}

// Err waits for the build to finish and reports its failure, if any.
func (s *BuildStream) Err() error {
	<-s.done
	return s.err
}

// Copy writes every line to w and returns the result of the build.
func (s *BuildStream) Copy(w io.Writer) error {
	for line := range s.lines {
		fmt.Fprintln(w, line)
	}
	return s.Err()
}

// Checkout resolves the revision of spec without building it.
func (b *ImageBuilder) Checkout(ctx context.Context, spec *domain.BuildSpec) error {
	unlock, err := b.worktrees.lock(ctx, spec.Git.Path)
	if err != nil {
		return err
	}
	defer unlock()
	return b.revisions.Checkout(ctx, spec)
}

// Build checks spec out and builds it in the background. spec.Git.Commit is
// populated by the checkout. Builds sharing a working copy run one at a time.
func (b *ImageBuilder) Build(ctx context.Context, spec *domain.BuildSpec) *BuildStream {
	s := &BuildStream{
		lines: make(chan string),
		done:  make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		defer close(s.lines)
		s.err = b.build(ctx, spec, s.lines)
	}()
	return s
}

func (b *ImageBuilder) build(ctx context.Context, spec *domain.BuildSpec, lines chan<- string) error {
	unlock, err := b.worktrees.lock(ctx, spec.Git.Path)
	if err != nil {
		return err
	}
	defer unlock()

	if err := b.revisions.Checkout(ctx, spec); err != nil {
		return err
	}
	if err := spec.Ready(); err != nil {
		return err
	}

	tags := domain.DeriveTags(spec)
	primary := domain.PrimaryTag(spec, tags)
	b.log.Debug("Building `%s` at `%s`.", primary, spec.Git.Path)

	code, err := b.backend.Build(ctx, ports.BuildRequest{
		ContextDir: spec.Git.Path,
		Dockerfile: spec.Git.Dockerfile,
		Target:     spec.Git.DockerTarget,
		Tag:        primary,
		Labels:     domain.Labels(spec, b.domain),
		Pull:       b.pull,
	}, lines)
	if err != nil {
		return fmt.Errorf("failed to run build: %w", err)
	}
	if code != 0 {
		return &domain.BuildFailedError{ExitCode: code}
	}

	for _, tag := range tags.Sorted() {
		if tag == primary {
			continue
		}
		b.log.Debug("Tagging `%s` as `%s`.", primary, tag)
		if err := b.backend.Tag(ctx, primary, tag); err != nil {
			return err
		}
	}
	return nil
}

// Push pushes every derived tag of spec when pushing is enabled. Tags pushed
// before a failure stay pushed.
func (b *ImageBuilder) Push(ctx context.Context, spec *domain.BuildSpec) error {
	if !spec.PushEnabled() {
		b.log.Debug("Push disabled for `%s`.", spec.Image.Repository)
		return nil
	}

	if b.credentials != nil {
		c := b.credentials
		if err := b.backend.Login(ctx, c.Username, c.Password, c.Registry); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrPushFailed, err)
		}
	}

	for _, ref := range domain.DeriveTags(spec).Sorted() {
		repository, tag, err := SplitReference(ref)
		if err != nil {
			return err
		}
		b.log.Info("Pushing `%s`.", ref)
		if err := b.backend.Push(ctx, repository, tag); err != nil {
			if !errors.Is(err, domain.ErrPushFailed) {
				err = fmt.Errorf("%w: %w", domain.ErrPushFailed, err)
			}
			return err
		}
	}
	return nil
}

// SplitReference splits `repository:tag` into its parts. The repository is
// returned as written, without the default registry being added.
func SplitReference(ref string) (string, string, error) {
	t, err := name.NewTag(ref)
	if err != nil {
		return "", "", fmt.Errorf("%w: image reference `%s`: %v", domain.ErrInvalidArgument, ref, err)
	}
	tag := t.TagStr()
	return strings.TrimSuffix(ref, ":"+tag), tag, nil
}
