package services

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/core/ports"
)

// DefaultBranch is used by ResolveRepository when no branch is given.
const DefaultBranch = "master"

// Source locates a build descriptor. Exactly one field must be set.
type Source struct {
	URL  string `json:"url,omitempty"`
	Path string `json:"path,omitempty"`
}

// Resolver produces BuildSpecs from descriptors and overrides.
type Resolver struct {
	source    ports.DescriptorSource
	registry  domain.RegistryAddress
	cloneRoot string
}

// NewResolver creates a Resolver. registry is used when a descriptor does not
// name one; repositories without an explicit path are checked out below
// cloneRoot.
func NewResolver(source ports.DescriptorSource, registry domain.RegistryAddress, cloneRoot string) *Resolver {
	return &Resolver{
		source:    source,
		registry:  registry,
		cloneRoot: cloneRoot,
	}
}

// Resolve loads the descriptor at src and merges overrides on top of it.
func (r *Resolver) Resolve(ctx context.Context, src Source, overrides domain.BuildSpec) (*domain.BuildSpec, error) {
	if (src.URL == "") == (src.Path == "") {
		return nil, fmt.Errorf("%w: exactly one of descriptor url or path is required", domain.ErrInvalidArgument)
	}

	var (
		raw      []byte
		err      error
		location = src.Path
	)
	if src.URL != "" {
		location = src.URL
		raw, err = r.source.Fetch(ctx, src.URL)
	} else {
		raw, err = r.source.Read(src.Path)
	}
	if err != nil {
		return nil, err
	}

	spec, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("`%s`: %w", location, err)
	}
	if err := spec.Merge(overrides); err != nil {
		return nil, err
	}
	if err := r.complete(spec); err != nil {
		return nil, err
	}
	return spec, nil
}

// ResolveRepository resolves the descriptor kept at the root of a GitHub
// repository on branch.
func (r *Resolver) ResolveRepository(ctx context.Context, repository, branch string, overrides domain.BuildSpec) (*domain.BuildSpec, error) {
	gitURL, err := domain.ParseGitURL(repository)
	if err != nil {
		return nil, err
	}
	if branch == "" {
		branch = DefaultBranch
	}
	overrides.Git.Repository = repository
	overrides.Git.Branch = branch
	return r.Resolve(ctx, Source{URL: gitURL.DescriptorURL(branch)}, overrides)
}

// Parse decodes a descriptor.
func Parse(raw []byte) (*domain.BuildSpec, error) {
	spec := &domain.BuildSpec{}
	if err := yaml.Unmarshal(raw, spec); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedDescriptor, err)
	}
	return spec, nil
}

func (r *Resolver) complete(spec *domain.BuildSpec) error {
	if spec.Registry == (domain.RegistryAddress{}) {
		spec.Registry = r.registry
	}
	spec.ApplyDefaults()
	if err := spec.Validate(); err != nil {
		return err
	}
	if spec.Git.Path == "" {
		gitURL, err := domain.ParseGitURL(spec.Git.Repository)
		if err != nil {
			return err
		}
		spec.Git.Path = gitURL.ClonePath(r.cloneRoot)
	}
	return nil
}
