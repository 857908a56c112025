package domain

import (
	"fmt"
	"os"
	"sort"

	"dario.cat/mergo"
)

// Default values applied to a resolved BuildSpec.
const (
	DefaultDockerfile = "dockerfile"
	LabelFrom         = "builder"
)

// BuildSpec describes a single image build. Its YAML form is the build descriptor.
type BuildSpec struct {
	Git      GitSource       `yaml:"git" json:"git"`
	Image    ImageSpec       `yaml:"image" json:"image"`
	Registry RegistryAddress `yaml:"registry,omitempty" json:"registry,omitempty"`
	Options  BuildOptions    `yaml:"options,omitempty" json:"options,omitempty"`
}

// GitSource is the revision to build.
type GitSource struct {
	Repository string `yaml:"repository,omitempty" json:"repository,omitempty"`
	// Path is where the repository is (or will be) checked out.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
	Pull bool   `yaml:"pull,omitempty" json:"pull,omitempty"`

	Branch string `yaml:"branch" json:"branch"`
	Tag    string `yaml:"tag,omitempty" json:"tag,omitempty"`
	// Commit is populated by checkout when empty. When set, the branch is
	// forced to it.
	Commit string `yaml:"commit,omitempty" json:"commit,omitempty"`

	Dockerfile   string `yaml:"dockerfile,omitempty" json:"dockerfile,omitempty"`
	DockerTarget string `yaml:"dockertarget,omitempty" json:"dockertarget,omitempty"`
}

// ImageSpec is the image produced by the build.
type ImageSpec struct {
	Repository string            `yaml:"repository" json:"repository"`
	Tags       []string          `yaml:"tags,omitempty" json:"tags,omitempty"`
	Labels     map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	// Push is a pointer so that an override can turn pushing off.
	Push *bool `yaml:"push,omitempty" json:"push,omitempty"`
}

// RegistryAddress identifies where the image is addressed. Host is a private
// registry (`registry.example.com`), Namespace a docker hub style username.
type RegistryAddress struct {
	Host      string `yaml:"host,omitempty" json:"host,omitempty"`
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
}

// BuildOptions holds metadata that only ends up in image labels.
type BuildOptions struct {
	Tier LabelTier `yaml:"tier,omitempty" json:"tier,omitempty"`
}

// LabelTier is the platform tier an image belongs to.
type LabelTier string

const (
	TierBase   LabelTier = "base"
	TierClient LabelTier = "client"
	TierAPI    LabelTier = "api"
)

// PushEnabled reports whether a push should follow the build.
func (s *BuildSpec) PushEnabled() bool {
	return s.Image.Push != nil && *s.Image.Push
}

// Merge deep merges override into s. Scalars set in override replace those of
// s, labels are merged key-wise, tags are unioned and keys absent from
// override never remove anything from s.
func (s *BuildSpec) Merge(override BuildSpec) error {
	if err := mergo.Merge(s, override,
		mergo.WithOverride,
		mergo.WithAppendSlice,
		mergo.WithoutDereference,
	); err != nil {
		return fmt.Errorf("%w: merging overrides: %v", ErrInvalidArgument, err)
	}
	s.Image.Tags = dedupe(s.Image.Tags)
	return nil
}

// ApplyDefaults fills optional fields with their conventional values.
func (s *BuildSpec) ApplyDefaults() {
	if s.Git.Dockerfile == "" {
		s.Git.Dockerfile = DefaultDockerfile
	}
}

// Validate checks the fields required before a checkout can happen.
func (s *BuildSpec) Validate() error {
	if s.Git.Branch == "" {
		return fmt.Errorf("%w: `git.branch` is required", ErrInvalidArgument)
	}
	if s.Git.Repository == "" && s.Git.Path == "" {
		return fmt.Errorf("%w: one of `git.repository` or `git.path` is required", ErrInvalidArgument)
	}
	if s.Image.Repository == "" {
		return fmt.Errorf("%w: `image.repository` is required", ErrInvalidArgument)
	}
	switch s.Options.Tier {
	case "", TierBase, TierClient, TierAPI:
	default:
		return fmt.Errorf("%w: unknown tier `%s`", ErrInvalidArgument, s.Options.Tier)
	}
	return nil
}

// Ready reports whether s can be handed to a build backend: the commit
// is resolved and the source path is an existing directory.
func (s *BuildSpec) Ready() error {
	if s.Git.Commit == "" {
		return fmt.Errorf("%w: commit is not resolved", ErrInvalidArgument)
	}
	info, err := os.Stat(s.Git.Path)
	if err != nil {
		return fmt.Errorf("%w: source path `%s`: %v", ErrInvalidArgument, s.Git.Path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: source path `%s` is not a directory", ErrInvalidArgument, s.Git.Path)
	}
	return nil
}

// ImageAddress is `{host}/{repository}` when a registry host is configured,
// `{namespace}/{repository}` for docker hub style addressing, and the bare
// repository otherwise. The namespace is ignored when a host is set.
func ImageAddress(s *BuildSpec) string {
	switch {
	case s.Registry.Host != "":
		return s.Registry.Host + "/" + s.Image.Repository
	case s.Registry.Namespace != "":
		return s.Registry.Namespace + "/" + s.Image.Repository
	default:
		return s.Image.Repository
	}
}

// VersionTag is the image tag for a git tag on branch:
//
//	master/main -> {tag}-alpha
//	dev         -> {tag}-beta
//	other       -> {tag}
func VersionTag(branch, tag string) string {
	switch branch {
	case "master", "main":
		return tag + "-alpha"
	case "dev":
		return tag + "-beta"
	default:
		return tag
	}
}

// DeriveTags computes the fully qualified references applied to the image.
// The commit is always included when known.
func DeriveTags(s *BuildSpec) TagSet {
	address := ImageAddress(s)
	tags := TagSet{}
	if s.Git.Commit != "" {
		tags.Add(address + ":" + s.Git.Commit)
	}
	if s.Git.Tag != "" {
		tags.Add(address + ":" + VersionTag(s.Git.Branch, s.Git.Tag))
	}
	for _, tag := range s.Image.Tags {
		if tag != "" {
			tags.Add(address + ":" + tag)
		}
	}
	return tags
}

// PrimaryTag is the reference the image is built as. Other tags are applied
// afterwards.
func PrimaryTag(s *BuildSpec, tags TagSet) string {
	if s.Git.Commit != "" {
		if ref := ImageAddress(s) + ":" + s.Git.Commit; tags.Has(ref) {
			return ref
		}
	}
	sorted := tags.Sorted()
	if len(sorted) == 0 {
		return ""
	}
	return sorted[0]
}

// Labels are the image labels, namespaced by domain. Labels from the
// descriptor take precedence.
func Labels(s *BuildSpec, domain string) map[string]string {
	labels := map[string]string{
		domain + "/component": "registry",
		domain + "/from":      LabelFrom,
	}
	if s.Options.Tier != "" {
		labels[domain+"/tier"] = string(s.Options.Tier)
	}
	for k, v := range s.Image.Labels {
		labels[k] = v
	}
	return labels
}

// TagSet is a set of image references.
type TagSet map[string]struct{}

func (t TagSet) Add(ref string) {
	t[ref] = struct{}{}
}

func (t TagSet) Has(ref string) bool {
	_, ok := t[ref]
	return ok
}

// Sorted returns the references in lexical order.
func (t TagSet) Sorted() []string {
	out := make([]string, 0, len(t))
	for ref := range t {
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
