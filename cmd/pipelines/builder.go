// cmd/pipelines/builder.go
package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/core/services"
)

// descriptorFlags select a descriptor and override its fields.
type descriptorFlags struct {
	file   string
	url    string
	branch string
	tag    string
	commit string
	tags   []string
	push   bool
	pull   bool
}

func (f *descriptorFlags) register(cmd *cobra.Command, withSource bool) {
	if withSource {
		cmd.Flags().StringVarP(&f.file, "file", "f", domain.DescriptorFile, "path to the build descriptor")
		cmd.Flags().StringVar(&f.url, "url", "", "url of the build descriptor, replaces --file")
	}
	cmd.Flags().StringVar(&f.branch, "branch", "", "branch to build")
	cmd.Flags().StringVar(&f.tag, "tag", "", "git tag of the revision")
	cmd.Flags().StringVar(&f.commit, "commit", "", "commit to build, the branch is moved to it")
	cmd.Flags().StringSliceVar(&f.tags, "image-tag", nil, "additional image tags")
	cmd.Flags().BoolVar(&f.push, "push", false, "push the image after building")
	cmd.Flags().BoolVar(&f.pull, "pull", false, "fetch and fast-forward the branch first")
}

func (f *descriptorFlags) source() services.Source {
	if f.url != "" {
		return services.Source{URL: f.url}
	}
	return services.Source{Path: f.file}
}

// overrides only carries the flags that were given so that descriptor values
// are kept otherwise.
func (f *descriptorFlags) overrides(cmd *cobra.Command) domain.BuildSpec {
	o := domain.BuildSpec{
		Git: domain.GitSource{
			Branch: f.branch,
			Tag:    f.tag,
			Commit: f.commit,
			Pull:   f.pull,
		},
		Image: domain.ImageSpec{Tags: f.tags},
	}
	if cmd.Flags().Changed("push") {
		push := f.push
		o.Image.Push = &push
	}
	return o
}

func newBuilderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "builder",
		Short: "Build, push and inspect images",
	}
	cmd.AddCommand(
		newBuildCmd(a),
		newCICmd(a),
		newPushCmd(a),
		newListCmd(a),
		newPushedCmd(a),
		newHydrateCmd(a),
	)
	return cmd
}

// buildAndPush builds spec while streaming output, then pushes it when
// pushing is enabled.
func buildAndPush(cmd *cobra.Command, a *app, spec *domain.BuildSpec) error {
	builder, err := a.platform.ImageBuilder()
	if err != nil {
		return err
	}

	a.log.Bold("Building `%s` from `%s` (%s).", spec.Image.Repository, spec.Git.Path, spec.Git.Branch)
	if err := builder.Build(cmd.Context(), spec).Copy(a.log.Writer()); err != nil {
		return err
	}
	a.log.Success("Built `%s` at commit `%s`.", spec.Image.Repository, spec.Git.Commit)

	if err := builder.Push(cmd.Context(), spec); err != nil {
		return err
	}
	if spec.PushEnabled() {
		a.log.Success("Pushed `%s`.", domain.ImageAddress(spec))
	}
	return nil
}

func newBuildCmd(a *app) *cobra.Command {
	var f descriptorFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build an image from a build descriptor",
		Long: `Build an image from a build descriptor.

The repository is cloned (or opened when already present), checked out at the
requested revision and built. The image is tagged with the commit, the
version tag when the revision is tagged and every extra tag, then pushed when
the descriptor or --push asks for it.

Examples:
  # Build from ./build.yaml
  pipelines builder build

  # Build a historical revision and push it
  pipelines builder build -f build.yaml --commit 1f0f2c3 --push`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := a.platform.Resolver().Resolve(cmd.Context(), f.source(), f.overrides(cmd))
			if err != nil {
				return err
			}
			return buildAndPush(cmd, a, spec)
		},
	}
	f.register(cmd, true)
	return cmd
}

func newCICmd(a *app) *cobra.Command {
	var f descriptorFlags
	cmd := &cobra.Command{
		Use:   "ci REPOSITORY_URL",
		Short: "Build an image using the build descriptor of a GitHub repository",
		Long: `Build an image using the build.yaml kept at the root of a GitHub repository.

Examples:
  pipelines builder ci https://github.com/acederberg/captura --branch dev --tag v1.3.0`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := a.platform.Resolver().ResolveRepository(cmd.Context(), args[0], f.branch, f.overrides(cmd))
			if err != nil {
				return err
			}
			return buildAndPush(cmd, a, spec)
		},
	}
	f.register(cmd, false)
	return cmd
}

func newPushCmd(a *app) *cobra.Command {
	var f descriptorFlags
	cmd := &cobra.Command{
		Use:   "push",
		Short: "Push an already built image",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			overrides := f.overrides(cmd)
			push := true
			overrides.Image.Push = &push

			spec, err := a.platform.Resolver().Resolve(cmd.Context(), f.source(), overrides)
			if err != nil {
				return err
			}
			builder, err := a.platform.ImageBuilder()
			if err != nil {
				return err
			}
			// Tags are derived from the commit.
			if err := builder.Checkout(cmd.Context(), spec); err != nil {
				return err
			}
			if err := builder.Push(cmd.Context(), spec); err != nil {
				return err
			}
			a.log.Success("Pushed `%s`.", domain.ImageAddress(spec))
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the repositories of the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			registry, err := a.platform.Registry()
			if err != nil {
				return err
			}
			repos, err := registry.Catalog(cmd.Context())
			if err != nil {
				return err
			}
			for _, repo := range repos {
				a.log.Info("%s", repo)
			}
			return nil
		},
	}
}

// registryRepository is the repository path of spec within its registry.
func registryRepository(spec *domain.BuildSpec) string {
	address := domain.ImageAddress(spec)
	if spec.Registry.Host != "" {
		return strings.TrimPrefix(address, spec.Registry.Host+"/")
	}
	return address
}

func newPushedCmd(a *app) *cobra.Command {
	var f descriptorFlags
	cmd := &cobra.Command{
		Use:   "pushed",
		Short: "List the tags pushed for the image of a build descriptor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := a.platform.Resolver().Resolve(cmd.Context(), f.source(), f.overrides(cmd))
			if err != nil {
				return err
			}
			registry, err := a.platform.Registry()
			if err != nil {
				return err
			}
			tags, err := registry.Tags(cmd.Context(), registryRepository(spec))
			if err != nil {
				return err
			}
			for _, tag := range tags {
				a.log.Info("%s", tag)
			}
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

// hydrated is the output of `hydrate --all`.
type hydrated struct {
	Spec   *domain.BuildSpec `yaml:"spec"`
	Tags   []string          `yaml:"tags"`
	Labels map[string]string `yaml:"labels"`
}

func newHydrateCmd(a *app) *cobra.Command {
	var (
		f   descriptorFlags
		all bool
	)
	cmd := &cobra.Command{
		Use:   "hydrate",
		Short: "Render the resolved build descriptor as YAML",
		Long: `Render the resolved build descriptor as YAML.

With --all the repository is checked out so the commit is resolved, and the
derived image tags and labels are rendered too.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec, err := a.platform.Resolver().Resolve(cmd.Context(), f.source(), f.overrides(cmd))
			if err != nil {
				return err
			}

			var out interface{} = spec
			if all {
				builder, err := a.platform.ImageBuilder()
				if err != nil {
					return err
				}
				if err := builder.Checkout(cmd.Context(), spec); err != nil {
					return err
				}
				out = hydrated{
					Spec:   spec,
					Tags:   domain.DeriveTags(spec).Sorted(),
					Labels: domain.Labels(spec, a.platform.Config.Domain),
				}
			}

			b, err := yaml.Marshal(out)
			if err != nil {
				return err
			}
			fmt.Fprint(a.log.Writer(), string(b))
			return nil
		},
	}
	f.register(cmd, true)
	cmd.Flags().BoolVar(&all, "all", false, "resolve the commit and include derived tags and labels")
	return cmd
}
