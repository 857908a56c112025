package services

import (
	"context"
	"fmt"
	"os"

	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/core/ports"
)

// RevisionResolver makes sure a working copy exists at the revision a
// BuildSpec names.
type RevisionResolver struct {
	git ports.GitCheckout
}

func NewRevisionResolver(git ports.GitCheckout) *RevisionResolver {
	return &RevisionResolver{git: git}
}

// Checkout clones or opens the repository of spec, moves its branch to the
// requested commit (or pulls it) and checks it out. spec.Git.Commit is
// populated with the resolved hash.
func (r *RevisionResolver) Checkout(ctx context.Context, spec *domain.BuildSpec) error {
	path := spec.Git.Path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return fmt.Errorf("%w: `%s` exists but is not a directory", domain.ErrInvalidArgument, path)
	}

	repo, err := r.git.CloneOrOpen(ctx, spec.Git.Repository, path)
	if err != nil {
		return err
	}

	branch := spec.Git.Branch
	ok, err := repo.HasBranch(branch)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: `%s` in `%s`", domain.ErrBranchNotFound, branch, path)
	}

	if spec.Git.Pull {
		if err := repo.Pull(ctx, branch); err != nil {
			return err
		}
	}

	if spec.Git.Commit != "" {
		if err := repo.SetBranchToCommit(branch, spec.Git.Commit); err != nil {
			return err
		}
	}
	if err := repo.Checkout(branch); err != nil {
		return err
	}

	commit, err := repo.CurrentCommit(branch)
	if err != nil {
		return err
	}
	spec.Git.Commit = commit
	return nil
}
