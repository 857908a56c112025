package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/acederberg/captura-platform/internal/core/domain"
	"github.com/acederberg/captura-platform/internal/core/ports"
)

const remoteName = "origin"

// Checkout implements ports.GitCheckout using go-git.
type Checkout struct {
	progress io.Writer
}

// NewCheckout creates a go-git checkout backend. Clone progress is written to
// progress when it is not nil.
func NewCheckout(progress io.Writer) *Checkout {
	return &Checkout{progress: progress}
}

// CloneOrOpen clones url into path when path does not exist, otherwise it
// opens the working copy at path.
func (c *Checkout) CloneOrOpen(ctx context.Context, url, path string) (ports.GitRepository, error) {
	if _, err := os.Stat(path); err == nil {
		repo, err := git.PlainOpen(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open repo at `%s`: %w", path, err)
		}
		return &Repository{repo: repo}, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat `%s`: %w", path, err)
	}

	if url == "" {
		return nil, fmt.Errorf("%w: `%s` does not exist and no repository url is given", domain.ErrInvalidArgument, path)
	}

	repo, err := git.PlainCloneContext(ctx, path, false, &git.CloneOptions{
		URL:        url,
		RemoteName: remoteName,
		Progress:   c.progress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clone repo: %w", err)
	}
	return &Repository{repo: repo}, nil
}

// Repository implements ports.GitRepository.
type Repository struct {
	repo *git.Repository
}

// HasBranch reports whether the branch exists locally. A branch that only
// exists on origin (the case for every branch but the default one right after
// a clone) is created locally.
func (r *Repository) HasBranch(name string) (bool, error) {
	_, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, err
	}

	remote, err := r.repo.Reference(plumbing.NewRemoteReferenceName(remoteName, name), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	local := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), remote.Hash())
	if err := r.repo.Storer.SetReference(local); err != nil {
		return false, fmt.Errorf("failed to create branch `%s`: %w", name, err)
	}
	return true, nil
}

// Pull checks the branch out, fetches it and fast-forwards it.
func (r *Repository) Pull(ctx context.Context, branch string) error {
	if err := r.Checkout(branch); err != nil {
		return err
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return err
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    remoteName,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to pull `%s`: %w", branch, err)
	}
	return nil
}

// SetBranchToCommit forces the branch to point at hash, which may be
// abbreviated.
func (r *Repository) SetBranchToCommit(branch, hash string) error {
	h, err := r.repo.ResolveRevision(plumbing.Revision(hash))
	if err != nil {
		return fmt.Errorf("%w: no commit `%s` in repository: %v", domain.ErrInvalidArgument, hash, err)
	}
	if _, err := r.repo.CommitObject(*h); err != nil {
		return fmt.Errorf("%w: `%s` is not a commit: %v", domain.ErrInvalidArgument, hash, err)
	}

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(branch), *h)
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("failed to set `%s` to `%s`: %w", branch, hash, err)
	}
	return nil
}

// CurrentCommit returns the hash the branch points at.
func (r *Repository) CurrentCommit(branch string) (string, error) {
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		return "", fmt.Errorf("failed to resolve `%s`: %w", branch, err)
	}
	return ref.Hash().String(), nil
}

// Checkout updates the working tree to the branch, discarding local changes.
func (r *Repository) Checkout(branch string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return err
	}
	if err := wt.Checkout(&git.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Force:  true,
	}); err != nil {
		return fmt.Errorf("failed to checkout `%s`: %w", branch, err)
	}
	return nil
}
