package ports

import "context"

// GitCheckout provides local working copies of remote repositories.
type GitCheckout interface {
	// CloneOrOpen clones url into path when path does not exist and opens the
	// existing working copy otherwise.
	CloneOrOpen(ctx context.Context, url, path string) (GitRepository, error)
}

// GitRepository is a local working copy.
type GitRepository interface {
	HasBranch(name string) (bool, error)
	// Pull fetches branch and fast-forwards it.
	Pull(ctx context.Context, branch string) error
	// SetBranchToCommit forces the branch pointer to hash.
	SetBranchToCommit(branch, hash string) error
	// CurrentCommit is the full hash the branch points at.
	CurrentCommit(branch string) (string, error)
	// Checkout updates the working tree to the branch.
	Checkout(branch string) error
}
