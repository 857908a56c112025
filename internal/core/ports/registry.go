package ports

import "context"

// Registry inspects the contents of a container registry.
type Registry interface {
	Catalog(ctx context.Context) ([]string, error)
	// Tags lists the tags pushed for repository.
	Tags(ctx context.Context, repository string) ([]string, error)
}
