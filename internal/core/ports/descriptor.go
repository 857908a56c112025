package ports

import "context"

// DescriptorSource loads raw build descriptors. Implementations return an
// error wrapping domain.ErrSourceNotFound when nothing is found at the
// location; parsing is left to the caller.
type DescriptorSource interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	Read(path string) ([]byte, error)
}
