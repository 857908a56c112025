package descriptor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/acederberg/captura-platform/internal/core/domain"
)

// maxDescriptorSize bounds how much of a remote descriptor is read.
const maxDescriptorSize = 1 << 20

// Source implements ports.DescriptorSource over HTTP and the local filesystem.
type Source struct {
	httpClient *http.Client
}

// Option configures a Source.
type Option func(*Source)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Source) {
		s.httpClient = client
	}
}

// NewSource creates a new descriptor source.
func NewSource(opts ...Option) *Source {
	s := &Source{httpClient: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch downloads the descriptor at url.
func (s *Source) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch build info at `%s`: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: could not find build info at `%s` (status %d)", domain.ErrSourceNotFound, url, resp.StatusCode)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxDescriptorSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read build info at `%s`: %w", url, err)
	}
	return b, nil
}

// Read loads the descriptor at path.
func (s *Source) Read(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: no build info at `%s`", domain.ErrSourceNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read build info at `%s`: %w", path, err)
	}
	return b, nil
}
