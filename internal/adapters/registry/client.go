package registry

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"

	"github.com/acederberg/captura-platform/internal/core/domain"
)

// Client implements ports.Registry over the OCI distribution API.
type Client struct {
	host     string
	auth     authn.Authenticator
	nameOpts []name.Option
}

// Option configures a Client.
type Option func(*Client)

// WithBasicAuth authenticates every request with username and password.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		if username == "" {
			return
		}
		c.auth = &authn.Basic{Username: username, Password: password}
	}
}

// WithInsecure allows plain http.
func WithInsecure() Option {
	return func(c *Client) {
		c.nameOpts = append(c.nameOpts, name.Insecure)
	}
}

// NewClient creates a client for the registry at host.
func NewClient(host string, opts ...Option) *Client {
	c := &Client{host: host, auth: authn.Anonymous}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Catalog lists every repository of the registry in lexical order.
func (c *Client) Catalog(ctx context.Context) ([]string, error) {
	reg, err := name.NewRegistry(c.host, c.nameOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: registry `%s`: %v", domain.ErrInvalidArgument, c.host, err)
	}
	repos, err := remote.Catalog(ctx, reg, remote.WithAuth(c.auth))
	if err != nil {
		return nil, fmt.Errorf("failed to list repositories of `%s`: %w", c.host, err)
	}
	sort.Strings(repos)
	return repos, nil
}

// Tags lists the tags of repository in lexical order.
func (c *Client) Tags(ctx context.Context, repository string) ([]string, error) {
	repo, err := name.NewRepository(c.host+"/"+repository, c.nameOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: repository `%s`: %v", domain.ErrInvalidArgument, repository, err)
	}
	tags, err := remote.List(repo, remote.WithContext(ctx), remote.WithAuth(c.auth))
	if err != nil {
		return nil, fmt.Errorf("failed to list tags of `%s`: %w", repo.Name(), err)
	}
	sort.Strings(tags)
	return tags, nil
}
