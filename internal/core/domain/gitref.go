package domain

import (
	"fmt"
	"path/filepath"
	"regexp"
)

// DescriptorFile is the name of the build descriptor kept at the root of a repository.
const DescriptorFile = "build.yaml"

// PatternGitHub matches the repository URLs the builder knows how to derive a
// clone path from, e.g. `https://github.com/acederberg/captura.git` or
// `ssh://git@github.com/acederberg/captura/tree/master`.
var PatternGitHub = regexp.MustCompile(
	`^(?P<scheme>https|ssh)://` +
		`(?P<auth>(?P<username>[a-zA-Z0-9_-]+)(?::(?P<password>[^@]+))?@)?` +
		`github\.com/` +
		`(?P<owner>[a-zA-Z0-9_-]+)/(?P<repo>[a-zA-Z0-9_-]+)` +
		`(?:\.git)?` +
		`(?P<path>/.*)?$`,
)

// GitURL is the structured result of matching PatternGitHub.
type GitURL struct {
	Scheme   string
	Username string
	Password string
	Owner    string
	Repo     string
	Path     string
}

// Slug is `owner/repo`.
func (u GitURL) Slug() string {
	return u.Owner + "/" + u.Repo
}

// ClonePath is where the repository is checked out below root.
func (u GitURL) ClonePath(root string) string {
	return filepath.Join(root, u.Owner, u.Repo)
}

// DescriptorURL is the raw content URL of the build descriptor on branch.
func (u GitURL) DescriptorURL(branch string) string {
	return fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s", u.Slug(), branch, DescriptorFile)
}

// ParseGitURL matches raw against PatternGitHub.
func ParseGitURL(raw string) (GitURL, error) {
	m := PatternGitHub.FindStringSubmatch(raw)
	if m == nil {
		return GitURL{}, fmt.Errorf("%w: `%s` must match pattern `%s`", ErrInvalidArgument, raw, PatternGitHub)
	}

	group := func(name string) string {
		return m[PatternGitHub.SubexpIndex(name)]
	}
	return GitURL{
		Scheme:   group("scheme"),
		Username: group("username"),
		Password: group("password"),
		Owner:    group("owner"),
		Repo:     group("repo"),
		Path:     group("path"),
	}, nil
}
