package domain

import (
	"fmt"
	"regexp"
	"sort"
)

// RecordTypeA is the only record type the reconciler manages.
const RecordTypeA = "A"

// DNSRecord is a record held by the DNS provider.
type DNSRecord struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"`
	Content string `json:"content"`
	TTL     string `json:"ttl,omitempty"`
}

// Subdomains is the fixed set reconciled for a domain: the root, the wildcard
// and www. The result is sorted.
func Subdomains(domain string) []string {
	out := []string{domain, "*." + domain, "www." + domain}
	sort.Strings(out)
	return out
}

// LocalName is the part of subdomain preceding domain without the trailing
// dot, e.g. `www` for `www.example.com` and `` for `example.com`.
func LocalName(domain, subdomain string) (string, error) {
	if domain == "" {
		return "", fmt.Errorf("%w: empty domain", ErrInvalidArgument)
	}
	p := regexp.MustCompile(`^(?:(?P<name>[*a-zA-Z0-9_.-]*[*a-zA-Z0-9_-])\.)?` + regexp.QuoteMeta(domain) + `$`)
	m := p.FindStringSubmatch(subdomain)
	if m == nil {
		return "", fmt.Errorf("%w: `%s` is not a subdomain of `%s`", ErrInvalidArgument, subdomain, domain)
	}
	return m[p.SubexpIndex("name")], nil
}
