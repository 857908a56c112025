package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrMissingKey is returned by Require and RequireSecret.
var ErrMissingKey = errors.New("missing configuration value")

// Secret is a sensitive string. It is redacted whenever it is printed or
// marshalled, use Reveal to read it.
type Secret string

const redacted = "********"

func (s Secret) Reveal() string { return string(s) }

func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

func (s Secret) GoString() string { return s.String() }

func (s Secret) MarshalYAML() (interface{}, error) { return s.String(), nil }

func (s Secret) MarshalJSON() ([]byte, error) { return []byte(`"` + s.String() + `"`), nil }

// Provider exposes a Config as a key-value store addressed by dotted yaml
// keys, e.g. `registry.username`.
type Provider struct {
	values map[string]string
	// secrets holds the unredacted value of Secret fields.
	secrets map[string]Secret
}

// NewProvider flattens cfg.
func NewProvider(cfg *Config) (*Provider, error) {
	p := &Provider{
		values: map[string]string{},
		secrets: map[string]Secret{
			"registry.password":  cfg.Registry.Password,
			"porkbun.api_key":    cfg.Porkbun.APIKey,
			"porkbun.secret_key": cfg.Porkbun.SecretKey,
		},
	}

	b, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(b, &tree); err != nil {
		return nil, err
	}
	flatten("", tree, p.values)
	return p, nil
}

func flatten(prefix string, tree map[string]interface{}, out map[string]string) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch v := v.(type) {
		case map[string]interface{}:
			flatten(key, v, out)
		case nil:
		default:
			if s := fmt.Sprint(v); s != "" {
				out[key] = s
			}
		}
	}
}

// Require returns the non sensitive value at key.
func (p *Provider) Require(key string) (string, error) {
	if _, ok := p.secrets[key]; ok {
		return "", fmt.Errorf("%w: `%s` is a secret, use RequireSecret", ErrMissingKey, key)
	}
	v, ok := p.values[key]
	if !ok {
		return "", fmt.Errorf("%w: no such value `%s`", ErrMissingKey, key)
	}
	return v, nil
}

// RequireSecret returns the sensitive value at key.
func (p *Provider) RequireSecret(key string) (Secret, error) {
	v, ok := p.secrets[key]
	if !ok || v == "" {
		return "", fmt.Errorf("%w: no such secret `%s`", ErrMissingKey, key)
	}
	return v, nil
}

// String renders the flattened configuration with secrets redacted.
func (p *Provider) String() string {
	var b strings.Builder
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "%s=%s\n", k, p.values[k])
	}
	return b.String()
}
