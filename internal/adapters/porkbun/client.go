// Package porkbun is a client for the Porkbun DNS JSON API
// (https://porkbun.com/api/json/v3/documentation).
package porkbun

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/acederberg/captura-platform/internal/core/domain"
)

const (
	// DefaultAPIURL is the base URL of the Porkbun API.
	DefaultAPIURL = "https://api.porkbun.com/api/json/v3"

	statusSuccess = "SUCCESS"
)

// Client implements ports.DNSProvider.
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	secretKey  string
}

// ClientOption is a function that configures a Client.
type ClientOption func(*Client)

// WithAPIURL overrides the API base URL.
func WithAPIURL(url string) ClientOption {
	return func(c *Client) {
		c.apiURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the timeout of every request.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

// NewClient creates a new Porkbun API client.
func NewClient(apiKey, secretKey string, opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiURL:     DefaultAPIURL,
		apiKey:     apiKey,
		secretKey:  secretKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is returned when a response is not a success. Porkbun reports
// failures through the `status` field as well as through the HTTP status.
type APIError struct {
	Endpoint   string
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("porkbun `%s`: http status %d, status `%s`: %s", e.Endpoint, e.StatusCode, e.Status, e.Message)
}

type response struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Records []record `json:"records"`
}

// record mirrors the API representation; ids and ttls are strings there but
// are accepted as numbers too.
type record struct {
	ID      flexString `json:"id"`
	Name    string     `json:"name"`
	Type    string     `json:"type"`
	Content string     `json:"content"`
	TTL     flexString `json:"ttl"`
}

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = flexString(b)
	return nil
}

func (c *Client) url(parts ...string) string {
	return strings.Join(append([]string{c.apiURL}, parts...), "/")
}

// do POSTs the auth fields plus body to the endpoint and checks both the HTTP
// status and the `status` field of the response.
func (c *Client) do(ctx context.Context, body map[string]interface{}, parts ...string) (*response, error) {
	payload := map[string]interface{}{
		"apikey":       c.apiKey,
		"secretapikey": c.secretKey,
	}
	for k, v := range body {
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := c.url(parts...)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("porkbun `%s`: %w", endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("porkbun `%s`: reading response: %w", endpoint, err)
	}

	var out response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	if resp.StatusCode != http.StatusOK || out.Status != statusSuccess {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Status: out.Status, Message: out.Message}
	}
	return &out, nil
}

// Ping verifies that the keys work.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, nil, "ping")
	return err
}

// Records retrieves the records of recordType named name within dnsDomain.
func (c *Client) Records(ctx context.Context, dnsDomain, recordType, name string) ([]domain.DNSRecord, error) {
	parts := []string{"dns", "retrieveByNameType", dnsDomain, recordType}
	if name != "" {
		parts = append(parts, name)
	}
	resp, err := c.do(ctx, nil, parts...)
	if err != nil {
		return nil, err
	}
	return toRecords(resp.Records), nil
}

// AllRecords retrieves every record of dnsDomain.
func (c *Client) AllRecords(ctx context.Context, dnsDomain string) ([]domain.DNSRecord, error) {
	resp, err := c.do(ctx, nil, "dns", "retrieve", dnsDomain)
	if err != nil {
		return nil, err
	}
	return toRecords(resp.Records), nil
}

// DeleteRecord deletes the record id of dnsDomain.
func (c *Client) DeleteRecord(ctx context.Context, dnsDomain, id string) error {
	_, err := c.do(ctx, nil, "dns", "delete", dnsDomain, id)
	return err
}

// CreateRecord creates a record within dnsDomain. record.Name is the local
// name, empty for the root.
func (c *Client) CreateRecord(ctx context.Context, dnsDomain string, rec domain.DNSRecord) error {
	body := map[string]interface{}{
		"name":    rec.Name,
		"type":    rec.Type,
		"content": rec.Content,
	}
	if rec.TTL != "" {
		body["ttl"] = rec.TTL
	}
	_, err := c.do(ctx, body, "dns", "create", dnsDomain)
	return err
}

func toRecords(in []record) []domain.DNSRecord {
	out := make([]domain.DNSRecord, 0, len(in))
	for _, r := range in {
		out = append(out, domain.DNSRecord{
			ID:      string(r.ID),
			Name:    r.Name,
			Type:    r.Type,
			Content: r.Content,
			TTL:     string(r.TTL),
		})
	}
	return out
}
