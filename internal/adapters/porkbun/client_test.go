package porkbun

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acederberg/captura-platform/internal/core/domain"
)

type captured struct {
	path string
	body map[string]interface{}
}

func newServer(t *testing.T, status int, response string, calls *[]captured) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		*calls = append(*calls, captured{path: r.URL.Path, body: body})

		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_Ping(t *testing.T) {
	var calls []captured
	server := newServer(t, http.StatusOK, `{"status":"SUCCESS","yourIp":"203.0.113.1"}`, &calls)

	c := NewClient("pk1", "sk1", WithAPIURL(server.URL))
	require.NoError(t, c.Ping(context.Background()))

	require.Len(t, calls, 1)
	assert.Equal(t, "/ping", calls[0].path)
	assert.Equal(t, "pk1", calls[0].body["apikey"])
	assert.Equal(t, "sk1", calls[0].body["secretapikey"])
}

func TestClient_StatusNotSuccess(t *testing.T) {
	var calls []captured
	server := newServer(t, http.StatusOK, `{"status":"ERROR","message":"Invalid API key."}`, &calls)

	err := NewClient("pk1", "sk1", WithAPIURL(server.URL)).Ping(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusOK, apiErr.StatusCode)
	assert.Equal(t, "ERROR", apiErr.Status)
	assert.Equal(t, "Invalid API key.", apiErr.Message)
}

func TestClient_HTTPStatusNotOK(t *testing.T) {
	var calls []captured
	server := newServer(t, http.StatusForbidden, `{"status":"SUCCESS"}`, &calls)

	err := NewClient("pk1", "sk1", WithAPIURL(server.URL)).Ping(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
}

func TestClient_NotJSON(t *testing.T) {
	var calls []captured
	server := newServer(t, http.StatusBadGateway, `bad gateway`, &calls)

	err := NewClient("pk1", "sk1", WithAPIURL(server.URL)).Ping(context.Background())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "bad gateway", apiErr.Message)
}

func TestClient_Records(t *testing.T) {
	var calls []captured
	server := newServer(t, http.StatusOK, `{"status":"SUCCESS","records":[
		{"id":"106926659","name":"www.acederberg.io","type":"A","content":"203.0.113.5","ttl":"600","prio":"0","notes":""},
		{"id":106926660,"name":"www.acederberg.io","type":"A","content":"203.0.113.6","ttl":600}
	]}`, &calls)

	c := NewClient("pk1", "sk1", WithAPIURL(server.URL))
	records, err := c.Records(context.Background(), "acederberg.io", domain.RecordTypeA, "www")
	require.NoError(t, err)

	assert.Equal(t, []domain.DNSRecord{
		{ID: "106926659", Name: "www.acederberg.io", Type: "A", Content: "203.0.113.5", TTL: "600"},
		{ID: "106926660", Name: "www.acederberg.io", Type: "A", Content: "203.0.113.6", TTL: "600"},
	}, records)
	assert.Equal(t, "/dns/retrieveByNameType/acederberg.io/A/www", calls[0].path)

	_, err = c.Records(context.Background(), "acederberg.io", domain.RecordTypeA, "")
	require.NoError(t, err)
	assert.Equal(t, "/dns/retrieveByNameType/acederberg.io/A", calls[1].path)
}

func TestClient_DeleteAndCreate(t *testing.T) {
	var calls []captured
	server := newServer(t, http.StatusOK, `{"status":"SUCCESS","id":106926661}`, &calls)

	c := NewClient("pk1", "sk1", WithAPIURL(server.URL+"/"))
	require.NoError(t, c.DeleteRecord(context.Background(), "acederberg.io", "106926659"))
	require.NoError(t, c.CreateRecord(context.Background(), "acederberg.io", domain.DNSRecord{
		Name: "*", Type: domain.RecordTypeA, Content: "203.0.113.5",
	}))

	require.Len(t, calls, 2)
	assert.Equal(t, "/dns/delete/acederberg.io/106926659", calls[0].path)
	assert.Equal(t, "/dns/create/acederberg.io", calls[1].path)
	assert.Equal(t, "*", calls[1].body["name"])
	assert.Equal(t, "A", calls[1].body["type"])
	assert.Equal(t, "203.0.113.5", calls[1].body["content"])
	assert.NotContains(t, calls[1].body, "ttl")
}

func TestClient_AllRecords(t *testing.T) {
	var calls []captured
	server := newServer(t, http.StatusOK, `{"status":"SUCCESS","records":[{"id":"1","name":"acederberg.io","type":"A","content":"203.0.113.5"}]}`, &calls)

	records, err := NewClient("pk1", "sk1", WithAPIURL(server.URL)).AllRecords(context.Background(), "acederberg.io")
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "/dns/retrieve/acederberg.io", calls[0].path)
}
