// Package domains talks to the external domain-registration service that
// owns the public hostnames projects are served under.
package domains

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Registry registers and releases hostnames. Both calls can fail
// independently of the rest of the system; callers decide whether that
// is fatal (creation) or logged-and-absorbed (teardown).
type Registry interface {
	Register(ctx context.Context, hostname string) error
	Unregister(ctx context.Context, hostname string) error
}

const defaultTimeout = 10 * time.Second

// HTTPRegistry is the client for a DNS-provider style HTTP API:
// POST /v1/domains {"hostname": ...} and DELETE /v1/domains/{hostname}.
type HTTPRegistry struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPRegistry(baseURL, apiKey string, timeout time.Duration) *HTTPRegistry {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &HTTPRegistry{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (r *HTTPRegistry) Register(ctx context.Context, hostname string) error {
	body, _ := json.Marshal(map[string]string{"hostname": hostname})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/v1/domains", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	r.auth(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("registry request failed: %w", err)
	}
	defer drain(resp)

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("hostname %s already registered", hostname)
	default:
		return fmt.Errorf("registry returned status %d", resp.StatusCode)
	}
}

func (r *HTTPRegistry) Unregister(ctx context.Context, hostname string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		r.baseURL+"/v1/domains/"+url.PathEscape(hostname), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	r.auth(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("registry request failed: %w", err)
	}
	defer drain(resp)

	// A hostname that is already gone is fine for teardown purposes.
	if resp.StatusCode < 300 || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return fmt.Errorf("registry returned status %d", resp.StatusCode)
}

func (r *HTTPRegistry) auth(req *http.Request) {
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	resp.Body.Close()
}

var _ Registry = (*HTTPRegistry)(nil)
