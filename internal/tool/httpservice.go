package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"taskforge/internal/config"
)

const maxServiceResponseBytes = 256 * 1024

// TokenSource resolves a named secret (usually from the keystore).
type TokenSource func(name string) (string, error)

// serviceClient is the shared request/response plumbing for the SaaS
// wrapper tools (issue tracker, wiki, code host). No internal state
// machine: every call is one authenticated round trip.
type serviceClient struct {
	cfg    config.ServiceConfig
	tokens TokenSource
	client *http.Client
}

func newServiceClient(cfg config.ServiceConfig, tokens TokenSource) *serviceClient {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if cfg.TimeoutSecs <= 0 {
		timeout = 30 * time.Second
	}
	return &serviceClient{
		cfg:    cfg,
		tokens: tokens,
		client: &http.Client{Timeout: timeout},
	}
}

// doJSON performs one request and returns the response body as a string.
// Non-2xx responses are reported as errors carrying the body for context.
func (c *serviceClient) doJSON(ctx context.Context, method, path string, query url.Values, body any) (string, error) {
	if c.cfg.BaseURL == "" {
		return "", fmt.Errorf("service base URL not configured")
	}

	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return "", fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.cfg.TokenSecret != "" && c.tokens != nil {
		token, err := c.tokens(c.cfg.TokenSecret)
		if err != nil {
			return "", fmt.Errorf("resolve token %s: %w", c.cfg.TokenSecret, err)
		}
		if c.cfg.Username != "" {
			req.SetBasicAuth(c.cfg.Username, token)
		} else {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxServiceResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, truncateBody(data))
	}
	return string(data), nil
}

func truncateBody(data []byte) string {
	const max = 500
	if len(data) > max {
		return string(data[:max]) + "..."
	}
	return string(data)
}
