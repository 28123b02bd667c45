package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront/internal/config"
)

const (
	maxResponseBytes  = 8 << 20
	maxErrorBodyBytes = 32 << 10
)

// restClient is the HTTP plumbing shared by the PostgREST, GoTrue and
// Storage clients.
type restClient struct {
	httpClient *http.Client
	baseURL    string
	anonKey    string
	serviceKey string
}

func newRestClient(cfg *config.Supabase, httpClient *http.Client) *restClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &restClient{
		httpClient: httpClient,
		baseURL:    cfg.URL,
		anonKey:    cfg.AnonKey,
		serviceKey: cfg.ServiceKey,
	}
}

// bearer picks the token a request runs under: the service key for service
// role contexts, then the caller's access token, then the anon key.
func (c *restClient) bearer(ctx context.Context) string {
	if serviceRole(ctx) && c.serviceKey != "" {
		return c.serviceKey
	}
	if token := AccessTokenFrom(ctx); token != "" {
		return token
	}
	return c.anonKey
}

func (c *restClient) apiKey(ctx context.Context) string {
	if serviceRole(ctx) && c.serviceKey != "" {
		return c.serviceKey
	}
	return c.anonKey
}

type request struct {
	method  string
	url     string
	body    io.Reader
	headers map[string]string
}

func jsonBody(v interface{}) (io.Reader, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal body: %w", err)
	}
	return bytes.NewReader(b), nil
}

func (c *restClient) do(ctx context.Context, r request) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, r.url, r.body)
	if err != nil {
		return nil, nil, fmt.Errorf("http new request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey(ctx))
	req.Header.Set("Authorization", "Bearer "+c.bearer(ctx))
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return resp, nil, parseAPIError(resp.StatusCode, b)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return resp, nil, fmt.Errorf("read response: %w", err)
	}
	return resp, b, nil
}
