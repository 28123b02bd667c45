package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"storefront/internal/config"
)

// SupabaseClient is a thin PostgREST client. Table rows travel as raw JSON;
// callers decode into their own row types.
type SupabaseClient interface {
	Select(ctx context.Context, table string, query url.Values) ([]byte, error)
	// SelectSingle returns one JSON object. A miss is an *APIError with
	// code PGRST116.
	SelectSingle(ctx context.Context, table string, query url.Values) ([]byte, error)
	Count(ctx context.Context, table string, query url.Values) (int64, error)
	Insert(ctx context.Context, table string, body interface{}, query url.Values) ([]byte, error)
	Update(ctx context.Context, table string, body interface{}, query url.Values) ([]byte, error)
	Delete(ctx context.Context, table string, query url.Values) ([]byte, error)
}

type supabaseClientImpl struct {
	rest *restClient
}

func NewSupabaseClient(cfg *config.Supabase, httpClient *http.Client) SupabaseClient {
	return &supabaseClientImpl{
		rest: newRestClient(cfg, httpClient),
	}
}

func (c *supabaseClientImpl) tableURL(table string, query url.Values) string {
	u := fmt.Sprintf("%s/rest/v1/%s", strings.TrimRight(c.rest.baseURL, "/"), table)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *supabaseClientImpl) Select(ctx context.Context, table string, query url.Values) ([]byte, error) {
	_, body, err := c.rest.do(ctx, request{
		method: http.MethodGet,
		url:    c.tableURL(table, query),
	})
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return body, nil
}

func (c *supabaseClientImpl) SelectSingle(ctx context.Context, table string, query url.Values) ([]byte, error) {
	_, body, err := c.rest.do(ctx, request{
		method:  http.MethodGet,
		url:     c.tableURL(table, query),
		headers: map[string]string{"Accept": "application/vnd.pgrst.object+json"},
	})
	if err != nil {
		return nil, fmt.Errorf("select single %s: %w", table, err)
	}
	return body, nil
}

func (c *supabaseClientImpl) Count(ctx context.Context, table string, query url.Values) (int64, error) {
	q := cloneValues(query)
	if q.Get("select") == "" {
		q.Set("select", "id")
	}
	resp, _, err := c.rest.do(ctx, request{
		method: http.MethodHead,
		url:    c.tableURL(table, q),
		headers: map[string]string{
			"Prefer": "count=exact",
			"Range":  "0-0",
		},
	})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return parseContentRange(resp.Header.Get("Content-Range"))
}

func (c *supabaseClientImpl) Insert(ctx context.Context, table string, body interface{}, query url.Values) ([]byte, error) {
	reader, err := jsonBody(body)
	if err != nil {
		return nil, err
	}
	_, resp, err := c.rest.do(ctx, request{
		method:  http.MethodPost,
		url:     c.tableURL(table, query),
		body:    reader,
		headers: map[string]string{"Prefer": "return=representation"},
	})
	if err != nil {
		return nil, fmt.Errorf("insert %s: %w", table, err)
	}
	return resp, nil
}

func (c *supabaseClientImpl) Update(ctx context.Context, table string, body interface{}, query url.Values) ([]byte, error) {
	reader, err := jsonBody(body)
	if err != nil {
		return nil, err
	}
	_, resp, err := c.rest.do(ctx, request{
		method:  http.MethodPatch,
		url:     c.tableURL(table, query),
		body:    reader,
		headers: map[string]string{"Prefer": "return=representation"},
	})
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", table, err)
	}
	return resp, nil
}

func (c *supabaseClientImpl) Delete(ctx context.Context, table string, query url.Values) ([]byte, error) {
	_, resp, err := c.rest.do(ctx, request{
		method:  http.MethodDelete,
		url:     c.tableURL(table, query),
		headers: map[string]string{"Prefer": "return=representation"},
	})
	if err != nil {
		return nil, fmt.Errorf("delete %s: %w", table, err)
	}
	return resp, nil
}

// parseContentRange reads the total from "0-8/42" or "*/0".
func parseContentRange(h string) (int64, error) {
	i := strings.LastIndex(h, "/")
	if i < 0 || i == len(h)-1 {
		return 0, fmt.Errorf("missing count in content-range %q", h)
	}
	total := h[i+1:]
	if total == "*" {
		return 0, fmt.Errorf("count not computed in content-range %q", h)
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse content-range %q: %w", h, err)
	}
	return n, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vals := range v {
		out[k] = append([]string(nil), vals...)
	}
	return out
}

// Eq builds a PostgREST equality filter value.
func Eq(v interface{}) string  { return fmt.Sprintf("eq.%v", v) }
func Gte(v interface{}) string { return fmt.Sprintf("gte.%v", v) }
func Lte(v interface{}) string { return fmt.Sprintf("lte.%v", v) }
func Lt(v interface{}) string  { return fmt.Sprintf("lt.%v", v) }
