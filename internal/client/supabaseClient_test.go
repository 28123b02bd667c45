package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
)

func newTestSupabase(t *testing.T, handler http.HandlerFunc) SupabaseClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewSupabaseClient(&config.Supabase{URL: srv.URL, AnonKey: "anon-key", ServiceKey: "service-key"}, srv.Client())
}

func TestSelectUsesCallerToken(t *testing.T) {
	c := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/products", r.URL.Path)
		assert.Equal(t, "eq.shoes", r.URL.Query().Get("category"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer user-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[{"id":1}]`))
	})

	ctx := WithAccessToken(context.Background(), "user-token")
	body, err := c.Select(ctx, "products", url.Values{"category": {Eq("shoes")}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(body))
}

func TestSelectFallsBackToAnonKey(t *testing.T) {
	c := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.Select(context.Background(), "categories", nil)
	require.NoError(t, err)
}

func TestServiceRoleUsesServiceKey(t *testing.T) {
	c := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer service-key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	})

	ctx := WithServiceRole(WithAccessToken(context.Background(), "user-token"))
	_, err := c.Select(ctx, "orders", nil)
	require.NoError(t, err)
}

func TestSelectSingleMissIsNoRows(t *testing.T) {
	c := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/vnd.pgrst.object+json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"code":"PGRST116","details":"The result contains 0 rows","hint":null,"message":"JSON object requested, multiple (or no) rows returned"}`))
	})

	_, err := c.SelectSingle(context.Background(), "profiles", url.Values{"id": {Eq("u1")}})
	require.Error(t, err)
	assert.True(t, IsNoRows(err))
	assert.False(t, IsForeignKeyViolation(err))
}

func TestInsertForeignKeyViolation(t *testing.T) {
	c := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var rows []map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&rows))
		assert.Len(t, rows, 2)

		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23503","message":"insert or update on table \"order_items\" violates foreign key constraint"}`))
	})

	_, err := c.Insert(context.Background(), "order_items", []map[string]int{{"product_id": 1}, {"product_id": 999}}, nil)
	require.Error(t, err)
	assert.True(t, IsForeignKeyViolation(err))

	apiErr, ok := AsAPIError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Contains(t, err.Error(), "insert order_items")
}

func TestCountReadsContentRange(t *testing.T) {
	c := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		assert.Equal(t, "count=exact", r.Header.Get("Prefer"))
		assert.Equal(t, "id", r.URL.Query().Get("select"))
		w.Header().Set("Content-Range", "0-0/42")
		w.WriteHeader(http.StatusPartialContent)
	})

	n, err := c.Count(context.Background(), "products", url.Values{"category": {Eq("bags")}})
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

func TestUpdateAndDelete(t *testing.T) {
	c := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "eq.5", r.URL.Query().Get("id"))
		switch r.Method {
		case http.MethodPatch:
			b, _ := io.ReadAll(r.Body)
			assert.JSONEq(t, `{"name":"Bags"}`, string(b))
			_, _ = w.Write([]byte(`[{"id":5,"name":"Bags"}]`))
		case http.MethodDelete:
			_, _ = w.Write([]byte(`[]`))
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	})

	body, err := c.Update(context.Background(), "categories", map[string]string{"name": "Bags"}, url.Values{"id": {Eq(5)}})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":5,"name":"Bags"}]`, string(body))

	body, err = c.Delete(context.Background(), "categories", url.Values{"id": {Eq(5)}})
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(body))
}

func TestParseContentRange(t *testing.T) {
	n, err := parseContentRange("*/0")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	_, err = parseContentRange("0-8/*")
	assert.Error(t, err)

	_, err = parseContentRange("")
	assert.Error(t, err)
}

func TestParseAPIErrorShapes(t *testing.T) {
	e := parseAPIError(400, []byte(`{"code":400,"error_code":"invalid_credentials","msg":"Invalid login credentials"}`))
	assert.Equal(t, "invalid_credentials", e.Code)
	assert.Equal(t, "Invalid login credentials", e.Message)

	e = parseAPIError(400, []byte(`{"error":"invalid_grant","error_description":"Email not confirmed"}`))
	assert.Equal(t, "Email not confirmed", e.Message)

	e = parseAPIError(502, []byte(`bad gateway`))
	assert.Equal(t, "bad gateway", e.Message)
	assert.Equal(t, "supabase API error 502: bad gateway", e.Error())
}
