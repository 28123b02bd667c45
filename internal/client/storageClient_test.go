package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/config"
)

func TestStorageUploadAndRemove(t *testing.T) {
	var uploaded string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			assert.Equal(t, "/storage/v1/object/profiles/avatars/a1.png", r.URL.Path)
			assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
			b, _ := io.ReadAll(r.Body)
			uploaded = string(b)
			_, _ = w.Write([]byte(`{"Key":"profiles/avatars/a1.png"}`))
		case http.MethodDelete:
			assert.Equal(t, "/storage/v1/object/profiles", r.URL.Path)
			var body map[string][]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []string{"avatars/old.png"}, body["prefixes"])
			_, _ = w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	s := NewStorageClient(&config.Supabase{URL: srv.URL, AnonKey: "anon"}, "profiles", srv.Client())

	require.NoError(t, s.Upload(context.Background(), "avatars/a1.png", "image/png", strings.NewReader("png-bytes")))
	assert.Equal(t, "png-bytes", uploaded)
	require.NoError(t, s.Remove(context.Background(), "avatars/old.png"))

	url := s.PublicURL("avatars/a1.png")
	assert.Equal(t, srv.URL+"/storage/v1/object/public/profiles/avatars/a1.png", url)

	p, ok := s.ObjectPath(url)
	assert.True(t, ok)
	assert.Equal(t, "avatars/a1.png", p)

	_, ok = s.ObjectPath("https://cdn.example.com/a1.png")
	assert.False(t, ok)
}

func TestStorageUploadError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"statusCode":"409","error":"Duplicate","message":"The resource already exists"}`))
	}))
	defer srv.Close()

	s := NewStorageClient(&config.Supabase{URL: srv.URL}, "profiles", srv.Client())
	err := s.Upload(context.Background(), "avatars/a1.png", "image/png", strings.NewReader("x"))
	require.Error(t, err)
	assert.Equal(t, "The resource already exists", ErrorMessage(err))
}

func TestLocalStorage(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir, "/uploads/")

	require.NoError(t, s.Upload(context.Background(), "products/1/main.jpg", "image/jpeg", strings.NewReader("jpg")))
	b, err := os.ReadFile(filepath.Join(dir, "products", "1", "main.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "jpg", string(b))

	url := s.PublicURL("products/1/main.jpg")
	assert.Equal(t, "/uploads/products/1/main.jpg", url)

	p, ok := s.ObjectPath(url)
	require.True(t, ok)
	require.NoError(t, s.Remove(context.Background(), p))
	_, err = os.Stat(filepath.Join(dir, "products", "1", "main.jpg"))
	assert.True(t, os.IsNotExist(err))

	// removing twice is fine
	require.NoError(t, s.Remove(context.Background(), p))
}

func TestLocalStorageStaysInsideDir(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStorage(dir, "/uploads")

	require.NoError(t, s.Upload(context.Background(), "../../escape.txt", "text/plain", strings.NewReader("x")))
	_, err := os.Stat(filepath.Join(dir, "escape.txt"))
	assert.NoError(t, err)
}
