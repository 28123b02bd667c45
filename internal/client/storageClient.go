package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"storefront/internal/config"
)

// ObjectStorage stores uploaded files under bucket-relative paths and hands
// out public URLs for them.
type ObjectStorage interface {
	Upload(ctx context.Context, objectPath, contentType string, body io.Reader) error
	Remove(ctx context.Context, objectPaths ...string) error
	PublicURL(objectPath string) string
	// ObjectPath recovers the bucket-relative path from a public URL issued
	// by this storage. ok is false for URLs hosted elsewhere.
	ObjectPath(publicURL string) (objectPath string, ok bool)
}

type storageClientImpl struct {
	rest   *restClient
	bucket string
}

func NewStorageClient(cfg *config.Supabase, bucket string, httpClient *http.Client) ObjectStorage {
	return &storageClientImpl{
		rest:   newRestClient(cfg, httpClient),
		bucket: bucket,
	}
}

func (c *storageClientImpl) base() string {
	return strings.TrimRight(c.rest.baseURL, "/") + "/storage/v1/object"
}

func (c *storageClientImpl) Upload(ctx context.Context, objectPath, contentType string, body io.Reader) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, _, err := c.rest.do(ctx, request{
		method: http.MethodPost,
		url:    fmt.Sprintf("%s/%s/%s", c.base(), c.bucket, escapePath(objectPath)),
		body:   body,
		headers: map[string]string{
			"Content-Type":  contentType,
			"Cache-Control": "max-age=3600",
			"x-upsert":      "false",
		},
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", objectPath, err)
	}
	return nil
}

func (c *storageClientImpl) Remove(ctx context.Context, objectPaths ...string) error {
	if len(objectPaths) == 0 {
		return nil
	}
	body, err := jsonBody(map[string][]string{"prefixes": objectPaths})
	if err != nil {
		return err
	}
	_, _, err = c.rest.do(ctx, request{
		method: http.MethodDelete,
		url:    fmt.Sprintf("%s/%s", c.base(), c.bucket),
		body:   body,
	})
	if err != nil {
		return fmt.Errorf("remove objects: %w", err)
	}
	return nil
}

func (c *storageClientImpl) publicPrefix() string {
	return fmt.Sprintf("%s/public/%s/", c.base(), c.bucket)
}

func (c *storageClientImpl) PublicURL(objectPath string) string {
	return c.publicPrefix() + escapePath(objectPath)
}

func (c *storageClientImpl) ObjectPath(publicURL string) (string, bool) {
	marker := "/storage/v1/object/public/" + c.bucket + "/"
	i := strings.Index(publicURL, marker)
	if i < 0 {
		return "", false
	}
	p, err := url.PathUnescape(publicURL[i+len(marker):])
	if err != nil || p == "" {
		return "", false
	}
	return p, true
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}

// localStorageImpl keeps objects on disk. It backs the SQL drivers when no
// hosted storage is configured.
type localStorageImpl struct {
	dir       string
	publicURL string
}

func NewLocalStorage(dir, publicURL string) ObjectStorage {
	return &localStorageImpl{
		dir:       dir,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *localStorageImpl) resolve(objectPath string) (string, error) {
	clean := path.Clean("/" + objectPath)
	if clean == "/" {
		return "", fmt.Errorf("invalid object path %q", objectPath)
	}
	return filepath.Join(s.dir, filepath.FromSlash(clean)), nil
}

func (s *localStorageImpl) Upload(ctx context.Context, objectPath, contentType string, body io.Reader) error {
	dst, err := s.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", objectPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return fmt.Errorf("write %s: %w", objectPath, err)
	}
	return nil
}

func (s *localStorageImpl) Remove(ctx context.Context, objectPaths ...string) error {
	for _, p := range objectPaths {
		dst, err := s.resolve(p)
		if err != nil {
			return err
		}
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", p, err)
		}
	}
	return nil
}

func (s *localStorageImpl) PublicURL(objectPath string) string {
	return s.publicURL + "/" + escapePath(objectPath)
}

func (s *localStorageImpl) ObjectPath(publicURL string) (string, bool) {
	prefix := s.publicURL + "/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	p, err := url.PathUnescape(strings.TrimPrefix(publicURL, prefix))
	if err != nil || p == "" {
		return "", false
	}
	return p, true
}
