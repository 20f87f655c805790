// Package source retrieves export files from a local imports directory or
// from an HTTP server that serves the same layout.
package source

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"strings"
	"time"
)

const (
	defaultTimeout = 30 * time.Second
	maxExportBytes = 64 << 20
)

// Source fetches an export file by its path relative to the imports root.
type Source interface {
	Fetch(ctx context.Context, rel string) ([]byte, error)
}

// Open returns an HTTP source when baseURL is set, otherwise a directory source.
func Open(dir, baseURL string) Source {
	if baseURL != "" {
		return NewHTTP(baseURL)
	}
	return NewDir(dir)
}

// Dir reads exports from a directory tree.
type Dir struct {
	root string
	fsys fs.FS
}

// NewDir returns a source rooted at dir.
func NewDir(dir string) *Dir {
	return &Dir{root: dir, fsys: os.DirFS(dir)}
}

// Fetch reads rel beneath the root. Paths escaping the root are rejected.
func (d *Dir) Fetch(ctx context.Context, rel string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	name, err := cleanRel(rel)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(d.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path.Join(d.root, name), err)
	}
	return data, nil
}

func (d *Dir) String() string { return d.root }

// HTTP fetches exports with GET requests against BaseURL.
type HTTP struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTP returns a source with a bounded client timeout.
func NewHTTP(baseURL string) *HTTP {
	return &HTTP{BaseURL: baseURL, Client: &http.Client{Timeout: defaultTimeout}}
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Fetch downloads rel relative to BaseURL.
func (h *HTTP) Fetch(ctx context.Context, rel string) ([]byte, error) {
	name, err := cleanRel(rel)
	if err != nil {
		return nil, err
	}
	endpoint, err := url.JoinPath(h.BaseURL, strings.Split(name, "/")...)
	if err != nil {
		return nil, fmt.Errorf("invalid imports url %q: %w", h.BaseURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request %q: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: endpoint, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxExportBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", endpoint, err)
	}
	if len(data) > maxExportBytes {
		return nil, fmt.Errorf("export %s exceeds %d bytes", endpoint, maxExportBytes)
	}
	return data, nil
}

func (h *HTTP) String() string { return h.BaseURL }

func cleanRel(rel string) (string, error) {
	name := strings.TrimPrefix(rel, "/")
	if !fs.ValidPath(name) || name == "." {
		return "", fmt.Errorf("invalid export path %q", rel)
	}
	return name, nil
}
