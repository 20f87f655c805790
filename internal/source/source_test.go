package source

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDir_Fetch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "saltmarsh"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "saltmarsh", "folders.json"), []byte(`[]`), 0o644))

	src := NewDir(root)

	data, err := src.Fetch(context.Background(), "saltmarsh/folders.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	_, err = src.Fetch(context.Background(), "saltmarsh/adv.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestDir_FetchRejectsEscapes(t *testing.T) {
	src := NewDir(t.TempDir())

	for _, rel := range []string{"../etc/passwd", "a/../../b", "", "."} {
		_, err := src.Fetch(context.Background(), rel)
		assert.Error(t, err, "path %q should be rejected", rel)
	}
}

func TestDir_FetchHonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewDir(t.TempDir()).Fetch(ctx, "x/folders.json")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTP_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/imports/saltmarsh/adv.json":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`[{"name":"a"}]`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	src := NewHTTP(server.URL + "/imports")

	data, err := src.Fetch(context.Background(), "saltmarsh/adv.json")
	require.NoError(t, err)
	assert.Equal(t, `[{"name":"a"}]`, string(data))

	_, err = src.Fetch(context.Background(), "saltmarsh/folders.json")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "404 Not Found")
}

func TestOpen(t *testing.T) {
	assert.IsType(t, &Dir{}, Open("imports", ""))
	assert.IsType(t, &HTTP{}, Open("imports", "http://localhost:30000/imports"))
}
