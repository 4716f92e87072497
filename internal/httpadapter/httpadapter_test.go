package httpadapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jor0105/datafin/internal/retrypolicy"
)

func TestHeadReturnsContentLength(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
		w.Header().Set("Content-Length", "42")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := New(5*time.Second, retrypolicy.Default())
	h, err := a.Head(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int64(42), h.ContentLength)
	assert.Equal(t, 2006, h.LastModified.Year())
}

func TestStreamToFileRenamesOnSuccess(t *testing.T) {
	const body = "hello world"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.bin")
	a := New(5*time.Second, retrypolicy.Default())
	require.NoError(t, a.StreamToFile(context.Background(), srv.URL, dest, 4))

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, string(got))

	_, statErr := os.Stat(dest + ".partial")
	assert.True(t, os.IsNotExist(statErr))
}

func TestStreamToFileLeavesNoPartialOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "out.bin")
	a := New(5*time.Second, retrypolicy.Policy{Initial: time.Millisecond, Multiplier: 2, Cap: time.Millisecond, MaxAttempts: 1})
	err := a.StreamToFile(context.Background(), srv.URL, dest, 4)
	require.Error(t, err)

	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(dest + ".partial")
	assert.True(t, os.IsNotExist(statErr))
}
