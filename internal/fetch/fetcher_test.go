package fetch_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndyXFuture/bilix-meta/internal/fetch"
	"github.com/AndyXFuture/bilix-meta/internal/media"
)

// testLogger returns a discard logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFile_Downloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("stream body"))
	}))
	defer srv.Close()

	f := fetch.New(fetch.Options{Logger: testLogger()})
	dest := filepath.Join(t.TempDir(), "out.mp4")

	n, err := f.File(context.Background(), []string{srv.URL}, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(len("stream body")), n)

	body, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "stream body", string(body))

	// no temp file left behind
	_, err = os.Stat(dest + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestFile_RotatesMirrors(t *testing.T) {
	var badHits atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badHits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("from mirror"))
	}))
	defer good.Close()

	f := fetch.New(fetch.Options{RetryBudget: 2, Logger: testLogger()})
	dest := filepath.Join(t.TempDir(), "out.mp4")

	_, err := f.File(context.Background(), []string{bad.URL, good.URL}, dest, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(1), badHits.Load())

	body, _ := os.ReadFile(dest)
	assert.Equal(t, "from mirror", string(body))
}

func TestFile_BudgetIsTotalNotPerURL(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := fetch.New(fetch.Options{RetryBudget: 3, Logger: testLogger()})
	dest := filepath.Join(t.TempDir(), "out.mp4")

	_, err := f.File(context.Background(), []string{srv.URL, srv.URL}, dest, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, fetch.ErrFetchExhausted)
	assert.Equal(t, int32(3), hits.Load())
}

func TestFile_EmptyURLList(t *testing.T) {
	f := fetch.New(fetch.Options{Logger: testLogger()})
	_, err := f.File(context.Background(), nil, filepath.Join(t.TempDir(), "x"), nil)
	assert.ErrorIs(t, err, fetch.ErrFetchExhausted)
}

func TestRange_SendsRangeHeader(t *testing.T) {
	var gotRange string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRange = r.Header.Get("Range")
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("partial"))
	}))
	defer srv.Close()

	f := fetch.New(fetch.Options{Logger: testLogger()})
	body, err := f.Range(context.Background(), []string{srv.URL}, media.ByteRange{Start: 0, End: 99})
	require.NoError(t, err)
	assert.Equal(t, "bytes=0-99", gotRange)
	assert.Equal(t, "partial", string(body))
}

func TestStatic_Convert(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("raw body"))
	}))
	defer srv.Close()

	f := fetch.New(fetch.Options{Logger: testLogger()})
	dest := filepath.Join(t.TempDir(), "conv.txt")

	got, err := f.Static(context.Background(), []string{srv.URL}, dest, func(b []byte) ([]byte, error) {
		return []byte(strings.ToUpper(string(b))), nil
	})
	require.NoError(t, err)
	assert.Equal(t, dest, got)

	body, _ := os.ReadFile(dest)
	assert.Equal(t, "RAW BODY", string(body))
}

func TestFile_CanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := fetch.New(fetch.Options{Logger: testLogger()})
	_, err := f.File(ctx, []string{srv.URL}, filepath.Join(t.TempDir(), "x"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
