package fetcher_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropworks/drop-admin/internal/fetcher"
)

func TestFetch_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("<html>page body</html>"))
	}))
	defer srv.Close()

	f := fetcher.New(fetcher.Config{UserAgent: "test-agent/1.0"})

	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>page body</html>", string(body))
}

func TestFetch_NonSuccessStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := fetcher.New(fetcher.Config{})

	body, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Nil(t, body)

	var statusErr *fetcher.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
}

func TestFetch_Timeout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	f := fetcher.New(fetcher.Config{Timeout: 20 * time.Millisecond})

	body, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Nil(t, body)

	var statusErr *fetcher.StatusError
	assert.False(t, errors.As(err, &statusErr), "timeout must not be a status error")
}

func TestFetch_ConnectionError(t *testing.T) {
	t.Parallel()

	// Grab an address nothing listens on.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := fetcher.New(fetcher.Config{})

	body, err := f.Fetch(context.Background(), url)
	require.Error(t, err)
	assert.Nil(t, body)
}

func TestFetch_InvalidURL(t *testing.T) {
	t.Parallel()

	f := fetcher.New(fetcher.Config{})

	_, err := f.Fetch(context.Background(), "http://[::1]:namedport")
	require.Error(t, err)
}
