package requester

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

var testIdentity = Identity{Company: "Acme Research", Name: "Jane Doe", Email: "jane@acme.example"}

func TestIdentityRequired(t *testing.T) {
	cases := []Identity{
		{},
		{Company: "Acme Research"},
		{Company: "Acme Research", Name: "Jane Doe"},
		{Name: "Jane Doe", Email: "jane@acme.example"},
	}
	for _, id := range cases {
		_, err := New(id)
		require.Error(t, err)
	}

	_, err := New(testIdentity)
	require.NoError(t, err)
}

func TestIdentityHeadersAttached(t *testing.T) {
	var gotUA, gotEncoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotEncoding = r.Header.Get("Accept-Encoding")
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	r, err := New(testIdentity)
	require.NoError(t, err)

	resp, err := r.Get(context.Background(), srv.URL+"/files/company_tickers.json")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.Equal(t, "Acme Research Jane Doe jane@acme.example", gotUA)
	require.Contains(t, gotEncoding, "gzip")
}

func TestRateSpacing(t *testing.T) {
	var mu sync.Mutex
	var stamps []time.Time
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		stamps = append(stamps, time.Now())
		mu.Unlock()
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// 20 req/s so the minimum spacing is 50ms.
	r, err := New(testIdentity, WithRateLimit(rate.Limit(20)))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := r.Get(ctx, srv.URL)
		require.NoError(t, err)
	}

	require.Len(t, stamps, 3)
	for i := 1; i < len(stamps); i++ {
		delta := stamps[i].Sub(stamps[i-1])
		require.GreaterOrEqual(t, delta, 45*time.Millisecond,
			"request %d arrived %v after the previous one", i, delta)
	}
}

func TestNonSuccessSurfacesFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	r, err := New(testIdentity)
	require.NoError(t, err)

	_, err = r.Get(context.Background(), srv.URL+"/missing")
	require.Error(t, err)

	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	require.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	require.Contains(t, fetchErr.URL, "/missing")
}

func TestContextCancellationStopsWait(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	// One request per minute: the second call can only proceed once the
	// context is cancelled.
	r, err := New(testIdentity, WithRateLimit(rate.Limit(1.0/60)))
	require.NoError(t, err)

	_, err = r.Get(context.Background(), srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = r.Get(ctx, srv.URL)
	require.Error(t, err)
}
