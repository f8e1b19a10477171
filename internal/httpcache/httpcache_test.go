package httpcache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fknsrs.biz/p/ytmirror/internal/ctxclock"
)

func get(t *testing.T, c *http.Client, at time.Time, u string) (int, string) {
	t.Helper()

	ctx := ctxclock.WithClock(context.Background(), ctxclock.NewStaticClock(at))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	require.NoError(t, err)

	res, err := c.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	d, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return res.StatusCode, string(d)
}

func TestTransport(t *testing.T) {
	a := assert.New(t)

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		if r.URL.Path == "/missing" {
			http.NotFound(rw, r)
			return
		}
		fmt.Fprintf(rw, "response %d", n)
	}))
	defer srv.Close()

	storage, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer storage.Close()

	c := &http.Client{Transport: NewTransport(nil, storage, time.Hour)}

	start := time.Date(2022, time.May, 1, 0, 0, 0, 0, time.UTC)

	code, body := get(t, c, start, srv.URL+"/a")
	a.Equal(http.StatusOK, code)
	a.Equal("response 1", body)

	// fresh: served from the cache
	_, body = get(t, c, start.Add(time.Minute*59), srv.URL+"/a")
	a.Equal("response 1", body)
	a.EqualValues(1, atomic.LoadInt32(&hits))

	// stale: fetched again
	_, body = get(t, c, start.Add(time.Hour*2), srv.URL+"/a")
	a.Equal("response 2", body)

	// different urls are different entries
	_, body = get(t, c, start, srv.URL+"/a?page=2")
	a.Equal("response 3", body)

	// failures are never cached
	code, _ = get(t, c, start, srv.URL+"/missing")
	a.Equal(http.StatusNotFound, code)
	get(t, c, start, srv.URL+"/missing")
	a.EqualValues(5, atomic.LoadInt32(&hits))
}

func TestBBoltStorageMiss(t *testing.T) {
	a := assert.New(t)

	storage, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer storage.Close()

	u, err := http.NewRequest(http.MethodGet, "https://example.com/x", nil)
	require.NoError(t, err)

	e, err := storage.Fetch(u.URL)
	a.NoError(err)
	a.Nil(e)

	require.NoError(t, storage.Save(u.URL, &Entry{StatusCode: 200, Body: []byte("x")}))

	e, err = storage.Fetch(u.URL)
	a.NoError(err)
	if a.NotNil(e) {
		a.Equal([]byte("x"), e.Body)
	}
}

func TestTransportKeepsCredentialsOutOfCache(t *testing.T) {
	a := assert.New(t)

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&hits, 1)
		fmt.Fprintf(rw, "response %d", n)
	}))
	defer srv.Close()

	storage, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer storage.Close()

	c := &http.Client{Transport: NewTransport(nil, storage, time.Hour)}

	start := time.Date(2022, time.May, 1, 0, 0, 0, 0, time.UTC)

	_, body := get(t, c, start, srv.URL+"/videos?id=v1&key=secret-one")
	a.Equal("response 1", body)

	// a different key is the same resource
	_, body = get(t, c, start, srv.URL+"/videos?id=v1&key=secret-two")
	a.Equal("response 1", body)
	a.EqualValues(1, atomic.LoadInt32(&hits))

	u, err := url.Parse(srv.URL + "/videos?id=v1")
	require.NoError(t, err)

	e, err := storage.Fetch(u)
	require.NoError(t, err)
	if a.NotNil(e) {
		a.Equal(srv.URL+"/videos?id=v1", e.URL)
		a.NotContains(e.URL, "secret")
	}
}

func TestCacheURL(t *testing.T) {
	for _, tc := range []struct {
		in, out string
	}{
		{"https://example.com/a?id=1", "https://example.com/a?id=1"},
		{"https://example.com/a?id=1&key=k", "https://example.com/a?id=1"},
		{"https://example.com/a?access_token=t&part=snippet&part=contentDetails", "https://example.com/a?part=snippet&part=contentDetails"},
	} {
		t.Run(tc.in, func(t *testing.T) {
			a := assert.New(t)

			u, err := url.Parse(tc.in)
			require.NoError(t, err)

			a.Equal(tc.out, cacheURL(u).String())
		})
	}
}
