// Package httpcache keeps successful GET responses in a bbolt file so that
// repeated syncs within the freshness window do not spend remote quota.
package httpcache

import (
	"bytes"
	"crypto/sha1"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"fknsrs.biz/p/ytmirror/internal/ctxclock"
	"fknsrs.biz/p/ytmirror/internal/ctxlogger"
)

const DefaultMaxAge = time.Hour * 24

type Entry struct {
	UpdatedAt  time.Time
	URL        string
	Status     string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *Entry) makeResponse(req *http.Request) *http.Response {
	return &http.Response{
		Status:        e.Status,
		StatusCode:    e.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

type Storage interface {
	Fetch(u *url.URL) (*Entry, error)
	Save(u *url.URL, e *Entry) error
}

var bboltBucketName = []byte("cache")

type BBoltStorage struct {
	db *bbolt.DB
}

func NewBBoltStorage(db *bbolt.DB) *BBoltStorage {
	return &BBoltStorage{db: db}
}

// Open opens (creating if needed) a cache file at path.
func Open(path string) (*BBoltStorage, error) {
	db, err := bbolt.Open(path, 0644, &bbolt.Options{Timeout: time.Second * 5})
	if err != nil {
		return nil, fmt.Errorf("httpcache.Open: %w", err)
	}

	return NewBBoltStorage(db), nil
}

func (s *BBoltStorage) Close() error { return s.db.Close() }

func makeBBoltKey(u *url.URL) []byte {
	h := sha1.New()
	io.WriteString(h, u.String())
	return []byte(filepath.Join(u.Host, hex.EncodeToString(h.Sum(nil))))
}

// Fetch returns nil with no error on a miss.
func (s *BBoltStorage) Fetch(u *url.URL) (*Entry, error) {
	var e *Entry

	if err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bboltBucketName)
		if b == nil {
			return nil
		}

		// only valid until the transaction ends
		d := b.Get(makeBBoltKey(u))
		if d == nil {
			return nil
		}

		var v Entry
		if err := gob.NewDecoder(bytes.NewReader(d)).Decode(&v); err != nil {
			return err
		}
		e = &v

		return nil
	}); err != nil {
		return nil, fmt.Errorf("httpcache.BBoltStorage.Fetch: %w", err)
	}

	return e, nil
}

func (s *BBoltStorage) Save(u *url.URL, e *Entry) error {
	buf := bytes.NewBuffer(nil)
	if err := gob.NewEncoder(buf).Encode(e); err != nil {
		return fmt.Errorf("httpcache.BBoltStorage.Save: %w", err)
	}

	if err := s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bboltBucketName)
		if err != nil {
			return err
		}

		return b.Put(makeBBoltKey(u), buf.Bytes())
	}); err != nil {
		return fmt.Errorf("httpcache.BBoltStorage.Save: %w", err)
	}

	return nil
}

// credentialParams never reach the cache file, neither in keys nor in
// stored entries. Requests that differ only in these share an entry.
var credentialParams = []string{"key", "access_token"}

func cacheURL(u *url.URL) *url.URL {
	q := u.Query()

	found := false
	for _, name := range credentialParams {
		if q.Has(name) {
			q.Del(name)
			found = true
		}
	}

	if !found {
		return u
	}

	c := *u
	c.RawQuery = q.Encode()

	return &c
}

type Transport struct {
	transport http.RoundTripper
	storage   Storage
	maxAge    time.Duration
}

func NewTransport(transport http.RoundTripper, storage Storage, maxAge time.Duration) *Transport {
	if transport == nil {
		transport = http.DefaultTransport
	}

	if maxAge == 0 {
		maxAge = DefaultMaxAge
	}

	return &Transport{
		transport: transport,
		storage:   storage,
		maxAge:    maxAge,
	}
}

// RoundTrip serves fresh cached entries for GET requests. Time comes from
// the request context's clock, if it has one.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet || req.Header.Get("Cache-Control") == "no-cache" {
		return t.transport.RoundTrip(req)
	}

	ctx := req.Context()
	now := ctxclock.NowOrReal(ctx)
	l := ctxlogger.GetLogger(ctx).WithField("httpcache.host", req.URL.Host)

	u := cacheURL(req.URL)

	if e, err := t.storage.Fetch(u); err != nil {
		l.WithError(err).Warn("could not read from cache")
	} else if e != nil && now.Sub(e.UpdatedAt) < t.maxAge {
		l.Debug("cache hit")
		return e.makeResponse(req), nil
	}

	res, err := t.transport.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if res.StatusCode != http.StatusOK {
		return res, nil
	}

	d, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("httpcache.Transport.RoundTrip: could not read response: %w", err)
	}

	e := &Entry{
		UpdatedAt:  now,
		URL:        u.String(),
		Status:     res.Status,
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       d,
	}

	if err := t.storage.Save(u, e); err != nil {
		l.WithError(err).Warn("could not write to cache")
	}

	return e.makeResponse(req), nil
}
