// Package ytapi adapts the YouTube Data API to the catalog interfaces. Typed
// SDK responses are re-encoded to JSON so the rest of the program only ever
// sees raw payloads.
package ytapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/Jeffail/gabs/v2"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"fknsrs.biz/p/ytmirror/internal/catalog"
	"fknsrs.biz/p/ytmirror/internal/diag"
)

var (
	listParts  = []string{"snippet", "contentDetails"}
	videoParts = []string{"snippet"}
)

type Options struct {
	APIKey    string
	TokenFile string
	// ChannelID lists that channel's playlists instead of the
	// authenticated principal's. Needed when only an API key is set.
	ChannelID         string
	RequestsPerSecond int
	// Transport is the innermost round tripper; nil means the default.
	Transport http.RoundTripper
	// Endpoint overrides the API base URL.
	Endpoint string
}

type Client struct {
	service   *youtube.Service
	channelID string
}

var _ catalog.Catalog = (*Client)(nil)

func New(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" && opts.TokenFile == "" {
		return nil, fmt.Errorf("ytapi.New: an api key or a token file is required")
	}

	httpClient, err := NewHTTPClient(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("ytapi.New: %w", err)
	}

	serviceOptions := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if opts.Endpoint != "" {
		serviceOptions = append(serviceOptions, option.WithEndpoint(opts.Endpoint))
	}

	service, err := youtube.NewService(ctx, serviceOptions...)
	if err != nil {
		return nil, fmt.Errorf("ytapi.New: could not create youtube service: %w", err)
	}

	return &Client{service: service, channelID: opts.ChannelID}, nil
}

// NewHTTPClient layers pacing and credentials over opts.Transport. An
// explicit HTTP client makes the SDK ignore its own credential options, so
// the api key is added here as well.
func NewHTTPClient(ctx context.Context, opts Options) (*http.Client, error) {
	rt := opts.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}

	if opts.RequestsPerSecond > 0 {
		rt = &limitedTransport{
			transport: rt,
			limiter:   rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		}
	}

	if opts.APIKey != "" {
		rt = &keyTransport{transport: rt, key: opts.APIKey}
	}

	c := &http.Client{Transport: rt}

	if opts.TokenFile != "" {
		tok, err := ReadToken(opts.TokenFile)
		if err != nil {
			return nil, err
		}

		c = oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c), oauth2.StaticTokenSource(tok))
	}

	return c, nil
}

// ReadToken loads an oauth2 token saved as JSON.
func ReadToken(path string) (*oauth2.Token, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ytapi.ReadToken: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(d, &tok); err != nil {
		return nil, fmt.Errorf("ytapi.ReadToken: %w: %w", diag.ErrMalformedInput, err)
	}

	if tok.AccessToken == "" {
		return nil, fmt.Errorf("ytapi.ReadToken: token file has no access_token: %w", diag.ErrMalformedInput)
	}

	return &tok, nil
}

type limitedTransport struct {
	transport http.RoundTripper
	limiter   *rate.Limiter
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, err
	}

	return t.transport.RoundTrip(req)
}

type keyTransport struct {
	transport http.RoundTripper
	key       string
}

func (t *keyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())

	q := req.URL.Query()
	q.Set("key", t.key)
	req.URL.RawQuery = q.Encode()

	return t.transport.RoundTrip(req)
}

func classify(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %w", diag.ErrNotFound, err)
	}

	return fmt.Errorf("%w: %w", diag.ErrTransportFailure, err)
}

func toContainer(v interface{}) (*gabs.Container, error) {
	d, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return gabs.ParseJSON(d)
}

func (c *Client) ListPlaylists(ctx context.Context, pageToken string) (*catalog.Page, error) {
	call := c.service.Playlists.List(listParts).MaxResults(catalog.MaxPageSize).Context(ctx)
	if c.channelID != "" {
		call = call.ChannelId(c.channelID)
	} else {
		call = call.Mine(true)
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	res, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("ytapi.ListPlaylists: %w", classify(err))
	}

	page := catalog.Page{NextPageToken: res.NextPageToken}

	for _, e := range res.Items {
		// zero counts would otherwise be omitted
		if e.ContentDetails != nil {
			e.ContentDetails.ForceSendFields = append(e.ContentDetails.ForceSendFields, "ItemCount")
		}

		raw, err := toContainer(e)
		if err != nil {
			return nil, fmt.Errorf("ytapi.ListPlaylists: %w", err)
		}

		page.Items = append(page.Items, raw)
	}

	return &page, nil
}

func (c *Client) ListPlaylistItems(ctx context.Context, playlistID, pageToken string) (*catalog.Page, error) {
	call := c.service.PlaylistItems.List(listParts).PlaylistId(playlistID).MaxResults(catalog.MaxPageSize).Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	res, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("ytapi.ListPlaylistItems: %s: %w", playlistID, classify(err))
	}

	page := catalog.Page{NextPageToken: res.NextPageToken}

	for _, e := range res.Items {
		// position zero is a real position
		if e.Snippet != nil {
			e.Snippet.ForceSendFields = append(e.Snippet.ForceSendFields, "Position")
		}

		raw, err := toContainer(e)
		if err != nil {
			return nil, fmt.Errorf("ytapi.ListPlaylistItems: %w", err)
		}

		page.Items = append(page.Items, raw)
	}

	return &page, nil
}

func (c *Client) LookupVideos(ctx context.Context, ids []string) ([]*gabs.Container, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	if len(ids) > catalog.MaxPageSize {
		return nil, fmt.Errorf("ytapi.LookupVideos: at most %d ids per lookup; got %d", catalog.MaxPageSize, len(ids))
	}

	res, err := c.service.Videos.List(videoParts).Id(ids...).MaxResults(catalog.MaxPageSize).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("ytapi.LookupVideos: %w", classify(err))
	}

	var a []*gabs.Container
	for _, e := range res.Items {
		raw, err := toContainer(e)
		if err != nil {
			return nil, fmt.Errorf("ytapi.LookupVideos: %w", err)
		}

		a = append(a, raw)
	}

	return a, nil
}
