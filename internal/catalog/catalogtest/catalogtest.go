// Package catalogtest has an in-memory catalog for tests.
package catalogtest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Jeffail/gabs/v2"

	"fknsrs.biz/p/ytmirror/internal/catalog"
	"fknsrs.biz/p/ytmirror/internal/diag"
)

var ErrInjected = fmt.Errorf("injected failure")

// Fake serves pre-built pages. Page tokens are "page-N".
type Fake struct {
	PlaylistPages [][]*gabs.Container
	ItemPages     map[string][][]*gabs.Container
	Videos        map[string]*gabs.Container

	// FailPlaylistsPage and FailItemsPage name a 1-based page that fails.
	FailPlaylistsPage int
	FailItemsPage     map[string]int
	// FailLookup makes any lookup containing one of these ids fail.
	FailLookup map[string]bool

	m                sync.Mutex
	PlaylistRequests int
	ItemRequests     map[string]int
	Lookups          [][]string
}

func New() *Fake {
	return &Fake{
		ItemPages:     make(map[string][][]*gabs.Container),
		Videos:        make(map[string]*gabs.Container),
		FailItemsPage: make(map[string]int),
		FailLookup:    make(map[string]bool),
		ItemRequests:  make(map[string]int),
	}
}

var _ catalog.Catalog = (*Fake)(nil)

func pageNumber(token string) (int, error) {
	if token == "" {
		return 1, nil
	}

	n, err := strconv.Atoi(strings.TrimPrefix(token, "page-"))
	if err != nil {
		return 0, fmt.Errorf("catalogtest: bad page token %q", token)
	}

	return n, nil
}

func serve(pages [][]*gabs.Container, token string, failAt int) (*catalog.Page, error) {
	n, err := pageNumber(token)
	if err != nil {
		return nil, err
	}

	if n == failAt {
		return nil, fmt.Errorf("catalogtest: page %d: %w", n, ErrInjected)
	}

	if n > len(pages) {
		return &catalog.Page{}, nil
	}

	p := &catalog.Page{Items: pages[n-1]}
	if n < len(pages) {
		p.NextPageToken = fmt.Sprintf("page-%d", n+1)
	}

	return p, nil
}

func (f *Fake) ListPlaylists(ctx context.Context, pageToken string) (*catalog.Page, error) {
	f.m.Lock()
	defer f.m.Unlock()

	f.PlaylistRequests++

	return serve(f.PlaylistPages, pageToken, f.FailPlaylistsPage)
}

func (f *Fake) ListPlaylistItems(ctx context.Context, playlistID, pageToken string) (*catalog.Page, error) {
	f.m.Lock()
	defer f.m.Unlock()

	f.ItemRequests[playlistID]++

	pages, ok := f.ItemPages[playlistID]
	if !ok {
		return nil, fmt.Errorf("catalogtest: playlist %s: %w", playlistID, diag.ErrNotFound)
	}

	return serve(pages, pageToken, f.FailItemsPage[playlistID])
}

func (f *Fake) LookupVideos(ctx context.Context, ids []string) ([]*gabs.Container, error) {
	f.m.Lock()
	defer f.m.Unlock()

	f.Lookups = append(f.Lookups, append([]string(nil), ids...))

	var a []*gabs.Container
	for _, id := range ids {
		if f.FailLookup[id] {
			return nil, fmt.Errorf("catalogtest: lookup %s: %w", id, ErrInjected)
		}
		if v, ok := f.Videos[id]; ok {
			a = append(a, v)
		}
	}

	return a, nil
}

// LookupCount is the number of ids requested across all lookups.
func (f *Fake) LookupCount(id string) int {
	f.m.Lock()
	defer f.m.Unlock()

	n := 0
	for _, l := range f.Lookups {
		for _, e := range l {
			if e == id {
				n++
			}
		}
	}

	return n
}

func (f *Fake) AddVideo(id, title string) {
	f.Videos[id] = Video(id, title)
}

const publishedAt = "2021-03-04T05:06:07Z"

func mustParse(s string) *gabs.Container {
	c, err := gabs.ParseJSON([]byte(s))
	if err != nil {
		panic(err)
	}
	return c
}

func Playlist(id, title string, itemCount int) *gabs.Container {
	c := gabs.New()
	c.SetP(id, "id")
	c.SetP("etag-"+id, "etag")
	c.SetP(title, "snippet.title")
	c.SetP("", "snippet.description")
	c.SetP(publishedAt, "snippet.publishedAt")
	c.SetP("UC0", "snippet.channelId")
	c.SetP(float64(itemCount), "contentDetails.itemCount")
	return c
}

func PlaylistItem(id, playlistID, videoID string, position int) *gabs.Container {
	c := gabs.New()
	c.SetP(id, "id")
	c.SetP("etag-"+id, "etag")
	c.SetP(playlistID, "snippet.playlistId")
	c.SetP(float64(position), "snippet.position")
	c.SetP(videoID, "contentDetails.videoId")
	return c
}

func Video(id, title string) *gabs.Container {
	c := gabs.New()
	c.SetP(id, "id")
	c.SetP("etag-"+id, "etag")
	c.SetP(title, "snippet.title")
	c.SetP("", "snippet.description")
	c.SetP(publishedAt, "snippet.publishedAt")
	c.SetP("UC0", "snippet.channelId")
	c.SetP("Channel", "snippet.channelTitle")
	return c
}

// Malformed is an item payload with no id.
func Malformed() *gabs.Container {
	return mustParse(`{"snippet": {"title": "no id here"}}`)
}
