// Package catalog describes the remote side of a sync: paginated listings of
// raw payloads, plus lookups of videos by id.
package catalog

import (
	"context"

	"github.com/Jeffail/gabs/v2"
)

// MaxPageSize is the largest page the remote will return, and the largest
// number of ids it accepts in one video lookup.
const MaxPageSize = 50

// Page is one response of a listing. NextPageToken is empty on the last page.
type Page struct {
	Items         []*gabs.Container
	NextPageToken string
}

// VideoLookup resolves video ids to raw video payloads. Ids that the remote
// does not know are simply absent from the result; that is not an error.
type VideoLookup interface {
	LookupVideos(ctx context.Context, ids []string) ([]*gabs.Container, error)
}

type Catalog interface {
	VideoLookup
	// ListPlaylists lists playlists owned by the authenticated principal.
	ListPlaylists(ctx context.Context, pageToken string) (*Page, error)
	ListPlaylistItems(ctx context.Context, playlistID, pageToken string) (*Page, error)
}

// Chunk splits ids into runs of at most size.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = MaxPageSize
	}

	var a [][]string
	for len(ids) > 0 {
		n := size
		if n > len(ids) {
			n = len(ids)
		}
		a = append(a, ids[:n:n])
		ids = ids[n:]
	}

	return a
}
