// Package normalize turns raw remote payloads into records. Nothing here
// touches the network or the store.
package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Jeffail/gabs/v2"

	"fknsrs.biz/p/ytmirror/internal/diag"
	"fknsrs.biz/p/ytmirror/models"
)

const (
	idPath                = "id"
	etagPath              = "etag"
	titlePath             = "snippet.title"
	descriptionPath       = "snippet.description"
	publishedAtPath       = "snippet.publishedAt"
	channelIDPath         = "snippet.channelId"
	channelTitlePath      = "snippet.channelTitle"
	itemCountPath         = "contentDetails.itemCount"
	itemVideoIDPath       = "contentDetails.videoId"
	itemPositionPath      = "snippet.position"
	itemSnippetPlaylistID = "snippet.playlistId"
)

func Playlist(raw *gabs.Container) (*models.Playlist, error) {
	f := reader{raw: raw}

	p := &models.Playlist{
		ID:          f.id(),
		Etag:        f.optionalString(etagPath),
		Title:       f.requiredString(titlePath),
		Description: f.optionalString(descriptionPath),
		PublishedAt: f.requiredTime(publishedAtPath),
		ChannelID:   f.optionalString(channelIDPath),
		ItemCount:   f.optionalInt(itemCountPath),
	}

	if f.err != nil {
		return nil, fmt.Errorf("normalize.Playlist: %w", f.err)
	}

	return p, nil
}

// PlaylistItem takes the playlist id from the caller, since that is the
// playlist that was listed. The payload's own snippet.playlistId is only
// used when the caller has none.
func PlaylistItem(raw *gabs.Container, playlistID string) (*models.PlaylistItem, error) {
	f := reader{raw: raw}

	i := &models.PlaylistItem{
		ID:         f.id(),
		Etag:       f.optionalString(etagPath),
		PlaylistID: playlistID,
		VideoID:    f.requiredString(itemVideoIDPath),
		Position:   f.requiredInt(itemPositionPath),
	}

	if i.PlaylistID == "" {
		i.PlaylistID = f.requiredString(itemSnippetPlaylistID)
	}

	if f.err == nil && i.VideoID == "" {
		f.fail(itemVideoIDPath, "is empty")
	}

	if f.err == nil && i.Position < 0 {
		f.fail(itemPositionPath, "is negative")
	}

	if f.err != nil {
		return nil, fmt.Errorf("normalize.PlaylistItem: %w", f.err)
	}

	return i, nil
}

func Video(raw *gabs.Container) (*models.Video, error) {
	f := reader{raw: raw}

	v := &models.Video{
		ID:           f.id(),
		Etag:         f.optionalString(etagPath),
		Title:        f.requiredString(titlePath),
		Description:  f.optionalString(descriptionPath),
		PublishedAt:  f.requiredTime(publishedAtPath),
		ChannelID:    f.optionalString(channelIDPath),
		ChannelTitle: f.optionalString(channelTitlePath),
	}

	if f.err != nil {
		return nil, fmt.Errorf("normalize.Video: %w", f.err)
	}

	return v, nil
}

// ParseTime reads the remote's UTC-suffixed ISO-8601 timestamps. The result
// is always in UTC.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("normalize.ParseTime: %w: %w", diag.ErrMalformedInput, err)
	}

	return t.UTC(), nil
}

// reader keeps the first failure and turns every later lookup into a no-op,
// so a record is built in one pass and checked once.
type reader struct {
	raw *gabs.Container
	err error
}

func (r *reader) fail(path, format string, args ...interface{}) {
	if r.err == nil {
		r.err = fmt.Errorf("field %s %s: %w", path, fmt.Sprintf(format, args...), diag.ErrMalformedInput)
	}
}

func (r *reader) lookup(path string) (interface{}, bool) {
	if r.raw == nil || !r.raw.ExistsP(path) {
		return nil, false
	}

	v := r.raw.Path(path).Data()

	return v, v != nil
}

func (r *reader) id() string {
	s := r.requiredString(idPath)
	if r.err == nil && s == "" {
		r.fail(idPath, "is empty")
	}
	return s
}

func (r *reader) requiredString(path string) string {
	if r.err != nil {
		return ""
	}

	v, ok := r.lookup(path)
	if !ok {
		r.fail(path, "is missing")
		return ""
	}

	s, ok := v.(string)
	if !ok {
		r.fail(path, "should be a string; was instead %T", v)
		return ""
	}

	return s
}

func (r *reader) optionalString(path string) string {
	if r.err != nil {
		return ""
	}

	v, ok := r.lookup(path)
	if !ok {
		return ""
	}

	s, ok := v.(string)
	if !ok {
		r.fail(path, "should be a string; was instead %T", v)
		return ""
	}

	return s
}

func (r *reader) requiredInt(path string) int {
	if r.err != nil {
		return 0
	}

	v, ok := r.lookup(path)
	if !ok {
		r.fail(path, "is missing")
		return 0
	}

	return r.toInt(path, v)
}

func (r *reader) optionalInt(path string) int {
	if r.err != nil {
		return 0
	}

	v, ok := r.lookup(path)
	if !ok {
		return 0
	}

	return r.toInt(path, v)
}

func (r *reader) toInt(path string, v interface{}) int {
	switch v := v.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if v != math.Trunc(v) {
			r.fail(path, "should be a whole number; was %v", v)
			return 0
		}
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			r.fail(path, "should be a whole number; was %q", v.String())
			return 0
		}
		return int(n)
	default:
		r.fail(path, "should be a number; was instead %T", v)
		return 0
	}
}

func (r *reader) requiredTime(path string) time.Time {
	s := r.requiredString(path)
	if r.err != nil {
		return time.Time{}
	}

	t, err := ParseTime(s)
	if err != nil {
		r.fail(path, "could not be parsed as a timestamp (%q)", s)
		return time.Time{}
	}

	return t
}
