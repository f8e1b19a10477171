// Package ytsync walks the remote catalog page by page and writes what it
// finds into the store.
package ytsync

import (
	"context"
	"fmt"

	"github.com/Jeffail/gabs/v2"
	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytmirror/internal/catalog"
	"fknsrs.biz/p/ytmirror/internal/config"
	"fknsrs.biz/p/ytmirror/internal/ctxconfig"
	"fknsrs.biz/p/ytmirror/internal/ctxlogger"
	"fknsrs.biz/p/ytmirror/internal/diag"
	"fknsrs.biz/p/ytmirror/internal/normalize"
	"fknsrs.biz/p/ytmirror/internal/store"
	"fknsrs.biz/p/ytmirror/models"
)

type Syncer struct {
	Store   *store.Store
	Catalog catalog.Catalog
	// Lookup overrides the lookup mode carried by the context config.
	Lookup config.LookupMode
}

func New(s *store.Store, c catalog.Catalog) *Syncer {
	return &Syncer{Store: s, Catalog: c}
}

func (s *Syncer) lookupMode(ctx context.Context) config.LookupMode {
	if s.Lookup != "" {
		return s.Lookup
	}

	return ctxconfig.LookupMode(ctx)
}

// Result holds what one walk persisted. It is returned alongside an error
// when the walk stopped early; everything listed in it is already stored.
// Videos lists each stored video once, however many items point at it.
type Result struct {
	Playlists   []models.Playlist
	Items       []models.PlaylistItem
	Videos      []models.Video
	Requests    int
	Diagnostics diag.List

	videoIndex map[string]int
}

// addVideo records v, replacing an earlier copy with the same id since the
// store holds the later one.
func (r *Result) addVideo(v models.Video) {
	if r.videoIndex == nil {
		r.videoIndex = make(map[string]int)
	}

	if i, ok := r.videoIndex[v.ID]; ok {
		r.Videos[i] = v
		return
	}

	r.videoIndex[v.ID] = len(r.Videos)
	r.Videos = append(r.Videos, v)
}

func (r *Result) merge(o *Result) {
	if o == nil {
		return
	}

	r.Playlists = append(r.Playlists, o.Playlists...)
	r.Items = append(r.Items, o.Items...)
	for _, v := range o.Videos {
		r.addVideo(v)
	}
	r.Requests += o.Requests
	r.Diagnostics = append(r.Diagnostics, o.Diagnostics...)
}

type pageFunc func(ctx context.Context, pageToken string) (*catalog.Page, error)

// walk requests pages until one arrives without a continuation token. A
// failed request ends the walk; pages already handed to fn stay handled.
func walk(ctx context.Context, l logrus.FieldLogger, res *Result, get pageFunc, fn func(raw *gabs.Container) error) error {
	pageToken := ""

	for page := 1; ; page++ {
		res.Requests++

		p, err := get(ctx, pageToken)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, transportFailure(err))
		}

		l.WithFields(logrus.Fields{
			"sync.page":  page,
			"sync.items": len(p.Items),
		}).Debug("received page")

		for _, raw := range p.Items {
			if err := fn(raw); err != nil {
				return err
			}
		}

		if p.NextPageToken == "" {
			return nil
		}

		pageToken = p.NextPageToken
	}
}

func transportFailure(err error) error {
	if diag.Classify(err, diag.TransportFailure) == diag.TransportFailure {
		return &diag.Diagnostic{Kind: diag.TransportFailure, Subject: "request", Err: err}
	}

	return err
}

// SyncPlaylists stores every playlist owned by the principal.
func (s *Syncer) SyncPlaylists(ctx context.Context) (*Result, error) {
	ctx, l := ctxlogger.WithFields(ctx, logrus.Fields{"sync.collection": "playlists"})

	var res Result

	if err := walk(ctx, l, &res, s.Catalog.ListPlaylists, func(raw *gabs.Container) error {
		p, err := normalize.Playlist(raw)
		if err != nil {
			res.Diagnostics.Add(diag.From(subjectOf(raw), err, diag.MalformedInput))
			return nil
		}

		if err := s.Store.UpsertPlaylist(ctx, p); err != nil {
			return err
		}

		res.Playlists = append(res.Playlists, *p)

		return nil
	}); err != nil {
		res.Diagnostics.Log(l)
		return &res, fmt.Errorf("ytsync.SyncPlaylists: %w", err)
	}

	res.Diagnostics.Log(l)

	l.WithField("sync.playlists", len(res.Playlists)).Info("synchronised playlists")

	return &res, nil
}

// SyncPlaylistItems stores every item of one playlist along with the videos
// the items point at.
func (s *Syncer) SyncPlaylistItems(ctx context.Context, playlistID string) (*Result, error) {
	ctx, l := ctxlogger.WithFields(ctx, logrus.Fields{
		"sync.collection":  "playlist_items",
		"sync.playlist_id": playlistID,
	})

	mode := s.lookupMode(ctx)

	var res Result
	var pending []string
	seen := make(map[string]bool)

	walkErr := walk(ctx, l, &res, func(ctx context.Context, pageToken string) (*catalog.Page, error) {
		return s.Catalog.ListPlaylistItems(ctx, playlistID, pageToken)
	}, func(raw *gabs.Container) error {
		i, err := normalize.PlaylistItem(raw, playlistID)
		if err != nil {
			res.Diagnostics.Add(diag.From(subjectOf(raw), err, diag.MalformedInput))
			return nil
		}

		if err := s.Store.UpsertPlaylistItem(ctx, i); err != nil {
			return err
		}

		res.Items = append(res.Items, *i)

		if mode == config.LookupBatch {
			if !seen[i.VideoID] {
				seen[i.VideoID] = true
				pending = append(pending, i.VideoID)
			}
			return nil
		}

		return s.resolveVideos(ctx, &res, []string{i.VideoID})
	})

	// ids gathered before a failed page are still worth resolving
	if mode == config.LookupBatch {
		for _, chunk := range catalog.Chunk(pending, catalog.MaxPageSize) {
			if err := s.resolveVideos(ctx, &res, chunk); err != nil {
				if walkErr == nil {
					walkErr = err
				}
				break
			}
		}
	}

	res.Diagnostics.Log(l)

	if walkErr != nil {
		return &res, fmt.Errorf("ytsync.SyncPlaylistItems: %s: %w", playlistID, walkErr)
	}

	l.WithFields(logrus.Fields{
		"sync.items":  len(res.Items),
		"sync.videos": len(res.Videos),
	}).Info("synchronised playlist items")

	return &res, nil
}

// resolveVideos looks ids up in one request and stores what comes back. Ids
// the remote does not return are reported and skipped.
func (s *Syncer) resolveVideos(ctx context.Context, res *Result, ids []string) error {
	res.Requests++

	raws, err := s.Catalog.LookupVideos(ctx, ids)
	if err != nil {
		return fmt.Errorf("video lookup: %w", transportFailure(err))
	}

	found := make(map[string]bool)

	for _, raw := range raws {
		v, err := normalize.Video(raw)
		if err != nil {
			res.Diagnostics.Add(diag.From(subjectOf(raw), err, diag.MalformedInput))
			continue
		}

		if err := s.Store.UpsertVideo(ctx, v); err != nil {
			return err
		}

		found[v.ID] = true
		res.addVideo(*v)
	}

	for _, id := range ids {
		if !found[id] {
			res.Diagnostics.Add(diag.New(diag.NotFound, id, nil))
		}
	}

	return nil
}

// PlaylistFailure is a playlist whose items could not be walked to the end.
type PlaylistFailure struct {
	PlaylistID string
	Err        error
}

type Summary struct {
	Result
	Failures []PlaylistFailure
}

// SyncAll stores the playlists, then the items and videos of each one. Only
// a failure to list the playlists themselves stops it; a playlist whose
// items fail is recorded and the next one continues.
func (s *Syncer) SyncAll(ctx context.Context) (*Summary, error) {
	var sum Summary

	playlists, err := s.SyncPlaylists(ctx)
	sum.merge(playlists)
	if err != nil {
		return &sum, fmt.Errorf("ytsync.SyncAll: %w", err)
	}

	ids := make([]string, len(playlists.Playlists))
	for i, p := range playlists.Playlists {
		ids[i] = p.ID
	}

	items := s.SyncItemsOf(ctx, ids)
	sum.merge(&items.Result)
	sum.Failures = items.Failures

	return &sum, nil
}

// SyncItemsOf syncs the items and videos of each playlist in ids, without
// listing playlists first. A playlist that fails is recorded and the next one
// continues.
func (s *Syncer) SyncItemsOf(ctx context.Context, ids []string) *Summary {
	var sum Summary

	for _, id := range ids {
		res, err := s.SyncPlaylistItems(ctx, id)
		sum.merge(res)
		if err != nil {
			ctxlogger.GetLogger(ctx).WithError(err).WithField("sync.playlist_id", id).Warn("could not synchronise playlist items")
			sum.Failures = append(sum.Failures, PlaylistFailure{PlaylistID: id, Err: err})
		}
	}

	return &sum
}

func subjectOf(raw *gabs.Container) string {
	if raw != nil {
		if s, ok := raw.Path("id").Data().(string); ok && s != "" {
			return s
		}
	}

	return "(no id)"
}
