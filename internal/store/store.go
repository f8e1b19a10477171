package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"fknsrs.biz/p/sorm"

	"fknsrs.biz/p/ytmirror/internal/ctxdb"
	"fknsrs.biz/p/ytmirror/internal/diag"
	"fknsrs.biz/p/ytmirror/internal/sqltypes"
	"fknsrs.biz/p/ytmirror/models"
)

//go:embed schema.sql
var schema string

// Store is the local cache of playlists, playlist items and videos. Every
// write replaces the whole row for its id and commits on its own; nothing is
// ever deleted.
type Store struct {
	db *sql.DB
}

// New creates any missing tables and returns a store over db. Existing
// tables are left untouched.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("store.New: could not apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Wrap returns a store over a database that New has already prepared.
func Wrap(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sql.DB { return s.db }

const upsertPlaylistQuery = `
insert into playlist (id, etag, title, description, published_at, channel_id, item_count)
values (?, ?, ?, ?, ?, ?, ?)
on conflict (id) do update set
  etag = excluded.etag,
  title = excluded.title,
  description = excluded.description,
  published_at = excluded.published_at,
  channel_id = excluded.channel_id,
  item_count = excluded.item_count
`

func (s *Store) UpsertPlaylist(ctx context.Context, p *models.Playlist) error {
	if p == nil || p.ID == "" {
		return fmt.Errorf("store.UpsertPlaylist: playlist has no id: %w", diag.ErrMalformedInput)
	}

	if err := s.exec(ctx, upsertPlaylistQuery,
		p.ID,
		p.Etag,
		p.Title,
		p.Description,
		sqltypes.FormatTime(p.PublishedAt),
		p.ChannelID,
		p.ItemCount,
	); err != nil {
		return fmt.Errorf("store.UpsertPlaylist: %s: %w", p.ID, err)
	}

	return nil
}

const upsertPlaylistItemQuery = `
insert into playlist_item (id, etag, playlist_id, video_id, position)
values (?, ?, ?, ?, ?)
on conflict (id) do update set
  etag = excluded.etag,
  playlist_id = excluded.playlist_id,
  video_id = excluded.video_id,
  position = excluded.position
`

func (s *Store) UpsertPlaylistItem(ctx context.Context, i *models.PlaylistItem) error {
	if i == nil || i.ID == "" {
		return fmt.Errorf("store.UpsertPlaylistItem: playlist item has no id: %w", diag.ErrMalformedInput)
	}

	if err := s.exec(ctx, upsertPlaylistItemQuery,
		i.ID,
		i.Etag,
		i.PlaylistID,
		i.VideoID,
		i.Position,
	); err != nil {
		return fmt.Errorf("store.UpsertPlaylistItem: %s: %w", i.ID, err)
	}

	return nil
}

const upsertVideoQuery = `
insert into video (id, etag, title, description, published_at, channel_id, channel_title)
values (?, ?, ?, ?, ?, ?, ?)
on conflict (id) do update set
  etag = excluded.etag,
  title = excluded.title,
  description = excluded.description,
  published_at = excluded.published_at,
  channel_id = excluded.channel_id,
  channel_title = excluded.channel_title
`

func (s *Store) UpsertVideo(ctx context.Context, v *models.Video) error {
	if v == nil || v.ID == "" {
		return fmt.Errorf("store.UpsertVideo: video has no id: %w", diag.ErrMalformedInput)
	}

	if err := s.exec(ctx, upsertVideoQuery,
		v.ID,
		v.Etag,
		v.Title,
		v.Description,
		sqltypes.FormatTime(v.PublishedAt),
		v.ChannelID,
		v.ChannelTitle,
	); err != nil {
		return fmt.Errorf("store.UpsertVideo: %s: %w", v.ID, err)
	}

	return nil
}

func (s *Store) exec(ctx context.Context, query string, args ...interface{}) error {
	return ctxdb.RunTx(ctx, s.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
}

func (s *Store) Playlists(ctx context.Context) ([]models.Playlist, error) {
	var playlists []models.Playlist
	if err := sorm.FindWhere(ctx, s.db, &playlists, "order by id asc"); err != nil {
		return nil, fmt.Errorf("store.Playlists: %w", err)
	}

	return playlists, nil
}

func (s *Store) PlaylistItems(ctx context.Context) ([]models.PlaylistItem, error) {
	var items []models.PlaylistItem
	if err := sorm.FindWhere(ctx, s.db, &items, "order by playlist_id asc, position asc, id asc"); err != nil {
		return nil, fmt.Errorf("store.PlaylistItems: %w", err)
	}

	return items, nil
}

// PlaylistItemsByPlaylist returns the items of one playlist by position.
func (s *Store) PlaylistItemsByPlaylist(ctx context.Context, playlistID string) ([]models.PlaylistItem, error) {
	var items []models.PlaylistItem
	if err := sorm.FindWhere(ctx, s.db, &items, "where playlist_id = ? order by position asc, id asc", playlistID); err != nil {
		return nil, fmt.Errorf("store.PlaylistItemsByPlaylist: %w", err)
	}

	return items, nil
}

func (s *Store) PlaylistEntries(ctx context.Context, playlistID string) ([]models.PlaylistEntry, error) {
	var entries []models.PlaylistEntry
	if err := sorm.FindWhere(ctx, s.db, &entries, "where playlist_id = ? order by position asc, item_id asc", playlistID); err != nil {
		return nil, fmt.Errorf("store.PlaylistEntries: %w", err)
	}

	return entries, nil
}

func (s *Store) Videos(ctx context.Context) ([]models.Video, error) {
	var videos []models.Video
	if err := sorm.FindWhere(ctx, s.db, &videos, "order by id asc"); err != nil {
		return nil, fmt.Errorf("store.Videos: %w", err)
	}

	return videos, nil
}

// FindPlaylist reports absence through the boolean, never as an error.
func (s *Store) FindPlaylist(ctx context.Context, id string) (*models.Playlist, bool, error) {
	var playlist models.Playlist
	if err := sorm.FindFirstWhere(ctx, s.db, &playlist, "where id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("store.FindPlaylist: %w", err)
	}

	return &playlist, true, nil
}

// FindVideo reports absence through the boolean, never as an error.
func (s *Store) FindVideo(ctx context.Context, id string) (*models.Video, bool, error) {
	var video models.Video
	if err := sorm.FindFirstWhere(ctx, s.db, &video, "where id = ?", id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("store.FindVideo: %w", err)
	}

	return &video, true, nil
}

type Counts struct {
	Playlists     int `json:"playlists"`
	PlaylistItems int `json:"playlist_items"`
	Videos        int `json:"videos"`
}

func (s *Store) Counts(ctx context.Context) (*Counts, error) {
	var c Counts
	if err := s.db.QueryRowContext(ctx, `select
  (select count(*) from playlist),
  (select count(*) from playlist_item),
  (select count(*) from video)`).Scan(&c.Playlists, &c.PlaylistItems, &c.Videos); err != nil {
		return nil, fmt.Errorf("store.Counts: %w", err)
	}

	return &c, nil
}
