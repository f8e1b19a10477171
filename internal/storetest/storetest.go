// Package storetest opens throwaway stores for tests in other packages.
package storetest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"fknsrs.biz/p/sorm"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"fknsrs.biz/p/ytmirror/internal/store"
	"fknsrs.biz/p/ytmirror/models"
)

func init() {
	sorm.SetParameterPrefix("?")
}

// Path returns a fresh database file location inside the test's temp dir.
func Path(t testing.TB) string {
	return filepath.Join(t.TempDir(), "cache.db")
}

// OpenAt opens (or reopens) the store at path and closes it when the test
// finishes.
func OpenAt(t testing.TB, path string) *store.Store {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s, err := store.New(context.Background(), db)
	require.NoError(t, err)

	return s
}

func Open(t testing.TB) *store.Store {
	t.Helper()
	return OpenAt(t, Path(t))
}

var epoch = time.Date(2021, time.March, 4, 5, 6, 7, 0, time.UTC)

func Playlist(id, title string, itemCount int) *models.Playlist {
	return &models.Playlist{
		ID:          id,
		Etag:        "etag-" + id,
		Title:       title,
		Description: "about " + title,
		PublishedAt: epoch,
		ChannelID:   "UCowner",
		ItemCount:   itemCount,
	}
}

func PlaylistItem(id, playlistID, videoID string, position int) *models.PlaylistItem {
	return &models.PlaylistItem{
		ID:         id,
		Etag:       "etag-" + id,
		PlaylistID: playlistID,
		VideoID:    videoID,
		Position:   position,
	}
}

func Video(id, title string) *models.Video {
	return &models.Video{
		ID:           id,
		Etag:         "etag-" + id,
		Title:        title,
		Description:  "about " + title,
		PublishedAt:  epoch.Add(time.Hour),
		ChannelID:    "UCchannel",
		ChannelTitle: "Channel",
	}
}
