package models

import (
	"fknsrs.biz/p/ytmirror/internal/sqlbuilderutil"
)

var (
	PlaylistItemTable *sqlbuilderutil.Table
)

func init() {
	PlaylistItemTable = sqlbuilderutil.MustMakeTable(PlaylistItem{})
}

// PlaylistItem is a membership edge. Neither PlaylistID nor VideoID is
// guaranteed to resolve to a stored row.
type PlaylistItem struct {
	ID         string `sql:",table:playlist_item" json:"id"`
	Etag       string `json:"etag"`
	PlaylistID string `json:"playlist_id"`
	VideoID    string `json:"video_id"`
	Position   int    `json:"position"`
}
