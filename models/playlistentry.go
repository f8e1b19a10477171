package models

import (
	"fknsrs.biz/p/ytmirror/internal/sqlbuilderutil"
)

var (
	PlaylistEntryTable *sqlbuilderutil.Table
)

func init() {
	PlaylistEntryTable = sqlbuilderutil.MustMakeTable(PlaylistEntry{})
}

// PlaylistEntry is a row of the playlist_entry view: a playlist item joined
// with whatever is known about its video. VideoPresent is false while the
// video has not been fetched yet.
type PlaylistEntry struct {
	ItemID            string `sql:",table:playlist_entry" json:"item_id"`
	PlaylistID        string `json:"playlist_id"`
	Position          int    `json:"position"`
	VideoID           string `json:"video_id"`
	VideoPresent      bool   `json:"video_present"`
	VideoTitle        string `json:"video_title"`
	VideoChannelTitle string `json:"video_channel_title"`
}
