package models

import (
	"database/sql"
	"time"

	"fknsrs.biz/p/ytmirror/internal/sqlbuilderutil"
	"fknsrs.biz/p/ytmirror/internal/sqltypes"
)

var (
	PlaylistTable *sqlbuilderutil.Table
)

func init() {
	PlaylistTable = sqlbuilderutil.MustMakeTable(Playlist{})
}

type Playlist struct {
	ID          string    `sql:",table:playlist" json:"id"`
	Etag        string    `json:"etag"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"published_at"`
	ChannelID   string    `json:"channel_id"`
	// ItemCount is what the remote reported, not what is stored locally.
	ItemCount int `json:"item_count"`
}

func (p *Playlist) OverrideScan(names []string, scanners []sql.Scanner) error {
	for i, name := range names {
		switch name {
		case "PublishedAt":
			scanners[i] = &sqltypes.TimeScanner{Value: &p.PublishedAt}
		}
	}

	return nil
}
