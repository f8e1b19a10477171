package models

import (
	"database/sql"
	"time"

	"fknsrs.biz/p/ytmirror/internal/sqlbuilderutil"
	"fknsrs.biz/p/ytmirror/internal/sqltypes"
)

var (
	VideoTable *sqlbuilderutil.Table
)

func init() {
	VideoTable = sqlbuilderutil.MustMakeTable(Video{})
}

type Video struct {
	ID           string    `sql:",table:video" json:"id"`
	Etag         string    `json:"etag"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	PublishedAt  time.Time `json:"published_at"`
	ChannelID    string    `json:"channel_id"`
	ChannelTitle string    `json:"channel_title"`
}

func (v *Video) OverrideScan(names []string, scanners []sql.Scanner) error {
	for i, name := range names {
		switch name {
		case "PublishedAt":
			scanners[i] = &sqltypes.TimeScanner{Value: &v.PublishedAt}
		}
	}

	return nil
}
