package store

import (
	"context"
	"fmt"
)

// DanglingReference is a playlist item pointing at a playlist or video that
// is not in the store.
type DanglingReference struct {
	ItemID          string `json:"item_id"`
	PlaylistID      string `json:"playlist_id"`
	VideoID         string `json:"video_id"`
	MissingPlaylist bool   `json:"missing_playlist"`
	MissingVideo    bool   `json:"missing_video"`
}

const danglingReferencesQuery = `
select i.id, i.playlist_id, i.video_id, p.id is null, v.id is null
from playlist_item i
left join playlist p on p.id = i.playlist_id
left join video v on v.id = i.video_id
where p.id is null or v.id is null
order by i.playlist_id asc, i.position asc, i.id asc
`

// DanglingReferences only reads. Items may legitimately arrive before the
// rows they point at, so this is a report rather than a constraint.
func (s *Store) DanglingReferences(ctx context.Context) ([]DanglingReference, error) {
	rows, err := s.db.QueryContext(ctx, danglingReferencesQuery)
	if err != nil {
		return nil, fmt.Errorf("store.DanglingReferences: %w", err)
	}
	defer rows.Close()

	var a []DanglingReference
	for rows.Next() {
		var r DanglingReference
		if err := rows.Scan(&r.ItemID, &r.PlaylistID, &r.VideoID, &r.MissingPlaylist, &r.MissingVideo); err != nil {
			return nil, fmt.Errorf("store.DanglingReferences: %w", err)
		}
		a = append(a, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store.DanglingReferences: %w", err)
	}

	return a, nil
}

// ItemCount compares the count a playlist reported with the number of items
// actually stored for it. The two are never reconciled.
type ItemCount struct {
	PlaylistID string `json:"playlist_id"`
	Title      string `json:"title"`
	Reported   int    `json:"reported"`
	Stored     int    `json:"stored"`
}

func (c ItemCount) Drifted() bool { return c.Reported != c.Stored }

const itemCountsQuery = `
select p.id, p.title, p.item_count, count(i.id)
from playlist p
left join playlist_item i on i.playlist_id = p.id
group by p.id, p.title, p.item_count
order by p.id asc
`

func (s *Store) ItemCounts(ctx context.Context) ([]ItemCount, error) {
	rows, err := s.db.QueryContext(ctx, itemCountsQuery)
	if err != nil {
		return nil, fmt.Errorf("store.ItemCounts: %w", err)
	}
	defer rows.Close()

	var a []ItemCount
	for rows.Next() {
		var c ItemCount
		if err := rows.Scan(&c.PlaylistID, &c.Title, &c.Reported, &c.Stored); err != nil {
			return nil, fmt.Errorf("store.ItemCounts: %w", err)
		}
		a = append(a, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store.ItemCounts: %w", err)
	}

	return a, nil
}
