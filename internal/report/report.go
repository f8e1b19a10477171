// Package report prints the cache's contents and the results of commands as
// plain text.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"

	"fknsrs.biz/p/ytmirror/internal/diag"
	"fknsrs.biz/p/ytmirror/internal/store"
	"fknsrs.biz/p/ytmirror/internal/stringutil"
	"fknsrs.biz/p/ytmirror/internal/ytsync"
	"fknsrs.biz/p/ytmirror/models"
)

var (
	rule50 = strings.Repeat("-", 50)
	rule30 = strings.Repeat("-", 30)
	rule20 = strings.Repeat("-", 20)
)

type Options struct {
	// DescriptionWidth cuts playlist descriptions to this many characters;
	// zero prints them whole.
	DescriptionWidth int
}

// Playlists prints every playlist with the videos of its items, in position
// order. Items whose video is not stored are left out.
func Playlists(ctx context.Context, w io.Writer, s *store.Store, opts Options) error {
	playlists, err := s.Playlists(ctx)
	if err != nil {
		return fmt.Errorf("report.Playlists: %w", err)
	}

	fmt.Fprintf(w, "\nFound %d playlists:\n", len(playlists))
	fmt.Fprintln(w, rule50)

	for _, p := range playlists {
		entries, err := s.PlaylistEntries(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("report.Playlists: %w", err)
		}

		writePlaylist(w, p, entries, opts)
	}

	return nil
}

func writePlaylist(w io.Writer, p models.Playlist, entries []models.PlaylistEntry, opts Options) {
	description := p.Description
	if opts.DescriptionWidth > 0 {
		description = stringutil.Truncate(description, opts.DescriptionWidth)
	}

	fmt.Fprintf(w, "\nPlaylist: %s\n", p.Title)
	fmt.Fprintf(w, "Description: %s\n", description)
	fmt.Fprintf(w, "Total videos: %d\n", p.ItemCount)
	fmt.Fprintln(w, rule30)

	for _, e := range entries {
		if !e.VideoPresent {
			continue
		}

		fmt.Fprintf(w, "Position %d: %s\n", e.Position, e.VideoTitle)
		fmt.Fprintf(w, "Video ID: %s\n", e.VideoID)
		fmt.Fprintf(w, "Channel: %s\n", e.VideoChannelTitle)
		fmt.Fprintln(w, rule20)
	}
}

// Added prints the videos an ingestion added.
func Added(w io.Writer, videos []models.Video) {
	fmt.Fprintf(w, "\nAdded %d new videos to the database:\n", len(videos))
	for _, v := range videos {
		fmt.Fprintf(w, " - %s (ID: %s)\n", v.Title, v.ID)
	}
}

func Diagnostics(w io.Writer, l diag.List) {
	if len(l) == 0 {
		return
	}

	fmt.Fprintf(w, "\nSkipped %d:\n", len(l))
	for _, d := range l {
		fmt.Fprintf(w, " - %s\n", d.Error())
	}
}

func Summary(w io.Writer, sum *ytsync.Summary) {
	fmt.Fprintf(w, "Synchronised %d playlists, %d playlist items and %d videos in %d requests.\n",
		len(sum.Playlists), len(sum.Items), len(sum.Videos), sum.Requests)

	for _, f := range sum.Failures {
		fmt.Fprintf(w, "Playlist %s stopped early: %s\n", f.PlaylistID, f.Err)
	}

	Diagnostics(w, sum.Diagnostics)
}

// Check prints dangling references and playlists whose reported item count
// differs from what is stored.
func Check(w io.Writer, refs []store.DanglingReference, counts []store.ItemCount) {
	fmt.Fprintf(w, "Dangling references: %d\n", len(refs))
	for _, r := range refs {
		var missing []string
		if r.MissingPlaylist {
			missing = append(missing, "playlist "+r.PlaylistID)
		}
		if r.MissingVideo {
			missing = append(missing, "video "+r.VideoID)
		}

		fmt.Fprintf(w, " - item %s: missing %s\n", r.ItemID, strings.Join(missing, " and "))
	}

	var drifted []store.ItemCount
	for _, c := range counts {
		if c.Drifted() {
			drifted = append(drifted, c)
		}
	}

	fmt.Fprintf(w, "Item count differences: %d\n", len(drifted))
	for _, c := range drifted {
		fmt.Fprintf(w, " - %s (%s): reported %d, stored %d\n", c.PlaylistID, c.Title, c.Reported, c.Stored)
	}
}
