package ytsync_test

import (
	"context"
	"testing"

	"github.com/Jeffail/gabs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fknsrs.biz/p/ytmirror/internal/catalog/catalogtest"
	"fknsrs.biz/p/ytmirror/internal/config"
	"fknsrs.biz/p/ytmirror/internal/ctxconfig"
	"fknsrs.biz/p/ytmirror/internal/diag"
	"fknsrs.biz/p/ytmirror/internal/storetest"
	"fknsrs.biz/p/ytmirror/internal/ytsync"
)

func pages(sizes ...int) [][]*gabs.Container {
	var a [][]*gabs.Container
	n := 0
	for _, size := range sizes {
		var page []*gabs.Container
		for i := 0; i < size; i++ {
			n++
			page = append(page, catalogtest.Playlist(idOf("PL", n), idOf("Playlist ", n), 0))
		}
		a = append(a, page)
	}
	return a
}

func idOf(prefix string, n int) string {
	return prefix + string(rune('A'+n-1))
}

func TestSyncPlaylistsFollowsEveryPage(t *testing.T) {
	for _, tc := range []struct {
		name  string
		sizes []int
	}{
		{"single page", []int{3}},
		{"three pages", []int{2, 2, 1}},
		{"empty collection", []int{0}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)
			ctx := context.Background()
			s := storetest.Open(t)

			f := catalogtest.New()
			f.PlaylistPages = pages(tc.sizes...)

			res, err := ytsync.New(s, f).SyncPlaylists(ctx)
			require.NoError(t, err)

			total := 0
			for _, n := range tc.sizes {
				total += n
			}

			a.Equal(len(tc.sizes), f.PlaylistRequests)
			a.Equal(len(tc.sizes), res.Requests)
			a.Len(res.Playlists, total)

			c, err := s.Counts(ctx)
			require.NoError(t, err)
			a.Equal(total, c.Playlists)
		})
	}
}

func TestSyncPlaylistsDuplicateLastWins(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	s := storetest.Open(t)

	f := catalogtest.New()
	f.PlaylistPages = [][]*gabs.Container{
		{catalogtest.Playlist("PL1", "Before", 1)},
		{catalogtest.Playlist("PL1", "After", 2)},
	}

	_, err := ytsync.New(s, f).SyncPlaylists(ctx)
	require.NoError(t, err)

	p, found, err := s.FindPlaylist(ctx, "PL1")
	require.NoError(t, err)
	a.True(found)
	a.Equal("After", p.Title)
	a.Equal(2, p.ItemCount)
}

func TestSyncPlaylistsPartialFailure(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	s := storetest.Open(t)

	f := catalogtest.New()
	f.PlaylistPages = pages(2, 2, 2)
	f.FailPlaylistsPage = 2

	res, err := ytsync.New(s, f).SyncPlaylists(ctx)
	a.ErrorIs(err, diag.ErrTransportFailure)
	a.ErrorIs(err, catalogtest.ErrInjected)

	if a.NotNil(res) {
		a.Len(res.Playlists, 2)
		a.Equal(2, res.Requests)
	}

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	a.Equal(2, c.Playlists)
}

func TestSyncPlaylistsSkipsMalformed(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	s := storetest.Open(t)

	f := catalogtest.New()
	f.PlaylistPages = [][]*gabs.Container{{
		catalogtest.Playlist("PL1", "One", 0),
		catalogtest.Malformed(),
		catalogtest.Playlist("PL2", "Two", 0),
	}}

	res, err := ytsync.New(s, f).SyncPlaylists(ctx)
	require.NoError(t, err)
	a.Len(res.Playlists, 2)
	a.Equal(1, res.Diagnostics.Count(diag.MalformedInput))
}

func itemFixture() *catalogtest.Fake {
	f := catalogtest.New()
	f.ItemPages["PL1"] = [][]*gabs.Container{
		{
			catalogtest.PlaylistItem("i1", "PL1", "v1", 0),
			catalogtest.PlaylistItem("i2", "PL1", "v2", 1),
		},
		{
			catalogtest.PlaylistItem("i3", "PL1", "v1", 2),
			catalogtest.PlaylistItem("i4", "PL1", "gone", 3),
		},
	}
	f.AddVideo("v1", "One")
	f.AddVideo("v2", "Two")
	return f
}

func TestSyncPlaylistItemsModes(t *testing.T) {
	for _, tc := range []struct {
		mode    config.LookupMode
		lookups int
	}{
		{config.LookupItem, 4},
		{config.LookupBatch, 1},
	} {
		t.Run(string(tc.mode), func(t *testing.T) {
			a := assert.New(t)
			ctx := context.Background()
			s := storetest.Open(t)
			f := itemFixture()

			syncer := ytsync.New(s, f)
			syncer.Lookup = tc.mode

			res, err := syncer.SyncPlaylistItems(ctx, "PL1")
			require.NoError(t, err)

			a.Len(f.Lookups, tc.lookups)
			a.Equal(2, f.ItemRequests["PL1"])
			a.Len(res.Items, 4)
			a.Equal(1, res.Diagnostics.Count(diag.NotFound))

			// v1 is referenced twice but stored and reported once
			if a.Len(res.Videos, 2) {
				a.Equal("v1", res.Videos[0].ID)
				a.Equal("v2", res.Videos[1].ID)
			}

			items, err := s.PlaylistItemsByPlaylist(ctx, "PL1")
			require.NoError(t, err)
			a.Len(items, 4)

			videos, err := s.Videos(ctx)
			require.NoError(t, err)
			if a.Len(videos, 2) {
				a.Equal("v1", videos[0].ID)
				a.Equal("v2", videos[1].ID)
			}
		})
	}
}

func TestSyncPlaylistItemsBatchChunks(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	s := storetest.Open(t)

	f := catalogtest.New()
	var page []*gabs.Container
	for i := 0; i < 120; i++ {
		vid := "v" + string(rune('0'+i/100)) + string(rune('0'+i/10%10)) + string(rune('0'+i%10))
		page = append(page, catalogtest.PlaylistItem("i"+vid, "PL1", vid, i))
		f.AddVideo(vid, vid)
	}
	f.ItemPages["PL1"] = [][]*gabs.Container{page}

	syncer := ytsync.New(s, f)
	syncer.Lookup = config.LookupBatch

	res, err := syncer.SyncPlaylistItems(ctx, "PL1")
	require.NoError(t, err)
	a.Len(res.Videos, 120)

	if a.Len(f.Lookups, 3) {
		a.Len(f.Lookups[0], 50)
		a.Len(f.Lookups[1], 50)
		a.Len(f.Lookups[2], 20)
	}
}

func TestSyncPlaylistItemsLookupModeFromConfig(t *testing.T) {
	a := assert.New(t)
	ctx := ctxconfig.WithConfig(context.Background(), config.Config{SyncVideoLookup: config.LookupBatch})
	s := storetest.Open(t)
	f := itemFixture()

	_, err := ytsync.New(s, f).SyncPlaylistItems(ctx, "PL1")
	require.NoError(t, err)
	a.Len(f.Lookups, 1)
}

func TestSyncPlaylistItemsLookupFailure(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	s := storetest.Open(t)
	f := itemFixture()
	f.FailLookup["v2"] = true

	res, err := ytsync.New(s, f).SyncPlaylistItems(ctx, "PL1")
	a.ErrorIs(err, diag.ErrTransportFailure)

	// the item that triggered the failed lookup is already stored
	if a.NotNil(res) {
		a.Len(res.Items, 2)
		a.Len(res.Videos, 1)
	}
}

func TestSyncPlaylistItemsBatchAfterPageFailure(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	s := storetest.Open(t)
	f := itemFixture()
	f.FailItemsPage["PL1"] = 2

	syncer := ytsync.New(s, f)
	syncer.Lookup = config.LookupBatch

	res, err := syncer.SyncPlaylistItems(ctx, "PL1")
	a.ErrorIs(err, diag.ErrTransportFailure)

	if a.NotNil(res) {
		a.Len(res.Items, 2)
		a.Len(res.Videos, 2)
	}
}

func TestSyncAllContinuesPastFailingPlaylist(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	s := storetest.Open(t)

	f := itemFixture()
	f.PlaylistPages = [][]*gabs.Container{{
		catalogtest.Playlist("PL0", "Missing", 3),
		catalogtest.Playlist("PL1", "Present", 4),
	}}

	sum, err := ytsync.New(s, f).SyncAll(ctx)
	require.NoError(t, err)

	a.Len(sum.Playlists, 2)
	a.Len(sum.Items, 4)
	if a.Len(sum.Failures, 1) {
		a.Equal("PL0", sum.Failures[0].PlaylistID)
		a.ErrorIs(sum.Failures[0].Err, diag.ErrNotFound)
	}

	// unchanged remote data leaves the store as it was
	before, err := s.Counts(ctx)
	require.NoError(t, err)

	_, err = ytsync.New(s, f).SyncAll(ctx)
	require.NoError(t, err)

	after, err := s.Counts(ctx)
	require.NoError(t, err)
	a.Equal(before, after)
}

func TestSyncAllStopsWhenPlaylistsFail(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	s := storetest.Open(t)

	f := itemFixture()
	f.PlaylistPages = pages(1)
	f.FailPlaylistsPage = 1

	sum, err := ytsync.New(s, f).SyncAll(ctx)
	a.ErrorIs(err, diag.ErrTransportFailure)
	if a.NotNil(sum) {
		a.Empty(sum.Items)
	}
	a.Empty(f.ItemRequests)
}

func TestSyncItemsOfSkipsPlaylistListing(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	s := storetest.Open(t)

	f := itemFixture()
	f.PlaylistPages = pages(2)

	sum := ytsync.New(s, f).SyncItemsOf(ctx, []string{"PL1", "PL0"})

	a.Zero(f.PlaylistRequests)
	a.Empty(sum.Playlists)
	a.Len(sum.Items, 4)
	a.Len(sum.Videos, 2)
	if a.Len(sum.Failures, 1) {
		a.Equal("PL0", sum.Failures[0].PlaylistID)
		a.ErrorIs(sum.Failures[0].Err, diag.ErrNotFound)
	}
}

func TestSyncAllReportsSharedVideoOnce(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	s := storetest.Open(t)

	f := itemFixture()
	f.PlaylistPages = [][]*gabs.Container{{
		catalogtest.Playlist("PL1", "One", 4),
		catalogtest.Playlist("PL2", "Two", 1),
	}}
	f.ItemPages["PL2"] = [][]*gabs.Container{{
		catalogtest.PlaylistItem("j1", "PL2", "v2", 0),
	}}

	sum, err := ytsync.New(s, f).SyncAll(ctx)
	require.NoError(t, err)

	a.Len(sum.Items, 5)
	a.Len(sum.Videos, 2)

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	a.Equal(len(sum.Videos), c.Videos)
}
