package normalize

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fknsrs.biz/p/ytmirror/internal/diag"
	"fknsrs.biz/p/ytmirror/models"
)

func mustParse(t *testing.T, s string) *gabs.Container {
	t.Helper()

	c, err := gabs.ParseJSON([]byte(s))
	require.NoError(t, err)

	return c
}

func TestPlaylist(t *testing.T) {
	for _, tc := range []struct {
		name string
		in   string
		out  *models.Playlist
		err  string
	}{
		{
			name: "complete",
			in: `{
				"id": "PL1", "etag": "e1",
				"snippet": {"title": "Mix", "description": "d", "publishedAt": "2020-01-02T03:04:05Z", "channelId": "UC1"},
				"contentDetails": {"itemCount": 12}
			}`,
			out: &models.Playlist{
				ID:          "PL1",
				Etag:        "e1",
				Title:       "Mix",
				Description: "d",
				PublishedAt: time.Date(2020, time.January, 2, 3, 4, 5, 0, time.UTC),
				ChannelID:   "UC1",
				ItemCount:   12,
			},
		},
		{
			name: "optional fields absent",
			in:   `{"id": "PL2", "snippet": {"title": "", "publishedAt": "2020-01-02T03:04:05.5+10:00"}}`,
			out: &models.Playlist{
				ID:          "PL2",
				PublishedAt: time.Date(2020, time.January, 1, 17, 4, 5, 500000000, time.UTC),
			},
		},
		{
			name: "missing id",
			in:   `{"snippet": {"title": "x", "publishedAt": "2020-01-02T03:04:05Z"}}`,
			err:  "field id is missing",
		},
		{
			name: "empty id",
			in:   `{"id": "", "snippet": {"title": "x", "publishedAt": "2020-01-02T03:04:05Z"}}`,
			err:  "field id is empty",
		},
		{
			name: "missing title",
			in:   `{"id": "PL3", "snippet": {"publishedAt": "2020-01-02T03:04:05Z"}}`,
			err:  "field snippet.title is missing",
		},
		{
			name: "bad timestamp",
			in:   `{"id": "PL3", "snippet": {"title": "x", "publishedAt": "yesterday"}}`,
			err:  "field snippet.publishedAt could not be parsed",
		},
		{
			name: "fractional item count",
			in:   `{"id": "PL3", "snippet": {"title": "x", "publishedAt": "2020-01-02T03:04:05Z"}, "contentDetails": {"itemCount": 1.5}}`,
			err:  "field contentDetails.itemCount should be a whole number",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			p, err := Playlist(mustParse(t, tc.in))
			if tc.err != "" {
				a.ErrorIs(err, diag.ErrMalformedInput)
				if a.Error(err) {
					a.Contains(err.Error(), tc.err)
				}
				a.Nil(p)
				return
			}

			a.NoError(err)
			a.Equal(tc.out, p)
		})
	}
}

func TestPlaylistItem(t *testing.T) {
	for _, tc := range []struct {
		name       string
		in         string
		playlistID string
		out        *models.PlaylistItem
		err        string
	}{
		{
			name:       "caller playlist wins",
			in:         `{"id": "I1", "etag": "e", "snippet": {"position": 3, "playlistId": "OTHER"}, "contentDetails": {"videoId": "v1"}}`,
			playlistID: "PL1",
			out:        &models.PlaylistItem{ID: "I1", Etag: "e", PlaylistID: "PL1", VideoID: "v1", Position: 3},
		},
		{
			name: "payload playlist as fallback",
			in:   `{"id": "I1", "snippet": {"position": 0, "playlistId": "PL2"}, "contentDetails": {"videoId": "v1"}}`,
			out:  &models.PlaylistItem{ID: "I1", PlaylistID: "PL2", VideoID: "v1", Position: 0},
		},
		{
			name:       "missing video id",
			in:         `{"id": "I1", "snippet": {"position": 0}}`,
			playlistID: "PL1",
			err:        "field contentDetails.videoId is missing",
		},
		{
			name:       "missing position",
			in:         `{"id": "I1", "contentDetails": {"videoId": "v1"}}`,
			playlistID: "PL1",
			err:        "field snippet.position is missing",
		},
		{
			name:       "negative position",
			in:         `{"id": "I1", "snippet": {"position": -1}, "contentDetails": {"videoId": "v1"}}`,
			playlistID: "PL1",
			err:        "field snippet.position is negative",
		},
		{
			name:       "position of the wrong type",
			in:         `{"id": "I1", "snippet": {"position": "1"}, "contentDetails": {"videoId": "v1"}}`,
			playlistID: "PL1",
			err:        "should be a number; was instead string",
		},
		{
			name: "no playlist anywhere",
			in:   `{"id": "I1", "snippet": {"position": 0}, "contentDetails": {"videoId": "v1"}}`,
			err:  "field snippet.playlistId is missing",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			i, err := PlaylistItem(mustParse(t, tc.in), tc.playlistID)
			if tc.err != "" {
				a.ErrorIs(err, diag.ErrMalformedInput)
				if a.Error(err) {
					a.Contains(err.Error(), tc.err)
				}
				a.Nil(i)
				return
			}

			a.NoError(err)
			a.Equal(tc.out, i)
		})
	}
}

func TestVideo(t *testing.T) {
	a := assert.New(t)

	v, err := Video(mustParse(t, `{
		"id": "dQw4w9WgXcQ",
		"etag": "e",
		"snippet": {
			"title": "Never Gonna Give You Up",
			"description": "line one\nline two",
			"publishedAt": "2009-10-25T06:57:33Z",
			"channelId": "UCuAXFkgsw1L7xaCfnd5JJOw",
			"channelTitle": "Rick Astley"
		}
	}`))
	require.NoError(t, err)
	a.Equal(&models.Video{
		ID:           "dQw4w9WgXcQ",
		Etag:         "e",
		Title:        "Never Gonna Give You Up",
		Description:  "line one\nline two",
		PublishedAt:  time.Date(2009, time.October, 25, 6, 57, 33, 0, time.UTC),
		ChannelID:    "UCuAXFkgsw1L7xaCfnd5JJOw",
		ChannelTitle: "Rick Astley",
	}, v)

	_, err = Video(mustParse(t, `{"id": "x", "snippet": {"title": 5, "publishedAt": "2009-10-25T06:57:33Z"}}`))
	a.ErrorIs(err, diag.ErrMalformedInput)

	_, err = Video(nil)
	a.ErrorIs(err, diag.ErrMalformedInput)
}

func TestJSONNumber(t *testing.T) {
	a := assert.New(t)

	d := json.NewDecoder(strings.NewReader(`{"id": "I1", "snippet": {"position": 41}, "contentDetails": {"videoId": "v"}}`))
	d.UseNumber()

	c, err := gabs.ParseJSONDecoder(d)
	require.NoError(t, err)

	i, err := PlaylistItem(c, "PL")
	require.NoError(t, err)
	a.Equal(41, i.Position)
}

func TestParseTime(t *testing.T) {
	a := assert.New(t)

	tm, err := ParseTime(" 2021-06-07T08:09:10.123Z ")
	a.NoError(err)
	a.Equal(time.Date(2021, time.June, 7, 8, 9, 10, 123000000, time.UTC), tm)
	a.Equal(time.UTC, tm.Location())

	_, err = ParseTime("2021-06-07")
	a.ErrorIs(err, diag.ErrMalformedInput)
}
