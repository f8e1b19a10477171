package handlers

import (
	"net/http"

	"fknsrs.biz/p/sorm/qsorm"
	sb "fknsrs.biz/p/sqlbuilder"
	"github.com/gorilla/mux"

	"fknsrs.biz/p/ytmirror/internal/ctxdb"
	"fknsrs.biz/p/ytmirror/internal/httputil"
	"fknsrs.biz/p/ytmirror/internal/store"
	"fknsrs.biz/p/ytmirror/models"
)

func Playlists(rw http.ResponseWriter, r *http.Request) {
	lq, err := parseListQuery(r, models.PlaylistTable, sb.OrderAsc(models.PlaylistTable.C("ID")))
	if err != nil {
		httputil.Error(rw, r, err)
		return
	}

	playlists := []models.Playlist{}
	if err := qsorm.FindWhere(
		r.Context(),
		ctxdb.GetDB(r.Context()),
		&playlists,
		lq.condition,
		lq.orders,
		lq.page,
	); err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, r, http.StatusOK, playlists)
}

type playlistResponse struct {
	*models.Playlist
	Entries []models.PlaylistEntry `json:"entries"`
}

// Playlist answers with the playlist and its items in position order,
// including items whose video has not been fetched.
func Playlist(rw http.ResponseWriter, r *http.Request) {
	s := store.Wrap(ctxdb.GetDB(r.Context()))

	playlist, ok, err := s.FindPlaylist(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		panic(err)
	}
	if !ok {
		httputil.NotFound(rw, r)
		return
	}

	entries, err := s.PlaylistEntries(r.Context(), playlist.ID)
	if err != nil {
		panic(err)
	}
	if entries == nil {
		entries = []models.PlaylistEntry{}
	}

	httputil.WriteJSON(rw, r, http.StatusOK, playlistResponse{Playlist: playlist, Entries: entries})
}
