package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"fknsrs.biz/p/ytmirror/internal/catalog"
	"fknsrs.biz/p/ytmirror/internal/httputil"
)

// Register adds the API routes to m. POST /ingest is only added when lookup
// is not nil.
func Register(m *mux.Router, lookup catalog.VideoLookup) {
	m.Methods(http.MethodGet).Path("/playlists").HandlerFunc(Playlists)
	m.Methods(http.MethodGet).Path("/playlists/{id}").HandlerFunc(Playlist)
	m.Methods(http.MethodGet).Path("/videos").HandlerFunc(Videos)
	m.Methods(http.MethodGet).Path("/videos/{id}").HandlerFunc(Video)
	m.Methods(http.MethodGet).Path("/check").HandlerFunc(Check)

	if lookup != nil {
		m.Methods(http.MethodPost).Path("/ingest").HandlerFunc(IngestAction(lookup))
	}

	m.NotFoundHandler = http.HandlerFunc(httputil.NotFound)
}
