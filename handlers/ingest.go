package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"fknsrs.biz/p/ytmirror/internal/catalog"
	"fknsrs.biz/p/ytmirror/internal/ctxdb"
	"fknsrs.biz/p/ytmirror/internal/diag"
	"fknsrs.biz/p/ytmirror/internal/httputil"
	"fknsrs.biz/p/ytmirror/internal/ingest"
	"fknsrs.biz/p/ytmirror/internal/store"
	"fknsrs.biz/p/ytmirror/internal/ytutil"
	"fknsrs.biz/p/ytmirror/models"
)

type ingestResponse struct {
	Added       []models.Video `json:"added"`
	Cached      int            `json:"cached"`
	Diagnostics diag.List      `json:"diagnostics"`
}

// IngestAction adds the videos referenced by the posted form. "text" is
// scanned for watch links the way ingested files are; "ids" is a list of ids
// or URLs separated by whitespace or commas, and any entry that is neither
// makes the request fail.
func IngestAction(lookup catalog.VideoLookup) http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			httputil.Error(rw, r, fmt.Errorf("handlers.IngestAction: %w: %w", diag.ErrMalformedInput, err))
			return
		}

		var input struct {
			Text string `formam:"text"`
			IDs  string `formam:"ids"`
		}

		if err := formDecoder.Decode(r.PostForm, &input); err != nil {
			httputil.Error(rw, r, fmt.Errorf("handlers.IngestAction: %w: %w", diag.ErrMalformedInput, err))
			return
		}

		ids, err := ytutil.ExtractVideoIDsFromText(input.IDs, false)
		if err != nil {
			httputil.Error(rw, r, fmt.Errorf("handlers.IngestAction: %w", err))
			return
		}

		found, err := ytutil.ExtractVideoIDs(strings.NewReader(input.Text))
		if err != nil {
			httputil.Error(rw, r, fmt.Errorf("handlers.IngestAction: %w", err))
			return
		}
		for id := range found {
			ids.Add(id)
		}

		if len(ids) == 0 {
			httputil.Error(rw, r, fmt.Errorf("handlers.IngestAction: no video ids in input: %w", diag.ErrMalformedInput))
			return
		}

		res, err := ingest.New(store.Wrap(ctxdb.GetDB(r.Context())), lookup).Reconcile(r.Context(), ids)
		if err != nil {
			panic(err)
		}

		out := ingestResponse{
			Added:       res.Added,
			Cached:      res.Cached,
			Diagnostics: res.Diagnostics,
		}
		if out.Added == nil {
			out.Added = []models.Video{}
		}
		if out.Diagnostics == nil {
			out.Diagnostics = diag.List{}
		}

		httputil.WriteJSON(rw, r, http.StatusOK, out)
	}
}
