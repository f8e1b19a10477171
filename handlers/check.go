package handlers

import (
	"net/http"

	"fknsrs.biz/p/ytmirror/internal/ctxdb"
	"fknsrs.biz/p/ytmirror/internal/httputil"
	"fknsrs.biz/p/ytmirror/internal/store"
)

type checkResponse struct {
	Counts             *store.Counts             `json:"counts"`
	DanglingReferences []store.DanglingReference `json:"dangling_references"`
	ItemCounts         []store.ItemCount         `json:"item_counts"`
}

// Check reports what is stored and which references do not resolve. Nothing
// here is treated as an error; dangling items are normal between syncs.
func Check(rw http.ResponseWriter, r *http.Request) {
	s := store.Wrap(ctxdb.GetDB(r.Context()))

	counts, err := s.Counts(r.Context())
	if err != nil {
		panic(err)
	}

	refs, err := s.DanglingReferences(r.Context())
	if err != nil {
		panic(err)
	}
	if refs == nil {
		refs = []store.DanglingReference{}
	}

	itemCounts, err := s.ItemCounts(r.Context())
	if err != nil {
		panic(err)
	}
	if itemCounts == nil {
		itemCounts = []store.ItemCount{}
	}

	httputil.WriteJSON(rw, r, http.StatusOK, checkResponse{
		Counts:             counts,
		DanglingReferences: refs,
		ItemCounts:         itemCounts,
	})
}
