// Package ingest adds videos referenced from free text to the store,
// fetching only those it does not already have.
package ingest

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytmirror/internal/catalog"
	"fknsrs.biz/p/ytmirror/internal/catchpanic"
	"fknsrs.biz/p/ytmirror/internal/ctxlogger"
	"fknsrs.biz/p/ytmirror/internal/diag"
	"fknsrs.biz/p/ytmirror/internal/normalize"
	"fknsrs.biz/p/ytmirror/internal/store"
	"fknsrs.biz/p/ytmirror/internal/ytutil"
	"fknsrs.biz/p/ytmirror/models"
)

type Reconciler struct {
	Store  *store.Store
	Lookup catalog.VideoLookup
}

func New(s *store.Store, l catalog.VideoLookup) *Reconciler {
	return &Reconciler{Store: s, Lookup: l}
}

// Result lists the videos added by one call, in the order they were added.
// Ids that were already cached appear nowhere.
type Result struct {
	Added       []models.Video
	Cached      int
	Diagnostics diag.List
}

// Reconcile fetches and stores every id the store does not have. Remote
// problems with one id are diagnostics; a store failure stops the batch.
func (r *Reconciler) Reconcile(ctx context.Context, ids ytutil.IDSet) (*Result, error) {
	var res Result

	if err := r.reconcile(ctx, ids, make(ytutil.IDSet), &res); err != nil {
		return &res, err
	}

	return &res, nil
}

// reconcile appends to res as it goes, so whatever was stored before a
// failure or panic is still accounted for.
func (r *Reconciler) reconcile(ctx context.Context, ids ytutil.IDSet, attempted ytutil.IDSet, res *Result) error {
	l := ctxlogger.GetLogger(ctx)

	for _, id := range ids.Sorted() {
		if attempted.Has(id) {
			continue
		}
		attempted.Add(id)

		_, found, err := r.Store.FindVideo(ctx, id)
		if err != nil {
			return fmt.Errorf("ingest.Reconcile: %w", err)
		}
		if found {
			res.Cached++
			continue
		}

		raws, err := r.Lookup.LookupVideos(ctx, []string{id})
		if err != nil {
			res.Diagnostics.Add(diag.From(id, err, diag.TransportFailure))
			continue
		}
		if len(raws) == 0 {
			res.Diagnostics.Add(diag.New(diag.NotFound, id, nil))
			continue
		}

		v, err := normalize.Video(raws[0])
		if err != nil {
			res.Diagnostics.Add(diag.From(id, err, diag.MalformedInput))
			continue
		}
		if v.ID != id {
			res.Diagnostics.Add(diag.New(diag.NotFound, id, fmt.Errorf("lookup returned video %s", v.ID)))
			continue
		}

		if err := r.Store.UpsertVideo(ctx, v); err != nil {
			return fmt.Errorf("ingest.Reconcile: %w", err)
		}

		l.WithFields(logrus.Fields{
			"ingest.video_id": v.ID,
			"ingest.title":    v.Title,
		}).Debug("added video")

		res.Added = append(res.Added, *v)
	}

	return nil
}

// IngestFiles reconciles the ids found in each file in turn. An id is looked
// up at most once per call, whichever files it appears in and whether or not
// the lookup worked.
func (r *Reconciler) IngestFiles(ctx context.Context, paths []string) (*Result, error) {
	var res Result

	attempted := make(ytutil.IDSet)

	for _, path := range paths {
		ctx, l := ctxlogger.WithFields(ctx, logrus.Fields{"ingest.path": path})

		if err := catchpanic.CatchErr0(func() error {
			ids, err := ytutil.ExtractVideoIDsFromFile(path)
			if err != nil {
				res.Diagnostics.Add(diag.From(path, err, diag.IOFailure))
			}

			l.WithField("ingest.ids", len(ids)).Debug("extracted video ids")

			return r.reconcile(ctx, ids, attempted, &res)
		}); err != nil {
			if !catchpanic.IsPanic(err) {
				return &res, fmt.Errorf("ingest.IngestFiles: %s: %w", path, err)
			}

			res.Diagnostics.Add(diag.New(diag.IOFailure, path, err))
		}
	}

	res.Diagnostics.Log(ctxlogger.GetLogger(ctx))

	return &res, nil
}

// IngestText does the same as IngestFiles for a body of text already in
// memory.
func (r *Reconciler) IngestText(ctx context.Context, rd io.Reader) (*Result, error) {
	ids, err := ytutil.ExtractVideoIDs(rd)
	if err != nil {
		return nil, fmt.Errorf("ingest.IngestText: %w", err)
	}

	res, err := r.Reconcile(ctx, ids)
	if err != nil {
		return res, fmt.Errorf("ingest.IngestText: %w", err)
	}

	res.Diagnostics.Log(ctxlogger.GetLogger(ctx))

	return res, nil
}
