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

func Videos(rw http.ResponseWriter, r *http.Request) {
	lq, err := parseListQuery(r, models.VideoTable, sb.OrderAsc(models.VideoTable.C("ID")))
	if err != nil {
		httputil.Error(rw, r, err)
		return
	}

	videos := []models.Video{}
	if err := qsorm.FindWhere(
		r.Context(),
		ctxdb.GetDB(r.Context()),
		&videos,
		lq.condition,
		lq.orders,
		lq.page,
	); err != nil {
		panic(err)
	}

	httputil.WriteJSON(rw, r, http.StatusOK, videos)
}

func Video(rw http.ResponseWriter, r *http.Request) {
	video, ok, err := store.Wrap(ctxdb.GetDB(r.Context())).FindVideo(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		panic(err)
	}
	if !ok {
		httputil.NotFound(rw, r)
		return
	}

	httputil.WriteJSON(rw, r, http.StatusOK, video)
}
