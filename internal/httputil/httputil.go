package httputil

import (
	"encoding/json"
	"net/http"

	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytmirror/internal/ctxlogger"
	"fknsrs.biz/p/ytmirror/internal/diag"
)

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func WriteJSON(rw http.ResponseWriter, r *http.Request, status int, v interface{}) {
	rw.Header().Set("content-type", "application/json; charset=utf-8")
	rw.WriteHeader(status)

	enc := json.NewEncoder(rw)
	enc.SetIndent("", "  ")

	// the status line is already out, so all that's left is to say so
	if err := enc.Encode(v); err != nil {
		ctxlogger.GetLogger(r.Context()).WithError(err).Warn("httputil.WriteJSON: could not encode response")
	}
}

func NotFound(rw http.ResponseWriter, r *http.Request) {
	WriteJSON(rw, r, http.StatusNotFound, errorBody{Error: "Not found", Kind: string(diag.NotFound)})
}

// Error answers with the status matching err's diagnostic kind. Errors that
// carry no kind are answered with a 500 and logged.
func Error(rw http.ResponseWriter, r *http.Request, err error) {
	kind, ok := diag.KindOf(err)
	if !ok {
		ctxlogger.GetLogger(r.Context()).WithError(err).Error("httputil.Error: unclassified failure")
		WriteJSON(rw, r, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
		return
	}

	status := StatusFor(kind)

	ctxlogger.GetLogger(r.Context()).WithFields(logrus.Fields{
		"http.error_kind": string(kind),
	}).WithError(err).Info("httputil.Error: request failed")

	WriteJSON(rw, r, status, errorBody{Error: err.Error(), Kind: string(kind)})
}

func StatusFor(kind diag.Kind) int {
	switch kind {
	case diag.MalformedInput:
		return http.StatusBadRequest
	case diag.NotFound:
		return http.StatusNotFound
	case diag.TransportFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
