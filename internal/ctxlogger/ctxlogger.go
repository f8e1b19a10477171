package ctxlogger

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// context registration

var loggerKey int

func WithLogger(ctx context.Context, l logrus.FieldLogger) context.Context {
	return context.WithValue(ctx, &loggerKey, l)
}

func GetLogger(ctx context.Context) logrus.FieldLogger {
	if v := ctx.Value(&loggerKey); v != nil {
		return v.(logrus.FieldLogger)
	}

	return logrus.StandardLogger()
}

// WithFields returns a context whose logger carries the extra fields, along
// with that logger.
func WithFields(ctx context.Context, fields logrus.Fields) (context.Context, logrus.FieldLogger) {
	l := GetLogger(ctx).WithFields(fields)
	return WithLogger(ctx, l), l
}

// request hooks

// HookFunc adds fields to the request's log entry. Before hooks run when the
// request arrives, after hooks once the response has been written.
type HookFunc func(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger

type hook struct {
	before, after HookFunc
}

type hookList struct {
	a []hook
}

func (h *hookList) run(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger, after bool) logrus.FieldLogger {
	for _, e := range h.a {
		fn := e.before
		if after {
			fn = e.after
		}

		if fn != nil {
			l = fn(rw, r, l)
		}
	}

	return l
}

var hookListKey int

func getHookList(ctx context.Context) *hookList {
	if v := ctx.Value(&hookListKey); v != nil {
		return v.(*hookList)
	}

	return nil
}

// AddHookPair registers hooks on the request's list, creating the list if
// Register has not run.
func AddHookPair(ctx context.Context, beforeFunc, afterFunc HookFunc) context.Context {
	hooks := getHookList(ctx)
	if hooks == nil {
		hooks = &hookList{}
		ctx = context.WithValue(ctx, &hookListKey, hooks)
	}

	hooks.a = append(hooks.a, hook{before: beforeFunc, after: afterFunc})

	return ctx
}

// middleware

const RequestIDHeader = "X-Request-Id"

// Register gives every request its own logger, tagged with a request id that
// is also sent back in the X-Request-Id header.
func Register(l logrus.FieldLogger) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		id := uuid.NewString()
		rw.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), &hookListKey, &hookList{})
		ctx = WithLogger(ctx, l.WithField("http.request_id", id))

		next(rw, r.WithContext(ctx))
	}
}

// Log writes one entry when a request starts and one when it finishes. The
// finishing entry is a warning for 4xx responses and an error for 5xx.
func Log() func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		hooks := getHookList(r.Context())

		var l logrus.FieldLogger = GetLogger(r.Context()).WithFields(logrus.Fields{
			"http.method":     r.Method,
			"http.path":       r.URL.String(),
			"http.host":       r.Host,
			"http.referer":    r.Header.Get("referer"),
			"http.user_agent": r.Header.Get("user-agent"),
		})

		if hooks != nil {
			l = hooks.run(rw, r, l, false)
		}

		defer func() {
			status := 0
			if nrw, ok := rw.(interface {
				Status() int
				Size() int
			}); ok {
				status = nrw.Status()
				l = l.WithFields(logrus.Fields{
					"http.status_code":   status,
					"http.response_size": nrw.Size(),
				})
			}

			if hooks != nil {
				l = hooks.run(rw, r, l, true)
			}

			switch {
			case status >= 500:
				l.Error("http request finished")
			case status >= 400:
				l.Warn("http request finished")
			default:
				l.Info("http request finished")
			}
		}()

		l.Debug("http request started")

		next(rw, r)
	}
}
