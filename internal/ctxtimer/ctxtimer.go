package ctxtimer

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytmirror/internal/ctxclock"
	"fknsrs.biz/p/ytmirror/internal/ctxlogger"
)

var (
	ErrNoTimer = fmt.Errorf("ctxtimer.ErrNoTimer: no timer found with this name")
)

// Timer remembers named start times. Times come from the context's clock so
// that tests can use a static one.
type Timer interface {
	Mark(name string, t time.Time)
	Elapsed(name string, t time.Time) (time.Duration, error)
}

// context registration

var timerKey int

func WithTimer(ctx context.Context, t Timer) context.Context {
	if t == nil {
		t = NewTimer()
	}

	return context.WithValue(ctx, &timerKey, t)
}

func GetTimer(ctx context.Context) Timer {
	if v := ctx.Value(&timerKey); v != nil {
		return v.(Timer)
	}

	return nil
}

func MarkNow(ctx context.Context, name string) error {
	t := GetTimer(ctx)
	if t == nil {
		return fmt.Errorf("ctxtimer.MarkNow: no timer in context")
	}

	t.Mark(name, ctxclock.NowOrReal(ctx))

	return nil
}

func ElapsedNow(ctx context.Context, name string) (time.Duration, error) {
	t := GetTimer(ctx)
	if t == nil {
		return 0, fmt.Errorf("ctxtimer.ElapsedNow: no timer in context")
	}

	d, err := t.Elapsed(name, ctxclock.NowOrReal(ctx))
	if err != nil {
		return 0, fmt.Errorf("ctxtimer.ElapsedNow: %w", err)
	}

	return d, nil
}

// Measure runs fn and returns how long it took by the context's clock. A
// context without a timer gets a fresh one.
func Measure(ctx context.Context, name string, fn func(ctx context.Context) error) (time.Duration, error) {
	if GetTimer(ctx) == nil {
		ctx = WithTimer(ctx, nil)
	}

	if err := MarkNow(ctx, name); err != nil {
		return 0, err
	}

	fnErr := fn(ctx)

	d, err := ElapsedNow(ctx, name)
	if err != nil {
		return 0, err
	}

	return d, fnErr
}

// middleware

const (
	timerNameOuter = "ctxtimer.middleware"
)

// Register gives each request c, or a fresh timer of its own if c is nil.
func Register(c Timer) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithTimer(r.Context(), c)))
	}
}

// AddLoggerHooks adds http.duration to the request's finishing log line.
func AddLoggerHooks() func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(ctxlogger.AddHookPair(
			r.Context(),
			func(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger {
				if err := MarkNow(r.Context(), timerNameOuter); err != nil {
					l.WithError(err).Warning("ctxtimer: could not mark request start")
				}

				return l
			},
			func(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger {
				elapsed, err := ElapsedNow(r.Context(), timerNameOuter)
				if err != nil {
					l.WithError(err).Warning("ctxtimer: could not get elapsed time")
					return l
				}

				return l.WithFields(logrus.Fields{"http.duration": elapsed})
			},
		)))
	}
}

type timer struct {
	rw    sync.RWMutex
	start map[string]time.Time
}

func NewTimer() Timer {
	return &timer{start: make(map[string]time.Time)}
}

func (t *timer) Mark(name string, tt time.Time) {
	t.rw.Lock()
	defer t.rw.Unlock()

	t.start[name] = tt
}

func (t *timer) Elapsed(name string, tt time.Time) (time.Duration, error) {
	t.rw.RLock()
	defer t.rw.RUnlock()

	start, ok := t.start[name]
	if !ok {
		return 0, ErrNoTimer
	}

	return tt.Sub(start), nil
}
