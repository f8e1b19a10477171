package ctxclock

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytmirror/internal/ctxlogger"
)

// context registration

var clockKey int

func WithClock(ctx context.Context, c Clock) context.Context {
	if c == nil {
		c = NewRealClock()
	}

	return context.WithValue(ctx, &clockKey, c)
}

func GetClock(ctx context.Context) Clock {
	if v := ctx.Value(&clockKey); v != nil {
		return v.(Clock)
	}

	return nil
}

func Now(ctx context.Context) (time.Time, error) {
	if c := GetClock(ctx); c != nil {
		return c.Now()
	}

	return time.Time{}, fmt.Errorf("ctxclock.Now: %w", ErrNoClock)
}

// NowOrReal falls back to the wall clock when ctx has no usable clock.
func NowOrReal(ctx context.Context) time.Time {
	if t, err := Now(ctx); err == nil {
		return t
	}

	return time.Now()
}

// middleware

func Register(c Clock) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithClock(r.Context(), c)))
	}
}

func AddLoggerHooks() func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(ctxlogger.AddHookPair(
			r.Context(),
			func(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger {
				if c := GetClock(r.Context()); c != nil {
					now, err := c.Now()
					if err != nil {
						l.WithError(err).Error("clock middleware could not get start time")
					} else {
						l = l.WithFields(logrus.Fields{
							"http.request_start": now.Format(time.RFC3339),
						})
					}
				} else {
					l.Warning("clock middleware could not find clock in context to get start time")
				}

				return l
			},
			func(rw http.ResponseWriter, r *http.Request, l logrus.FieldLogger) logrus.FieldLogger {
				if c := GetClock(r.Context()); c != nil {
					now, err := c.Now()
					if err != nil {
						l.WithError(err).Error("clock middleware could not get end time")
					} else {
						l = l.WithFields(logrus.Fields{
							"http.response_end": now.Format(time.RFC3339),
						})
					}
				} else {
					l.Warning("clock middleware could not find clock in context to get end time")
				}

				return l
			},
		)))
	}
}

// public interface

var (
	ErrNoClock = fmt.Errorf("ctxclock.ErrNoClock: no clock found in context")
)

type Clock interface {
	Now() (time.Time, error)
}

// real clock

type realClock struct{}

func NewRealClock() Clock {
	return &realClock{}
}

func (realClock) Now() (time.Time, error) {
	return time.Now(), nil
}

// static clock

type staticClock struct{ t time.Time }

func NewStaticClock(t time.Time) Clock {
	return &staticClock{t: t}
}

func (c *staticClock) Now() (time.Time, error) {
	return c.t, nil
}
