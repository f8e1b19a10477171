package ctxtimer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/urfave/negroni/v2"

	"fknsrs.biz/p/ytmirror/internal/ctxclock"
	"fknsrs.biz/p/ytmirror/internal/ctxlogger"
)

// stepClock moves forward by step every time it is read.
type stepClock struct {
	m    sync.Mutex
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() (time.Time, error) {
	c.m.Lock()
	defer c.m.Unlock()

	t := c.t
	c.t = c.t.Add(c.step)

	return t, nil
}

func newStepClock(step time.Duration) *stepClock {
	return &stepClock{t: time.Date(2021, time.March, 4, 5, 6, 7, 0, time.UTC), step: step}
}

func TestMeasure(t *testing.T) {
	a := assert.New(t)

	ctx := ctxclock.WithClock(context.Background(), newStepClock(3*time.Second))

	boom := errors.New("boom")

	d, err := Measure(ctx, "work", func(ctx context.Context) error {
		a.NotNil(GetTimer(ctx))
		return boom
	})
	a.ErrorIs(err, boom)
	a.Equal(3*time.Second, d)

	d, err = Measure(ctx, "work", func(ctx context.Context) error { return nil })
	a.NoError(err)
	a.Equal(3*time.Second, d)
}

func TestElapsedWithoutMark(t *testing.T) {
	a := assert.New(t)

	_, err := ElapsedNow(context.Background(), "nothing")
	a.Error(err)

	_, err = ElapsedNow(WithTimer(context.Background(), nil), "nothing")
	a.ErrorIs(err, ErrNoTimer)
}

func TestMiddleware(t *testing.T) {
	a := assert.New(t)

	logger, hook := test.NewNullLogger()

	n := negroni.New()
	n.UseFunc(ctxlogger.Register(logger))
	n.UseFunc(ctxclock.Register(newStepClock(250 * time.Millisecond)))
	n.UseFunc(Register(nil))
	n.UseFunc(AddLoggerHooks())
	n.UseFunc(ctxlogger.Log())
	n.UseHandler(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusNoContent)
	}))

	n.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if e := hook.LastEntry(); a.NotNil(e) {
		a.Equal("http request finished", e.Message)
		a.Equal(250*time.Millisecond, e.Data["http.duration"])
		a.Equal(http.StatusNoContent, e.Data["http.status_code"])
	}
}
