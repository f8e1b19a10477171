package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/urfave/negroni/v2"

	"fknsrs.biz/p/ytmirror/handlers"
	"fknsrs.biz/p/ytmirror/internal/catalog"
	"fknsrs.biz/p/ytmirror/internal/config"
	"fknsrs.biz/p/ytmirror/internal/ctxclock"
	"fknsrs.biz/p/ytmirror/internal/ctxdb"
	"fknsrs.biz/p/ytmirror/internal/ctxhttpclient"
	"fknsrs.biz/p/ytmirror/internal/ctxlogger"
	"fknsrs.biz/p/ytmirror/internal/ctxtimer"
)

const shutdownTimeout = 10 * time.Second

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the cache as a read-mostly JSON API",
		Long: `Serve the cache over HTTP on application_addr:

  GET  /playlists       list playlists (q, offset, limit, $filter, $orderby, $skip, $top)
  GET  /playlists/{id}  one playlist with its items in position order
  GET  /videos          list videos, with the same options
  GET  /videos/{id}     one video
  GET  /check           counts, dangling references and item counts
  POST /ingest          add videos from form fields "text" and "ids"

POST /ingest is only served when credentials are configured or
youtube_lookup is direct.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, rt *Runtime) error {
				var lookup catalog.VideoLookup
				if rt.Config.HasCredentials() || rt.Config.YouTubeLookup == config.RemoteDirect {
					l, err := rootOpts.NewVideoLookup(ctx, rt.Config)
					if err != nil {
						return fmt.Errorf("cli.serve: %w", err)
					}
					lookup = l
				}

				return serve(ctx, rt, NewHandler(ctx, rt, lookup))
			})
		},
	}

	return cmd
}

// NewHandler is the API with its middleware, built from rt.
func NewHandler(ctx context.Context, rt *Runtime, lookup catalog.VideoLookup) http.Handler {
	m := mux.NewRouter()
	handlers.Register(m, lookup)

	n := negroni.New()
	n.Use(negroni.NewRecovery())
	n.UseFunc(ctxlogger.Register(rt.Logger))
	n.UseFunc(ctxtimer.Register(nil))
	n.UseFunc(ctxclock.Register(ctxclock.GetClock(ctx)))
	n.UseFunc(ctxdb.Register(rt.DB))
	n.UseFunc(ctxhttpclient.Register(rt.HTTP))
	n.UseFunc(ctxtimer.AddLoggerHooks())
	n.UseFunc(ctxclock.AddLoggerHooks())
	n.UseFunc(ctxlogger.Log())
	n.UseHandler(m)

	return n
}

func serve(ctx context.Context, rt *Runtime, h http.Handler) error {
	l := rt.Logger.WithFields(logrus.Fields{"http.addr": rt.Config.ApplicationAddr})

	s := &http.Server{
		Addr:        rt.Config.ApplicationAddr,
		Handler:     h,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errs := make(chan error, 1)
	go func() {
		l.Info("starting server")
		errs <- s.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("cli.serve: %w", err)
	case <-ctx.Done():
		l.Info("stopping server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("cli.serve: %w", err)
		}

		return nil
	}
}
