package cli

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fknsrs.biz/p/sorm"
	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"fknsrs.biz/p/ytmirror/internal/config"
	"fknsrs.biz/p/ytmirror/internal/ctxclock"
	"fknsrs.biz/p/ytmirror/internal/ctxconfig"
	"fknsrs.biz/p/ytmirror/internal/ctxdb"
	"fknsrs.biz/p/ytmirror/internal/ctxhttpclient"
	"fknsrs.biz/p/ytmirror/internal/ctxlogger"
	"fknsrs.biz/p/ytmirror/internal/ctxtimer"
	"fknsrs.biz/p/ytmirror/internal/httpcache"
	"fknsrs.biz/p/ytmirror/internal/logrusstackhook"
	"fknsrs.biz/p/ytmirror/internal/sqlitelogger"
	"fknsrs.biz/p/ytmirror/internal/store"
)

func init() {
	sorm.SetParameterPrefix("?")
}

const loggedDriverName = "sqlite3:logged"

var registerLoggedDriver sync.Once

// queryFilter is swapped per run, since the driver can only be registered
// once per process.
var queryFilter = &sqlitelogger.BasicFilter{
	IgnorePackageStackFrames: []string{
		// standard library
		"database/sql",
		"net/http",
		"runtime",
		// libraries
		"fknsrs.biz/p/sorm",
		"github.com/gorilla/mux",
		"github.com/shogo82148/go-sql-proxy",
		"github.com/spf13/cobra",
		"github.com/urfave/negroni/v2",
		// middleware
		"fknsrs.biz/p/ytmirror/internal/ctxclock",
		"fknsrs.biz/p/ytmirror/internal/ctxdb",
		"fknsrs.biz/p/ytmirror/internal/ctxhttpclient",
		"fknsrs.biz/p/ytmirror/internal/ctxlogger",
		"fknsrs.biz/p/ytmirror/internal/ctxtimer",
		"fknsrs.biz/p/ytmirror/internal/sqlitelogger",
	},
}

type sormLogger struct {
	logger logrus.FieldLogger
}

func queryFields(query string, args []interface{}) logrus.Fields {
	fields := logrus.Fields{
		"db.query":      query,
		"db.args.count": len(args),
	}

	for i, e := range args {
		fields[fmt.Sprintf("db.args.%d", i)] = e
	}

	return fields
}

func (s *sormLogger) LogQuery(query string, args []interface{}) {
	s.logger.WithFields(queryFields(query, args)).Debug("sorm query start")
}

func (s *sormLogger) LogQueryAfter(query string, args []interface{}, duration time.Duration, err error) {
	fields := queryFields(query, args)
	fields["db.duration"] = duration
	fields["db.error"] = err

	s.logger.WithFields(fields).Debug("sorm query finish")
}

// Runtime is everything a command needs, opened from the config.
type Runtime struct {
	Config config.Config
	Logger logrus.FieldLogger
	DB     *sql.DB
	Store  *store.Store
	HTTP   *http.Client

	closers []func() error
}

func (rt *Runtime) Close() error {
	var firstErr error

	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func newLogger(cmd *cobra.Command, cfg config.Config) logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetLevel(cfg.LogLevel)

	if len(cfg.LogDebugLevels) > 0 {
		logger.AddHook(logrusstackhook.NewStackHook(cfg.LogDebugLevels, nil))
	}

	return logger.WithFields(logrus.Fields{
		"run.id":      uuid.NewString(),
		"run.command": cmd.Name(),
	})
}

func openDB(cfg config.Config) (*sql.DB, error) {
	driverName := "sqlite3"

	if !cfg.LogQueries.IsZero() {
		registerLoggedDriver.Do(func() {
			sql.Register(loggedDriverName, sqlitelogger.New(loggedDriverName, &sqlite3.SQLiteDriver{}, queryFilter))
		})

		queryFilter.LogSlowerThan = cfg.LogQueries.SlowerThan
		driverName = loggedDriverName
	}

	db, err := sql.Open(driverName, cfg.ApplicationDatabase)
	if err != nil {
		return nil, fmt.Errorf("cli.openDB: %w", err)
	}

	// one writer; sqlite locks the file anyway
	db.SetMaxOpenConns(1)

	return db, nil
}

// open builds the runtime for one command and returns a context carrying it.
func (opts *RootOptions) open(cmd *cobra.Command) (context.Context, *Runtime, error) {
	cfg := opts.Config

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	rt := &Runtime{Config: cfg, Logger: newLogger(cmd, cfg)}

	ctx = ctxconfig.WithConfig(ctx, cfg)
	ctx = ctxclock.WithClock(ctx, ctxclock.NewRealClock())
	ctx = ctxlogger.WithLogger(ctx, rt.Logger)
	ctx = ctxtimer.WithTimer(ctx, nil)

	if cfg.LogSORM {
		sorm.SetQueryLogger(&sormLogger{rt.Logger})
	}

	rt.Logger.WithFields(logrus.Fields{
		"config.config":                 cfg.Config,
		"config.log_level":              cfg.LogLevel,
		"config.log_queries":            cfg.LogQueries,
		"config.application_database":   cfg.ApplicationDatabase,
		"config.application_cache_path": cfg.ApplicationCachePath,
		"config.youtube_lookup":         cfg.YouTubeLookup,
		"config.sync_video_lookup":      cfg.SyncVideoLookup,
	}).Debug("program starting")

	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("cli.open: %w", err)
	}
	rt.DB = db
	rt.closers = append(rt.closers, db.Close)

	s, err := store.New(ctx, db)
	if err != nil {
		rt.Close()
		return nil, nil, fmt.Errorf("cli.open: %w", err)
	}
	rt.Store = s

	rt.HTTP = &http.Client{}
	if cfg.ApplicationCachePath != "" {
		storage, err := httpcache.Open(cfg.ApplicationCachePath)
		if err != nil {
			rt.Close()
			return nil, nil, fmt.Errorf("cli.open: %w", err)
		}
		rt.closers = append(rt.closers, storage.Close)

		rt.HTTP.Transport = httpcache.NewTransport(nil, storage, time.Duration(cfg.ApplicationCacheMaxAge))
	}

	ctx = ctxdb.WithDB(ctx, db)
	ctx = ctxhttpclient.WithHTTPClient(ctx, rt.HTTP)

	return ctx, rt, nil
}

// run opens the runtime, times fn, and closes everything afterwards.
func (opts *RootOptions) run(cmd *cobra.Command, fn func(ctx context.Context, rt *Runtime) error) error {
	ctx, rt, err := opts.open(cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	d, err := ctxtimer.Measure(ctx, "command", func(ctx context.Context) error {
		return fn(ctx, rt)
	})

	l := rt.Logger.WithField("run.duration", d)
	if err != nil {
		l.WithError(err).Debug("command failed")
		return err
	}

	l.Debug("command finished")

	return nil
}
