package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"fknsrs.biz/p/ytmirror/internal/catalog"
	"fknsrs.biz/p/ytmirror/internal/config"
	"fknsrs.biz/p/ytmirror/internal/configreader"
	"fknsrs.biz/p/ytmirror/internal/ctxhttpclient"
	"fknsrs.biz/p/ytmirror/internal/ytapi"
	"fknsrs.biz/p/ytmirror/internal/ytdirect"
)

// DefaultConfig is what a run starts from before files, flags and the
// environment are applied.
func DefaultConfig() config.Config {
	return config.Config{
		LogLevel:               logrus.InfoLevel,
		LogDebugLevels:         config.LevelList{logrus.DebugLevel, logrus.TraceLevel},
		LogQueries:             config.LogQueries{},
		ApplicationAddr:        ":8080",
		ApplicationDatabase:    "youtube_data.db",
		ApplicationCacheMaxAge: config.Duration(0),
		YouTubeLookup:          config.RemoteAPI,
		SyncVideoLookup:        config.LookupItem,
	}
}

// RootOptions is shared by every command.
type RootOptions struct {
	Program     string
	Config      config.Config
	Environment []string

	// NewCatalog and NewVideoLookup build the remote side. Tests replace
	// them; the defaults talk to YouTube.
	NewCatalog     func(ctx context.Context, cfg config.Config) (catalog.Catalog, error)
	NewVideoLookup func(ctx context.Context, cfg config.Config) (catalog.VideoLookup, error)
}

func NewRootOptions(program string, environment []string) *RootOptions {
	cfg := DefaultConfig()

	for _, configPath := range []string{"config.toml", "config.yaml", "config.yml"} {
		if st, err := os.Stat(configPath); err == nil && st != nil && !st.IsDir() {
			cfg.Config = configPath
		}
	}

	return &RootOptions{
		Program:        program,
		Config:         cfg,
		Environment:    environment,
		NewCatalog:     newCatalog,
		NewVideoLookup: newVideoLookup,
	}
}

func newCatalog(ctx context.Context, cfg config.Config) (catalog.Catalog, error) {
	c, err := ytapi.New(ctx, ytapi.Options{
		APIKey:            cfg.YouTubeAPIKey,
		TokenFile:         cfg.YouTubeTokenFile,
		ChannelID:         cfg.YouTubeChannelID,
		RequestsPerSecond: cfg.YouTubeRequestsPerSecond,
		Transport:         ctxhttpclient.GetTransport(ctx),
	})
	if err != nil {
		return nil, fmt.Errorf("cli.newCatalog: %w", err)
	}

	return c, nil
}

func newVideoLookup(ctx context.Context, cfg config.Config) (catalog.VideoLookup, error) {
	if cfg.YouTubeLookup == config.RemoteDirect {
		return ytdirect.New(), nil
	}

	return newCatalog(ctx, cfg)
}

// ExitError carries the process exit status for failures that have already
// been explained to the user.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

// ExitCode picks the status for err: the code of an ExitError, 1 otherwise.
func ExitCode(err error) int {
	var e *ExitError
	if errors.As(err, &e) {
		return e.Code
	}

	return 1
}

func NewRootCommand(opts *RootOptions) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:           opts.Program,
		Short:         "Mirror YouTube playlists and videos into a local SQLite cache",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.readConfig(cmd)
		},
	}

	flagSet, err := configreader.NewFlagSet(opts.Program, &opts.Config)
	if err != nil {
		return nil, fmt.Errorf("cli.NewRootCommand: %w", err)
	}

	cmd.PersistentFlags().AddGoFlagSet(flagSet)

	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd, nil
}

// readConfig layers the config file, then flags, then the environment over
// the defaults. Cobra has already written the flags into opts.Config, but a
// config file named by those flags would overwrite them, so the changed ones
// are handed to configreader again to be applied after the file.
func (opts *RootOptions) readConfig(cmd *cobra.Command) error {
	var args []string
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if cmd.Root().PersistentFlags().Lookup(f.Name) == nil {
			return
		}

		args = append(args, "-"+f.Name+"="+f.Value.String())
	})

	if err := configreader.Read(opts.Program, args, opts.Environment, &opts.Config); err != nil {
		return fmt.Errorf("cli.readConfig: %w", err)
	}

	if err := opts.Config.Validate(); err != nil {
		return fmt.Errorf("cli.readConfig: %w", err)
	}

	return nil
}
