package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fknsrs.biz/p/ytmirror/internal/report"
	"fknsrs.biz/p/ytmirror/internal/ytsync"
	"fknsrs.biz/p/ytmirror/internal/ytutil"
)

type SyncOptions struct {
	*RootOptions
	Playlists []string
	Report    bool
}

func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch playlists, their items and their videos into the cache",
		Long: `Fetch every playlist the configured account or channel owns, then each
playlist's items and the videos they refer to. Records are overwritten in
place, so running sync twice leaves the cache as it was after the first run.

With --playlist, only the named playlists' items are fetched and the playlist
listing is skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, rt *Runtime) error {
				return runSync(ctx, cmd, opts, rt)
			})
		},
	}

	cmd.Flags().StringSliceVar(&opts.Playlists, "playlist", nil, "only sync the items of these playlists (ids or playlist urls)")
	cmd.Flags().BoolVar(&opts.Report, "report", false, "print the playlist report after syncing")

	return cmd
}

func runSync(ctx context.Context, cmd *cobra.Command, opts *SyncOptions, rt *Runtime) error {
	if len(opts.Playlists) == 0 && !rt.Config.CanListPlaylists() {
		return fmt.Errorf("cli.runSync: listing playlists needs youtube_token_file, or youtube_api_key with youtube_channel_id")
	}

	c, err := opts.NewCatalog(ctx, rt.Config)
	if err != nil {
		return fmt.Errorf("cli.runSync: %w", err)
	}

	s := ytsync.New(rt.Store, c)
	s.Lookup = rt.Config.SyncVideoLookup

	var sum *ytsync.Summary
	if len(opts.Playlists) > 0 {
		ids := make([]string, len(opts.Playlists))
		for i, e := range opts.Playlists {
			id, err := ytutil.ExtractPlaylistID(e)
			if err != nil {
				return fmt.Errorf("cli.runSync: %w", err)
			}
			ids[i] = id
		}

		sum = s.SyncItemsOf(ctx, ids)
	} else {
		sum, err = s.SyncAll(ctx)
		if err != nil {
			if sum != nil {
				report.Summary(cmd.OutOrStdout(), sum)
			}

			return fmt.Errorf("cli.runSync: %w", err)
		}
	}

	report.Summary(cmd.OutOrStdout(), sum)

	if opts.Report {
		if err := report.Playlists(ctx, cmd.OutOrStdout(), rt.Store, report.Options{}); err != nil {
			return fmt.Errorf("cli.runSync: %w", err)
		}
	}

	if len(sum.Failures) > 0 {
		return &ExitError{Code: 2, Message: fmt.Sprintf("%d playlists stopped early", len(sum.Failures))}
	}

	return nil
}
