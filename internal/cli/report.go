package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fknsrs.biz/p/ytmirror/internal/report"
)

func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	var opts report.Options

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print every cached playlist with its videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, rt *Runtime) error {
				if err := report.Playlists(ctx, cmd.OutOrStdout(), rt.Store, opts); err != nil {
					return fmt.Errorf("cli.report: %w", err)
				}

				return nil
			})
		},
	}

	cmd.Flags().IntVar(&opts.DescriptionWidth, "description-width", 0, "cut playlist descriptions to this many characters (0 prints them whole)")

	return cmd
}

func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report items whose playlist or video is missing, and item count differences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, rt *Runtime) error {
				refs, err := rt.Store.DanglingReferences(ctx)
				if err != nil {
					return fmt.Errorf("cli.check: %w", err)
				}

				counts, err := rt.Store.ItemCounts(ctx)
				if err != nil {
					return fmt.Errorf("cli.check: %w", err)
				}

				report.Check(cmd.OutOrStdout(), refs, counts)

				if strict && len(refs) > 0 {
					return &ExitError{Code: 3, Message: fmt.Sprintf("%d dangling references", len(refs))}
				}

				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "exit with status 3 when any reference dangles")

	return cmd
}
