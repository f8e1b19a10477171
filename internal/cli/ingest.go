package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fknsrs.biz/p/ytmirror/internal/ingest"
	"fknsrs.biz/p/ytmirror/internal/report"
)

func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest file1.txt [file2.txt ...]",
		Short: "Add the videos linked from text files to the cache",
		Long: `Scan each file for YouTube watch links, bare or inside markdown links, and
fetch every linked video the cache does not have yet. Files that cannot be
read and videos that cannot be found are reported and skipped.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Usage: %s ingest file1.txt [file2.txt ...]\n", cmd.Root().Name())
				return &ExitError{Code: 1, Message: "no files given"}
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.run(cmd, func(ctx context.Context, rt *Runtime) error {
				lookup, err := rootOpts.NewVideoLookup(ctx, rt.Config)
				if err != nil {
					return fmt.Errorf("cli.ingest: %w", err)
				}

				res, err := ingest.New(rt.Store, lookup).IngestFiles(ctx, args)
				if res != nil {
					report.Added(cmd.OutOrStdout(), res.Added)
					report.Diagnostics(cmd.OutOrStdout(), res.Diagnostics)
				}
				if err != nil {
					return fmt.Errorf("cli.ingest: %w", err)
				}

				return nil
			})
		},
	}

	return cmd
}
