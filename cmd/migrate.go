package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/monfs/internal/ingest"
	"github.com/agentic-research/monfs/internal/store"
)

func newMigrateCmd(env envFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Import object definition files (*.cfg) into the record store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := env(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()
			out := cmd.OutOrStdout()

			fail := func(err error) error {
				fmt.Fprintf(out, "Import of config files failed.  Reason: %s\n", err)
				return fmt.Errorf("%w: %w", errReported, err)
			}

			s, err := store.Open(cmd.Context(), e.cfg)
			if err != nil {
				return fail(err)
			}
			defer s.Close()

			p := &ingest.Pipeline{
				Store:   s,
				Logger:  e.log,
				Include: e.cfg.Include,
				OnFile: func(path string) {
					fmt.Fprintf(out, "Processing %s\n", path)
				},
			}
			sum, err := p.Run(cmd.Context(), e.cfg.Dir)
			if err != nil {
				return fail(err)
			}
			if err := sum.Err(); err != nil {
				if sum.Records > 0 {
					fmt.Fprintf(out, "Imported %d objects from %d files before failing (%d from files that failed partway).\n",
						sum.Records, sum.Files, sum.Partial)
				}
				return fail(err)
			}
			fmt.Fprintf(out, "Imported %d objects from %d files.\n", sum.Records, sum.Files)
			fmt.Fprintln(out, "Import succeeded.")
			return nil
		},
	}
	cmd.Flags().String("dir", "./", "The directory to import from")
	cmd.Flags().String("include", ingest.DefaultInclude, "Files to import, as a ** glob relative to --dir")
	return cmd
}
