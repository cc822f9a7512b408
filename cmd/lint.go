package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/monfs/internal/ingest"
	"github.com/agentic-research/monfs/internal/linter"
)

func newLintCmd() *cobra.Command {
	var include string
	cmd := &cobra.Command{
		Use:   "lint <file|dir>...",
		Short: "Check object definition files before migrating them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			var files []string
			for _, arg := range args {
				info, err := os.Stat(arg)
				if err != nil {
					return err
				}
				if !info.IsDir() {
					files = append(files, arg)
					continue
				}
				selected, err := (&ingest.Pipeline{Include: include}).Select(cmd.Context(), arg)
				if err != nil {
					return err
				}
				files = append(files, selected...)
			}

			failed := false
			for _, f := range files {
				src, err := os.ReadFile(f)
				if err != nil {
					return err
				}
				diags := linter.Lint(src)
				for _, d := range diags {
					fmt.Fprintf(out, "%s:%d: %s: %s\n", f, d.Line, d.Severity, d.Message)
				}
				failed = failed || linter.HasErrors(diags)
			}
			if failed {
				return fmt.Errorf("%w: lint errors", errReported)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&include, "include", ingest.DefaultInclude, "Files to check inside directories")
	return cmd
}
