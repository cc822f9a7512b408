package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/monfs/internal/query"
)

func newFindCmd(env envFunc) *cobra.Command {
	var preload string
	cmd := &cobra.Command{
		Use:   "find <jsonpath>",
		Short: "Query stored objects with a JSONPath expression",
		Example: `  monfs find "$[?(@._monfs.type == 'host')].host_name"
  monfs find "$[?(@.register == '0')]"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := env(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()

			s, err := e.openStore(cmd.Context(), preload)
			if err != nil {
				return err
			}
			defer s.Close()

			matches, err := query.Records(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), query.JSON(matches))
			return nil
		},
	}
	cmd.Flags().StringVar(&preload, "preload", "", "Ingest this directory into the store before querying")
	return cmd
}
