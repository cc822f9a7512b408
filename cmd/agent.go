package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/monfs/internal/mcpserver"
	"github.com/agentic-research/monfs/internal/vfs"
)

func newAgentCmd(env envFunc) *cobra.Command {
	var preload string
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Run an MCP server on stdio exposing read-only monfs tools",
		Long: `agent serves the Model Context Protocol on stdin/stdout with three tools:
list_directory, read_object and find_objects. Logs go to stderr.`,
		Args: cobra.NoArgs,
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

			tools := mcpserver.NewTools(vfs.New(s, e.log), s, e.log)
			return mcpserver.ServeStdio(mcpserver.New(tools, Version))
		},
	}
	cmd.Flags().StringVar(&preload, "preload", "", "Ingest this directory into the store before serving")
	return cmd
}
