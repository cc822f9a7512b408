package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/agentic-research/monfs/internal/httpapi"
	"github.com/agentic-research/monfs/internal/vfs"
)

func newServeCmd(env envFunc) *cobra.Command {
	var preload string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the filesystem tree read-only over HTTP, with /metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := env(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := e.openStore(ctx, preload)
			if err != nil {
				return err
			}
			defer s.Close()

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			if !e.cfg.LogDevelopment {
				gin.SetMode(gin.ReleaseMode)
			}
			router := httpapi.NewRouter(vfs.New(s, e.log), s, reg, e.log)
			return httpapi.Serve(ctx, e.cfg.HTTPAddr, router, e.log)
		},
	}
	cmd.Flags().String("addr", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&preload, "preload", "", "Ingest this directory into the store before serving")
	return cmd
}
