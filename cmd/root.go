package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/agentic-research/monfs/internal/config"
	"github.com/agentic-research/monfs/internal/ingest"
	"github.com/agentic-research/monfs/internal/logging"
	"github.com/agentic-research/monfs/internal/store"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

// errReported marks failures whose message was already printed.
var errReported = errors.New("reported")

// runtimeEnv is what every subcommand needs once flags are parsed.
type runtimeEnv struct {
	cfg config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "monfs",
		Short:         "monfs: monitoring object definitions as a read-only filesystem",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (.hcl, .yaml, .json or .jsonc)")
	config.RegisterFlags(root.PersistentFlags())

	env := func(cmd *cobra.Command) (*runtimeEnv, error) {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return nil, err
		}
		log, err := logging.New(logging.Config{Level: cfg.LogLevel, Development: cfg.LogDevelopment})
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		return &runtimeEnv{cfg: cfg, log: log}, nil
	}

	root.AddCommand(
		newMountCmd(env),
		newMigrateCmd(env),
		newServeCmd(env),
		newAgentCmd(env),
		newFindCmd(env),
		newLintCmd(),
	)
	return root
}

type envFunc func(cmd *cobra.Command) (*runtimeEnv, error)

// openStore connects to the configured backend and, when preload is set,
// ingests that tree first. The memory backend is only useful with preload.
func (e *runtimeEnv) openStore(ctx context.Context, preload string) (store.Store, error) {
	s, err := store.Open(ctx, e.cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", e.cfg.Backend, err)
	}
	e.log.Info("store opened",
		zap.String("backend", e.cfg.Backend),
		zap.String("db", e.cfg.DB),
		zap.String("collection", e.cfg.Collection),
	)
	if preload == "" {
		return s, nil
	}
	p := &ingest.Pipeline{Store: s, Logger: e.log, Include: e.cfg.Include}
	sum, err := p.Run(ctx, preload)
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("preload %s: %w", preload, err)
	}
	if sum.Failed > 0 {
		e.log.Warn("preload finished with failures", zap.Int("failed", sum.Failed))
	}
	return s, nil
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
