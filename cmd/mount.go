package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/winfsp/cgofuse/fuse"
	"go.uber.org/zap"

	monfs "github.com/agentic-research/monfs/internal/fs"
	"github.com/agentic-research/monfs/internal/config"
	"github.com/agentic-research/monfs/internal/nfsmount"
	"github.com/agentic-research/monfs/internal/vfs"
)

// fuseArgs builds the host mount options: always read-only and owned by
// the caller, followed by the user's -o lists with store settings removed.
func fuseArgs(options []string, uid, gid int) ([]string, map[string]string) {
	var raw []string
	for _, o := range options {
		raw = append(raw, "-o", o)
	}
	rest, extra := config.SplitMountOptions(raw)
	args := []string{
		"-o", "ro",
		"-o", fmt.Sprintf("uid=%d", uid),
		"-o", fmt.Sprintf("gid=%d", gid),
	}
	return append(args, rest...), extra
}

func newMountCmd(env envFunc) *cobra.Command {
	var (
		options []string
		useNFS  bool
		nfsAddr string
		preload string
	)
	cmd := &cobra.Command{
		Use:   "mount <mountpoint>",
		Short: "Mount the record store read-only (FUSE, or NFS with --nfs)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mountPoint := args[0]
			e, err := env(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = e.log.Sync() }()

			hostArgs, extra := fuseArgs(options, os.Getuid(), os.Getgid())
			e.cfg.ApplyMountOptions(extra)
			if err := e.cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			s, err := e.openStore(ctx, preload)
			if err != nil {
				return err
			}
			defer s.Close()

			adapter := vfs.New(s, e.log)

			if useNFS {
				return serveNFS(cmd, adapter, nfsAddr, mountPoint, e.log)
			}

			host := fuse.NewFileSystemHost(monfs.NewMonFS(adapter, e.log))
			e.log.Info("mounting", zap.String("mountpoint", mountPoint), zap.Strings("options", hostArgs))
			fmt.Fprintf(cmd.OutOrStdout(), "Mounting monfs at %s (using cgofuse)...\n", mountPoint)
			if !host.Mount(mountPoint, hostArgs) {
				return fmt.Errorf("mount failed")
			}
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&options, "options", "o", nil, "Mount options (comma separated; host=, db=, collection= select the store)")
	cmd.Flags().BoolVar(&useNFS, "nfs", false, "Serve over NFSv3 and mount with the system mount command")
	cmd.Flags().StringVar(&nfsAddr, "nfs-addr", "127.0.0.1:0", "NFS listen address")
	cmd.Flags().StringVar(&preload, "preload", "", "Ingest this directory into the store before mounting")
	return cmd
}

func serveNFS(cmd *cobra.Command, adapter *vfs.Adapter, addr, mountPoint string, log *zap.Logger) error {
	srv, err := nfsmount.NewServer(nfsmount.NewStoreFS(adapter), addr, log)
	if err != nil {
		return err
	}
	defer srv.Close()

	if err := nfsmount.Mount(srv.Port(), mountPoint); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Mounted monfs at %s (NFS port %d). Ctrl-C to unmount.\n", mountPoint, srv.Port())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	select {
	case <-sig:
	case err := <-srv.Done():
		log.Warn("nfs server exited", zap.Error(err))
	}
	return nfsmount.Unmount(mountPoint)
}
