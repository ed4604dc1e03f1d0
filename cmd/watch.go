package cmd

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uascm/uascm/internal/fswatch"
	"github.com/uascm/uascm/internal/nodeid"
	"github.com/uascm/uascm/internal/reload"
	"github.com/uascm/uascm/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Continuously sync changes in both directions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, engine, log, err := setup(ctx)
		if err != nil {
			return err
		}
		defer engine.Remote.Close()

		source := cfg.Project.Source
		if !filepath.IsAbs(source) {
			source = filepath.Join(filepath.Dir(projectFile), source)
		}

		roots := make([]nodeid.NodeId, 0, len(cfg.Project.Nodes))
		for _, name := range cfg.Project.Nodes {
			id, err := nodeid.Parse(name)
			if err != nil {
				return err
			}
			roots = append(roots, id)
		}

		notifier := reload.NewServer(log)
		coordinator := watch.New(engine.PullNode, engine.PushFile, notifier, log)

		fsWatcher, err := fswatch.New(source, cfg.Debounce(), log)
		if err != nil {
			return err
		}

		fsReady := make(chan struct{})
		remoteReady := make(chan struct{})
		fileEvents := make(chan watch.FileEvent, 100)
		watchErrs := make(chan error, 1)

		remoteEvents, remoteErrs, err := engine.Remote.Subscribe(ctx, roots)
		if err != nil {
			return err
		}
		close(remoteReady)

		group, ctx := errgroup.WithContext(ctx)
		group.Go(func() error {
			return notifier.Listen(ctx, cfg.Watch.ReloadAddr)
		})
		group.Go(func() error {
			return fsWatcher.Run(ctx, fsReady, fileEvents, watchErrs)
		})
		group.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case err, ok := <-remoteErrs:
					if !ok {
						return nil
					}
					log.Warn("subscription error", zap.Error(err))
				case err := <-watchErrs:
					log.Warn("file watch error", zap.Error(err))
				}
			}
		})
		group.Go(func() error {
			return coordinator.Run(ctx, fsReady, remoteReady, fileEvents, remoteEvents)
		})

		if err := group.Wait(); err != nil && err != context.Canceled {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
