package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uascm/uascm/internal/nodeid"
)

var pullCmd = &cobra.Command{
	Use:   "pull [nodes...]",
	Short: "Pull the configured node subtrees into the source directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, engine, log, err := setup(ctx)
		if err != nil {
			return err
		}
		defer engine.Remote.Close()

		names := args
		if len(names) == 0 {
			names = cfg.Project.Nodes
		}
		roots := make([]nodeid.NodeId, 0, len(names))
		for _, name := range names {
			id, err := nodeid.Parse(name)
			if err != nil {
				return err
			}
			roots = append(roots, id)
		}

		summary, err := engine.Pull(ctx, roots)
		if err != nil {
			return err
		}
		log.Info("pulled",
			zap.Int("nodes", summary.Succeeded),
			zap.Float64("per_second", summary.Rate()))
		return reportSummary(log, summary)
	},
}

func init() {
	rootCmd.AddCommand(pullCmd)
}
