package cmd

import (
	"io/fs"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var pushCmd = &cobra.Command{
	Use:   "push [files...]",
	Short: "Push edited source files back to the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, engine, log, err := setup(ctx)
		if err != nil {
			return err
		}
		defer engine.Remote.Close()

		paths := args
		if len(paths) == 0 {
			source := cfg.Project.Source
			if !filepath.IsAbs(source) {
				source = filepath.Join(filepath.Dir(projectFile), source)
			}
			err := filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
				if err != nil || d.IsDir() {
					return err
				}
				rel, err := filepath.Rel(source, path)
				if err != nil {
					return err
				}
				paths = append(paths, filepath.ToSlash(rel))
				return nil
			})
			if err != nil {
				return err
			}
		}

		summary, err := engine.Push(ctx, paths)
		if err != nil {
			return err
		}
		log.Info("pushed",
			zap.Int("nodes", summary.Succeeded),
			zap.Float64("per_second", summary.Rate()))
		return reportSummary(log, summary)
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)
}
