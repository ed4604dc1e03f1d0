// Package cmd implements the uascm command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/uascm/uascm/internal/config"
	"github.com/uascm/uascm/internal/mapper"
	"github.com/uascm/uascm/internal/nodetype"
	"github.com/uascm/uascm/internal/server"
	"github.com/uascm/uascm/internal/sync"
)

var (
	projectFile string
	logLevel    string
)

// version is overridden at build time via -ldflags "-X ...cmd.version=".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "uascm",
	Short:         "uascm syncs a server's node tree with a version-controllable file tree",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectFile, "project", "p", config.DefaultFile, "Path to the project configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

// setup loads the project, connects to the bridge and assembles the sync
// engine most commands need.
func setup(ctx context.Context) (*config.Config, *sync.Engine, *zap.Logger, error) {
	log, err := newLogger()
	if err != nil {
		return nil, nil, nil, err
	}
	cfg, err := config.Load(projectFile)
	if err != nil {
		return nil, nil, nil, err
	}

	remote, err := server.Dial(ctx, server.Options{
		Endpoint:       cfg.Server.Endpoint,
		Token:          cfg.Server.Token,
		ConnectTimeout: cfg.ConnectTimeout(),
		Log:            log,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	source := cfg.Project.Source
	if !filepath.IsAbs(source) {
		source = filepath.Join(filepath.Dir(projectFile), source)
	}
	if err := os.MkdirAll(source, 0o755); err != nil {
		return nil, nil, nil, fmt.Errorf("create source directory: %w", err)
	}

	registry := nodetype.NewRegistry()
	engine := sync.New(remote, mapper.New(registry), osfs.New(source))
	engine.Transformers = cfg.Sync.Transformers
	engine.Concurrency = cfg.Sync.Concurrency
	engine.Retry = server.DefaultRetry()
	engine.Retry.MaxAttempts = cfg.Sync.MaxAttempts
	engine.Log = log

	return cfg, engine, log, nil
}

func reportSummary(log *zap.Logger, summary *sync.Summary) error {
	for _, item := range summary.Failed {
		log.Warn("failed", zap.String("item", item.Item), zap.Error(item.Err))
	}
	if len(summary.Failed) > 0 {
		return fmt.Errorf("%d of %d items failed", len(summary.Failed), summary.Succeeded+len(summary.Failed))
	}
	return nil
}
