package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	syncName string
	syncURL  string
)

func init() {
	syncCmd.Flags().StringVar(&syncName, "name", "", "repository name (mirror directory)")
	syncCmd.Flags().StringVar(&syncURL, "url", "", "repository clone URL")
	_ = syncCmd.MarkFlagRequired("name")
	_ = syncCmd.MarkFlagRequired("url")
}

// syncCmd handles one request in the foreground
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize one repository now",
	Long: `Clone or update one repository, extract its samples and upload new ones.

This runs the same pipeline as a webhook request, in the foreground. Do not
run it for a repository the service may be syncing at the same time.

Examples:
  dvc-connector sync --name nmgrl-ages --url https://github.com/nmgrl/nmgrl-ages.git`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if err := a.dispatcher.Handle(ctx, map[string]any{"name": syncName, "clone_url": syncURL}); err != nil {
		return fmt.Errorf("sync %s: %w", syncName, err)
	}
	cmd.Printf("synchronized %s\n", syncName)
	return nil
}
