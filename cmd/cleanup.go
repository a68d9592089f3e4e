package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crowdsense/crowdcast/app"
	"github.com/crowdsense/crowdcast/config"
	"github.com/crowdsense/crowdcast/infra/logger"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove expired prediction cache entries",
	RunE:  runCleanup,
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	deleted, err := svc.Cache.CleanupExpired(context.Background())
	if err != nil {
		return err
	}
	logger.New("cleanup").Infof("removed %d expired entries", deleted)
	return nil
}
