package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/crowdsense/crowdcast/app"
	"github.com/crowdsense/crowdcast/config"
)

var forecastZone string

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Generate a one-shot forecast and print it as JSON",
	RunE:  runForecast,
}

func init() {
	forecastCmd.Flags().StringVar(&forecastZone, "zone", "", "limit the forecast to one zone id")
	rootCmd.AddCommand(forecastCmd)
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if forecastZone != "" {
		for _, z := range cfg.ZoneList() {
			if z.ID == forecastZone {
				fc, err := svc.Engine.Forecast(ctx, z, time.Time{}, svc.Options())
				if err != nil {
					return err
				}
				return enc.Encode(fc)
			}
		}
		return fmt.Errorf("unknown zone %s", forecastZone)
	}
	return enc.Encode(svc.Engine.MultiZone(ctx, cfg.ZoneList(), time.Time{}, svc.Options()))
}
