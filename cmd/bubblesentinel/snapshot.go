package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"BubbleSentinel/internal/api"
	"BubbleSentinel/internal/model"
)

var (
	snapshotMarket  string
	snapshotPeriod  string
	snapshotTimeout time.Duration
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Compute one market overview and print it as JSON",
	Example: `  bubblesentinel snapshot --market us --period 5y
  bubblesentinel snapshot --market cn --period max`,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotMarket, "market", "us", "Market key")
	snapshotCmd.Flags().StringVar(&snapshotPeriod, "period", string(model.DefaultPeriod), "Lookback: 1y, 2y, 5y, 10y, max")
	snapshotCmd.Flags().DurationVar(&snapshotTimeout, "timeout", time.Minute, "Overall fetch timeout")
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	period, err := model.ParsePeriod(snapshotPeriod)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, cancel := context.WithTimeout(cmd.Context(), snapshotTimeout)
	defer cancel()
	ov, err := a.service.Overview(ctx, snapshotMarket, period)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(api.PresentOverview(ov))
}
