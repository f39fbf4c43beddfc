package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityProfile/internal/config"
	"liquidityProfile/internal/export"
	"liquidityProfile/internal/liquidity"
)

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSnapshot(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Out == "" {
		return fmt.Errorf("output path is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap, err := newSnapshotter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer snap.Close()

	sink, err := openPGSink(ctx, cfg.PGDSN, logger)
	if err != nil {
		return err
	}
	defer sink.Close()

	run, err := snap.take(ctx, cfg.Block)
	if err != nil {
		return err
	}

	price := run.currentPrice()
	segments := run.curve.Segments
	if low, high, ok := export.ZoomWindow(price, cfg.Zoom); ok {
		segments = liquidity.FilterPriceWindow(segments, low, high)
	}

	if err := export.WriteFile(cfg.Out, func(w io.Writer) error {
		return export.WriteSegmentsCSV(w, segments)
	}); err != nil {
		return err
	}

	logger.Info("snapshot complete",
		zap.String("pool", run.state.Address),
		zap.Uint64("block", run.state.BlockNumber),
		zap.Int32("tick", run.state.Tick),
		zap.Float64("price", price),
		zap.Int("segments", len(run.curve.Segments)),
		zap.Int("written", len(segments)),
		zap.Bool("reliable", run.curve.Reliable),
		zap.String("out", cfg.Out),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "%s block %d tick %d price %g\n",
		run.state.Pair(), run.state.BlockNumber, run.state.Tick, price)
	if run.reserves != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "reserves %s %s, %s %s\n",
			run.reserves.Amount0, run.state.Token0.Symbol, run.reserves.Amount1, run.state.Token1.Symbol)
	}

	if err := sink.save(ctx, run); err != nil {
		return err
	}
	return reportIntegrity(logger, run.buildErr, cfg.AllowUnreliable)
}
