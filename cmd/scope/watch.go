package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityProfile/internal/config"
	"liquidityProfile/internal/export"
	"liquidityProfile/internal/liquidity"
)

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWatch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.FramesDir == "" {
		return fmt.Errorf("frames dir is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap, err := newSnapshotter(ctx, cfg.SnapshotConfig, logger)
	if err != nil {
		return err
	}
	defer snap.Close()

	sink, err := openPGSink(ctx, cfg.PGDSN, logger)
	if err != nil {
		return err
	}
	defer sink.Close()

	logger.Info("watch start",
		zap.String("pool", cfg.Pool),
		zap.Duration("interval", cfg.Interval),
		zap.Int("count", cfg.Count),
		zap.String("frames_dir", cfg.FramesDir),
	)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	// the window is fixed by the first frame so frames stay comparable
	var low, high float64
	var windowed bool
	var lastBlock uint64
	frames := 0

	for cfg.Count == 0 || frames < cfg.Count {
		if frames > 0 {
			select {
			case <-ctx.Done():
				logger.Info("watch stopped", zap.Int("frames", frames))
				return nil
			case <-ticker.C:
			}
		}

		run, err := snap.take(ctx, 0)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("watch stopped", zap.Int("frames", frames))
				return nil
			}
			return err
		}
		if frames > 0 && run.state.BlockNumber == lastBlock {
			logger.Debug("no new block", zap.Uint64("block", lastBlock))
		}
		lastBlock = run.state.BlockNumber

		price := run.currentPrice()
		if frames == 0 {
			low, high, windowed = export.ZoomWindow(price, cfg.Zoom)
		}
		segments := run.curve.Segments
		if windowed {
			segments = liquidity.FilterPriceWindow(segments, low, high)
		}

		path := export.FramePath(cfg.FramesDir, frames)
		if err := export.WriteFile(path, func(w io.Writer) error {
			return export.WriteSegmentsCSV(w, segments)
		}); err != nil {
			return err
		}

		logger.Info("frame written",
			zap.Int("frame", frames),
			zap.Uint64("block", run.state.BlockNumber),
			zap.Int32("tick", run.state.Tick),
			zap.Float64("price", price),
			zap.Int("segments", len(segments)),
			zap.String("path", path),
		)

		if err := sink.save(ctx, run); err != nil {
			return err
		}
		if err := reportIntegrity(logger, run.buildErr, cfg.AllowUnreliable); err != nil {
			return err
		}
		frames++
	}

	logger.Info("watch complete", zap.Int("frames", frames))
	return nil
}
