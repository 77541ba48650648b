package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reel/internal/daemon"
	"reel/internal/downloads"
	"reel/internal/infocache"
	"reel/internal/jobs"
	"reel/internal/logging"
	"reel/internal/notifications"
	"reel/internal/services/ffmpeg"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reel daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			var opts []downloads.Option

			if cfg.InfoCache.Enabled {
				cache, err := infocache.Open(cfg)
				if err != nil {
					logger.Warn("video info cache unavailable", logging.Error(err))
				} else {
					defer cache.Close()
					if pruned, err := cache.Prune(signalCtx); err != nil {
						logger.Warn("video info cache prune failed", logging.Error(err))
					} else if pruned > 0 {
						logger.Info("pruned expired video info entries", logging.Int64("pruned", pruned))
					}
					if entries, err := cache.Count(signalCtx); err == nil {
						logger.Info("video info cache ready", logging.Int("entries", entries))
					}
					opts = append(opts, downloads.WithInfoCache(cache))
				}
			}

			if binary, err := ffmpeg.Locate(cfg.Tools.FFmpegPath); err != nil {
				logger.Warn("ffmpeg unavailable; audio extraction will fail", logging.Error(err))
			} else {
				if version, err := ffmpeg.Version(signalCtx, binary); err != nil {
					logger.Warn("ffmpeg verification failed", logging.Error(err))
				} else {
					logger.Info("ffmpeg ready", logging.String("version", version))
				}
				opts = append(opts, downloads.WithFFmpegLocation(binary))
			}

			registry := jobs.NewRegistry(cfg.Downloads.MaxConcurrent, time.Duration(cfg.Downloads.StallTimeout)*time.Second)
			notifier := notifications.NewService(cfg)

			manager, err := downloads.NewManager(cfg, registry, notifier, logger, opts...)
			if err != nil {
				return fmt.Errorf("create download manager: %w", err)
			}

			d, err := daemon.New(cfg, manager, logger)
			if err != nil {
				return fmt.Errorf("create daemon: %w", err)
			}
			if err := d.Start(signalCtx); err != nil {
				return err
			}

			<-signalCtx.Done()
			logger.Info("reel daemon shutting down")
			d.Stop()
			return nil
		},
	}
}
