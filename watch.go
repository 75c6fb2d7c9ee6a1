package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/config"
	"github.com/lexandro/contentsieve/pipeline"
	"github.com/lexandro/contentsieve/watcher"
)

// watchOrganize calls rerun after every debounced batch of changes under the
// organizer's roots until ctx is done. Calls never overlap; changes arriving
// during a run are delivered as the next batch.
func watchOrganize(ctx context.Context, org *pipeline.Organizer, cfg *config.Config, logger *zap.Logger, rerun func(ctx context.Context)) error {
	w, err := watcher.New(watcher.FromMatchers(org.Scanner().Matchers()), cfg.WatchDebounce, logger)
	if err != nil {
		return err
	}

	logger.Info("watching for changes",
		zap.Strings("roots", org.Scanner().Roots()),
		zap.Duration("debounce", cfg.WatchDebounce),
	)

	err = w.Run(ctx, func(ctx context.Context, events []watcher.DebouncedEvent) {
		logger.Info("changes detected", zap.Int("events", len(events)))
		for _, e := range events {
			logger.Debug("change", zap.String("path", e.Path), zap.Stringer("op", e.Op))
		}
		rerun(ctx)
	})
	logger.Info("watch stopped")
	return err
}
