package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hyperjump/paperselect/internal/watcher"
	"go.uber.org/zap"
)

// runWatch runs a selection, then re-runs it whenever the input or reference file changes.
func runWatch() {
	opts, cfg, components, logger := setupSelect("watch", os.Args[2:])
	defer logger.Sync()
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	rerun := func(reason string) {
		mu.Lock()
		defer mu.Unlock()
		logger.Info("running selection", zap.String("trigger", reason))
		if _, err := executeSelect(ctx, components.Pipeline, opts, os.Stdout); err != nil {
			logger.Error("selection failed", zap.Error(err))
		}
	}
	rerun("start")

	w := watcher.NewWatcher(
		[]string{opts.Input, opts.Reference},
		rerun,
		watcher.WithLogger(logger),
		watcher.WithDebounce(time.Duration(cfg.Watch.DebounceMS)*time.Millisecond),
	)
	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start watcher", zap.Error(err))
		components.Close()
		os.Exit(1)
	}
	defer w.Stop()
	logger.Info("watching for changes", zap.Strings("files", w.Files()))
	<-ctx.Done()
	logger.Info("stopping watch")
}
