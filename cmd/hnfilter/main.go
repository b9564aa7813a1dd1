package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"HNFilter/internal/app"
	"HNFilter/internal/config"
	"HNFilter/internal/logging"
)

func main() {
	mode := flag.String("mode", "once", "run mode: once (single cycle), serve (scheduler + HTTP API) or summarize")
	pageURL := flag.String("url", "", "article url for -mode summarize")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	switch *mode {
	case "once":
		err = application.RunOnce(ctx, os.Stdout)
	case "serve":
		err = application.Serve(ctx)
	case "summarize":
		var summary string
		if summary, err = application.Summarize(ctx, *pageURL); err == nil {
			fmt.Println(summary)
		}
	default:
		logger.Error("unknown mode", "mode", *mode)
		application.Close()
		os.Exit(2)
	}

	if err != nil {
		logger.Error("application stopped", "error", err)
		application.Close()
		os.Exit(1)
	}
}
