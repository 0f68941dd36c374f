package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"objstore/internal/cli"
	"objstore/internal/config"
	"objstore/internal/logger"

	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Run(ctx, os.Args[1:]); err != nil {
		l, logErr := logger.New(config.LogConfig{Level: "info", Format: "console"})
		if logErr != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		} else {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		}
		stop()
		os.Exit(1)
	}
}
