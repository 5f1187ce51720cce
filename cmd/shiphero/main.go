package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/saturnines/shiphero-core/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.New().Execute(ctx, os.Args[1:]); err != nil {
		stop()
		os.Exit(1)
	}
}
