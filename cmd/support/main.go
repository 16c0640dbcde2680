package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Proton-105/emerans-bots/internal/app"
	"github.com/Proton-105/emerans-bots/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, config.BotSupport); err != nil {
		fmt.Fprintf(os.Stderr, "support bot: %v\n", err)
		os.Exit(1)
	}
}
