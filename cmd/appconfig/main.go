package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"appconfig/infrastructure/config"
	"appconfig/infrastructure/di"
	"appconfig/interfaces/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := cli.NewRootCommand(config.LoadConfig, di.InitializeContainer)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		cancel()
		os.Exit(1)
	}
}
