package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/terra-clan/jury-engine/internal/cli"
	"github.com/terra-clan/jury-engine/internal/config"
	"github.com/terra-clan/jury-engine/pkg/client"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(func(cfg *config.ClientConfig) cli.Backend {
		return client.NewClient(cfg.BaseURL, cfg.APIKey, client.WithTimeout(cfg.Timeout))
	})

	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
