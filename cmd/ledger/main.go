// Package main is the entrypoint for the ledger service.
// Ledger exposes CPF-keyed accounts and their financial records over HTTP.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/finbase/finance-ledger/internal/config"
	"github.com/finbase/finance-ledger/internal/server"
)

func main() {
	ctx := context.Background()
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	return server.Run(ctx, server.Params{
		Name:               "ledger",
		PortFromConfig:     func(cfg *config.Config) int { return cfg.Ledger.HTTPPort },
		GRPCPortFromConfig: func(cfg *config.Config) int { return cfg.Ledger.GRPCPort },
		Setup:              setup,
	}, server.Listeners{})
}
