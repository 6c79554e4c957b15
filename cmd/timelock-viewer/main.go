// Command timelock-viewer prints the decoded governance timelock history of a multisig.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pickle-finance/timelock-viewer/commands"
)

func main() {
	// .env is optional; variables already set in the environment take precedence
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("failed to load .env: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.NewCommand(commands.Config{}).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
