package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spachava753/mcdl/internal/models"
)

func main() {
	// Setup context with manual signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	defer func() {
		signal.Stop(sigChan)
		cancel()
	}()

	go func() {
		sig := <-sigChan
		slog.Info("interrupt received, stopping downloads...", "signal", sig)
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError(err)
		cancel()
		os.Exit(1)
	}
}

// printError reports which artifacts failed when an install is incomplete.
func printError(err error) {
	var incomplete *models.IncompleteInstallError
	if errors.As(err, &incomplete) {
		fmt.Fprintf(os.Stderr, "Error: instance %s is incomplete; re-run install to retry:\n", incomplete.InstanceID)
		for _, e := range incomplete.Errs {
			fmt.Fprintf(os.Stderr, "  - %v\n", e)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
