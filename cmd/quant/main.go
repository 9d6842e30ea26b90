package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wonny/phasescan/cmd/quant/commands"
)

// Ctrl+C or SIGTERM cancels the command context, which stops scans,
// collection, the scheduler and the API server.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
