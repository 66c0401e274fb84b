// ./main.go
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/pagepilot-ai/pagepilot/cmd"
)

// main is the entry point for the PagePilot CLI application.
func main() {
	// Ctrl-C and SIGTERM cancel the command context, which ends the active
	// session as CANCELLED instead of killing the process mid-action.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd.ExecuteContext(ctx)
}
