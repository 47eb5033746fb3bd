package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"crptapi/internal/cmd"
	"crptapi/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.NewRootCommand(version.GetInfo()).ExecuteContext(ctx)
	stop()

	os.Exit(cmd.ReportError(os.Stderr, err))
}
