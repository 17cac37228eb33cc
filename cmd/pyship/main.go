package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	pyship "github.com/0xa1bed0/pyship/internal/cli/pyship"
	"github.com/0xa1bed0/pyship/internal/logs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := pyship.Execute(ctx)
	if closeErr := logs.Close(); closeErr != nil {
		logs.Errorf("log close error: %v", closeErr)
	}
	if err != nil {
		logs.Errorf("%v", err)
		os.Exit(1)
	}
}
