package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/PolarWolf314/mops/cmd"
	"github.com/PolarWolf314/mops/internal/ui"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, ui.Error.Sprint("Error:")+" "+err.Error())
		stop()
		os.Exit(1)
	}
}
