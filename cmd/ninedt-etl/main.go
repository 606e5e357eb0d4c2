package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root, cleanup := newRootCmd()
	err := root.ExecuteContext(ctx)
	cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ninedt-etl: %v\n", err)
		stop()
		os.Exit(1)
	}
}
