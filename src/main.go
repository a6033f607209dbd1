package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"tlc/src/cli"
)

func main() {
	// Cancel lowering of pending documents on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "tlc: %s\n", err)
		stop()
		os.Exit(1)
	}
}
