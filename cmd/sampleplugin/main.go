// Command sampleplugin runs the sample plugin against a local item store.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"sampleplugin/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
