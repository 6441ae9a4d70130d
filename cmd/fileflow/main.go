// Command fileflow loads delimited files into SQL databases and exports
// tables back to delimited files. See "fileflow --help".
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fileflow/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Main(ctx)
	stop()
	os.Exit(code)
}
