package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dpshade/prompt-vault/internal/cli"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, cli.Options{Version: version})
	stop()
	os.Exit(code)
}
