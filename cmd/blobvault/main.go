package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/blobvault/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCommand(cli.StdStreams())
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.Render(err))
		var withExitCode interface{ ExitCode() int }
		if errors.As(err, &withExitCode) {
			stop()
			os.Exit(withExitCode.ExitCode())
		}
		stop()
		os.Exit(cli.ExitCodeGeneric)
	}
}
