package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fam007e/securepass/cli"
	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/genericclioptions"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := cli.NewDefaultSecurepassCommand(genericclioptions.NewDefaultIOStreams(), os.Args[1:])

	if err := cmd.ExecuteContext(ctx); err != nil {
		clierror.Check(err)
	}
}
