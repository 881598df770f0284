package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/alexanderramin/feedlog/internal/cli"
	"github.com/alexanderramin/feedlog/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, cli.ErrorMessage(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("FEEDLOG_CONFIG"))
	if err != nil {
		return err
	}

	interactive := func() bool {
		return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	}

	app, err := cli.Open(context.Background(), cfg, cli.WithInteractive(interactive))
	if err != nil {
		return err
	}
	defer app.Close()

	return cli.NewRootCmd(app).Execute()
}
