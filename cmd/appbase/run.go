package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "run [options]",
		Short:              "Start the plugins and serve until interrupted",
		Long:               "Start the plugins and serve until interrupted. Run with --help to list every plugin option.",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApp(cmd.Context(), args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
}

func runApp(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	app, err := newApp(stdout, stderr)
	if err != nil {
		return err
	}
	defer app.Close()

	ok, err := app.Initialize(ctx, args, autostartPlugins()...)
	if err != nil || !ok {
		return err
	}
	if err := app.Startup(ctx); err != nil {
		return err
	}
	return app.Exec(ctx)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
