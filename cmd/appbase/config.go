package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/appbase/pkg/appbase"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration file",
	}

	cmd.AddCommand(&cobra.Command{
		Use:                "diff [options]",
		Short:              "Show how the config file differs from the defaults",
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return configDiff(cmd.Context(), args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	})

	return cmd
}

func configDiff(_ context.Context, args []string, stdout, stderr io.Writer) error {
	app, err := newApp(stdout, stderr)
	if err != nil {
		return err
	}
	defer app.Close()

	out, err := app.ConfigDiff(args)
	if err != nil {
		return err
	}
	if out == "" {
		fmt.Fprintln(stdout, "config file matches the defaults")
		return nil
	}
	_, err = io.WriteString(stdout, out)
	return err
}

// newApp creates the application with every bundled plugin registered.
func newApp(stdout, stderr io.Writer) (*appbase.Application, error) {
	cfg := appbase.DefaultConfig()
	cfg.Version = currentBuild().Version
	cfg.Stdout = stdout
	cfg.LogWriter = stderr
	if isTerminal(stderr) {
		cfg.LogFormat = "console"
	}

	app, err := appbase.New(cfg)
	if err != nil {
		return nil, err
	}
	for _, t := range bundledPlugins() {
		if _, err := app.Register(t); err != nil {
			app.Close()
			return nil, fmt.Errorf("register %s: %w", t.Name, err)
		}
	}
	return app, nil
}
