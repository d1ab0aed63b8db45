package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/appbase/internal/plugins/clock"
	"github.com/alexisbeaulieu97/appbase/internal/plugins/health"
	"github.com/alexisbeaulieu97/appbase/internal/plugins/heartbeat"
	"github.com/alexisbeaulieu97/appbase/pkg/appbase"
)

// bundledPlugins lists the plugins compiled into the binary.
func bundledPlugins() []*appbase.Type {
	return []*appbase.Type{clock.Type, health.Type, heartbeat.Type}
}

// autostartPlugins are initialized even when no --plugin is given.
func autostartPlugins() []*appbase.Type {
	return []*appbase.Type{heartbeat.Type}
}

func newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List the bundled plugins",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tVERSION\tREQUIRES\tDESCRIPTION")
			for _, t := range bundledPlugins() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.Version, requires(t), t.Description)
			}
			return w.Flush()
		},
	}
}

// requires describes a type's dependencies without registering it.
func requires(t *appbase.Type) string {
	deps := t.New(nil).Requires()
	if len(deps) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(deps))
	for _, dep := range deps {
		part := dep.Type.Name
		if dep.Constraint != "" {
			part += " " + dep.Constraint
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}
