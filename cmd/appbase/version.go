package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/alexisbeaulieu97/appbase/pkg/appbase"
)

// Populated through -ldflags at release time.
var (
	version = ""
	commit  = ""
	date    = ""
)

type buildMeta struct {
	Version string
	Commit  string
	Date    string
	Go      string
}

// resolveBuild prefers linker-injected values and falls back to the module
// and VCS data embedded by the go tool.
func resolveBuild(info *debug.BuildInfo) buildMeta {
	meta := buildMeta{Version: version, Commit: commit, Date: date, Go: runtime.Version()}
	if info != nil {
		meta.Go = info.GoVersion
		if meta.Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			meta.Version = info.Main.Version
		}
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				if meta.Commit == "" {
					meta.Commit = setting.Value
				}
			case "vcs.time":
				if meta.Date == "" {
					meta.Date = setting.Value
				}
			}
		}
	}

	if meta.Version == "" {
		meta.Version = appbase.DefaultConfig().Version
	}
	if meta.Commit == "" {
		meta.Commit = "none"
	}
	if meta.Date == "" {
		meta.Date = "unknown"
	}
	return meta
}

func currentBuild() buildMeta {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		info = nil
	}
	return resolveBuild(info)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Display build information",
		RunE: func(cmd *cobra.Command, args []string) error {
			meta := currentBuild()
			fmt.Fprintf(cmd.OutOrStdout(), "appbase %s\ncommit: %s\nbuilt: %s\ngo: %s\n",
				meta.Version, meta.Commit, meta.Date, meta.Go)
			return nil
		},
	}
}
