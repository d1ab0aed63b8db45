package main

import (
	"bytes"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVersionCommandOutputsBuildInfo(t *testing.T) {
	originalVersion := version
	originalCommit := commit
	originalDate := date
	t.Cleanup(func() {
		version = originalVersion
		commit = originalCommit
		date = originalDate
	})

	version = "1.2.3"
	commit = "abcdef1"
	date = "2025-10-03"

	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs([]string{"version"})

	require.NoError(t, root.Execute())

	output := buf.String()
	require.Contains(t, output, "1.2.3")
	require.Contains(t, output, "abcdef1")
	require.Contains(t, output, "2025-10-03")
}

func TestResolveBuildFallsBackToEmbeddedInfo(t *testing.T) {
	originalVersion := version
	originalCommit := commit
	originalDate := date
	t.Cleanup(func() {
		version = originalVersion
		commit = originalCommit
		date = originalDate
	})
	version, commit, date = "", "", ""

	meta := resolveBuild(&debug.BuildInfo{
		GoVersion: "go1.25.1",
		Main:      debug.Module{Path: "github.com/alexisbeaulieu97/appbase", Version: "v0.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123abc"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	})

	require.Equal(t, "v0.4.0", meta.Version)
	require.Equal(t, "0123abc", meta.Commit)
	require.Equal(t, "2026-01-02T03:04:05Z", meta.Date)
	require.Equal(t, "go1.25.1", meta.Go)
}

func TestResolveBuildDefaultsForDevelBuilds(t *testing.T) {
	originalVersion := version
	originalCommit := commit
	originalDate := date
	t.Cleanup(func() {
		version = originalVersion
		commit = originalCommit
		date = originalDate
	})
	version, commit, date = "", "", ""

	meta := resolveBuild(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	require.Equal(t, "0.0.0-dev", meta.Version)
	require.Equal(t, "none", meta.Commit)
	require.Equal(t, "unknown", meta.Date)

	meta = resolveBuild(nil)
	require.Equal(t, "0.0.0-dev", meta.Version)
	require.NotEmpty(t, meta.Go)
}
