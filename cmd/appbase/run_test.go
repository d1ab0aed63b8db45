package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/appbase/pkg/appdirs"
)

func TestRunHelpListsPluginOptions(t *testing.T) {
	t.Setenv(appdirs.HomeEnvVar("appbase"), t.TempDir())

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--help"})

	require.NoError(t, root.Execute())
	require.Contains(t, stdout.String(), "--health-listen")
	require.Contains(t, stdout.String(), "--clock-interval")
	require.Contains(t, stdout.String(), "--heartbeat-every")
}

func TestRunRejectsUnknownOption(t *testing.T) {
	t.Setenv(appdirs.HomeEnvVar("appbase"), t.TempDir())

	err := runApp(context.Background(), []string{"--bogus"}, &bytes.Buffer{}, &bytes.Buffer{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "--help")
}

func TestRunStartsAndStopsWhenCancelled(t *testing.T) {
	home := t.TempDir()
	t.Setenv(appdirs.HomeEnvVar("appbase"), home)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logs := &cancelOnWrite{needle: "plugins started", cancel: cancel}
	err := runApp(ctx, []string{
		"--plugin", "health",
		"--health-listen", "127.0.0.1:0",
		"--clock-interval", "1h",
	}, &bytes.Buffer{}, logs)
	require.NoError(t, err)
	require.ErrorIs(t, ctx.Err(), context.Canceled)

	require.FileExists(t, filepath.Join(home, appdirs.ConfigDir, "config.yaml"))
	require.Contains(t, logs.String(), "health endpoints listening")
	require.Contains(t, logs.String(), "event loop stopped")
}

// cancelOnWrite cancels once a log line containing needle is written.
type cancelOnWrite struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	needle string
	cancel context.CancelFunc
}

func (w *cancelOnWrite) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if bytes.Contains(p, []byte(w.needle)) {
		w.cancel()
	}
	return w.buf.Write(p)
}

func (w *cancelOnWrite) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestPluginsCommandListsBundledPlugins(t *testing.T) {
	root := newRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetArgs([]string{"plugins"})

	require.NoError(t, root.Execute())
	require.Contains(t, buf.String(), "heartbeat")
	require.Contains(t, buf.String(), "clock ^1.0")
}

func TestConfigDiffReportsEdits(t *testing.T) {
	home := t.TempDir()
	t.Setenv(appdirs.HomeEnvVar("appbase"), home)

	root := newRootCmd()
	stdout := &bytes.Buffer{}
	root.SetOut(stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"config", "diff"})
	require.NoError(t, root.Execute())
	require.Contains(t, stdout.String(), "matches the defaults")

	path := filepath.Join(home, appdirs.ConfigDir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("clock-interval: 5s\n"), 0o644))

	stdout.Reset()
	root = newRootCmd()
	root.SetOut(stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"config", "diff"})
	require.NoError(t, root.Execute())
	require.Contains(t, stdout.String(), "+clock-interval: 5s")
}
