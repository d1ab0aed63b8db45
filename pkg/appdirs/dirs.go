// Package appdirs resolves the data and configuration directories consulted
// by plugins during initialize and startup.
package appdirs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Directory names used below the application home.
const (
	DataDir   = "data"
	ConfigDir = "etc"
)

// DirPerm is the permission used when creating directories.
const DirPerm os.FileMode = 0o755

// Dirs holds the resolved directories.
type Dirs struct {
	Data   string
	Config string
}

// HomeEnvVar returns the environment variable overriding the application home,
// e.g. "APPBASE_HOME" for app "appbase".
func HomeEnvVar(appName string) string {
	name := strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(appName))
	return name + "_HOME"
}

// Default returns the default directories for appName. It checks the
// <APP>_HOME environment variable first, then falls back to ~/.<app>.
func Default(appName string) (Dirs, error) {
	home := os.Getenv(HomeEnvVar(appName))
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return Dirs{}, fmt.Errorf("resolving home directory: %w", err)
		}
		home = filepath.Join(userHome, "."+appName)
	}
	return Dirs{
		Data:   filepath.Join(home, DataDir),
		Config: filepath.Join(home, ConfigDir),
	}, nil
}

// Resolve combines explicit directories with defaults. Empty values fall back
// to the defaults; relative paths are made absolute against the working directory.
func Resolve(data, config string, defaults Dirs) (Dirs, error) {
	if strings.TrimSpace(data) == "" {
		data = defaults.Data
	}
	if strings.TrimSpace(config) == "" {
		config = defaults.Config
	}

	absData, err := filepath.Abs(data)
	if err != nil {
		return Dirs{}, fmt.Errorf("resolve data dir: %w", err)
	}
	absConfig, err := filepath.Abs(config)
	if err != nil {
		return Dirs{}, fmt.Errorf("resolve config dir: %w", err)
	}
	return Dirs{Data: absData, Config: absConfig}, nil
}

// Ensure creates both directories if they do not exist.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Data, d.Config} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, DirPerm); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ConfigFile returns name resolved against the config directory unless it is absolute.
func (d Dirs) ConfigFile(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(d.Config, name)
}
