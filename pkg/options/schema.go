// Package options parses command-line arguments, environment variables and
// the YAML config file into the merged view handed to every plugin.
package options

import (
	"io"

	"github.com/spf13/pflag"
)

// Built-in option names.
const (
	FlagHelp               = "help"
	FlagVersion            = "version"
	FlagPrintDefaultConfig = "print-default-config"
	FlagDataDir            = "data-dir"
	FlagConfigDir          = "config-dir"
	FlagConfig             = "config"
	FlagPlugin             = "plugin"
	FlagLogLevel           = "log-level"
	FlagLogFormat          = "log-format"
)

// DefaultConfigFile is the config file name used when --config is not given.
const DefaultConfigFile = "config.yaml"

// Schema collects option declarations. CLI options are accepted only on the
// command line; File options are accepted on the command line, from the
// environment and from the config file.
type Schema struct {
	CLI  *pflag.FlagSet
	File *pflag.FlagSet
}

// NewSchema returns an empty schema.
func NewSchema(name string) *Schema {
	return &Schema{
		CLI:  newFlagSet(name + " (command line)"),
		File: newFlagSet(name + " (config file)"),
	}
}

// Lookup returns the flag with the given name from either set.
func (s *Schema) Lookup(name string) *pflag.Flag {
	if f := s.CLI.Lookup(name); f != nil {
		return f
	}
	return s.File.Lookup(name)
}

// Merged returns a flag set holding both CLI and File flags. The flags are
// shared, so parsing the merged set updates the originals.
func (s *Schema) Merged(name string) *pflag.FlagSet {
	merged := newFlagSet(name)
	merged.AddFlagSet(s.CLI)
	merged.AddFlagSet(s.File)
	return merged
}

func (s *Schema) declareBuiltins(cfg Config) {
	s.CLI.BoolP(FlagHelp, "h", false, "Print this help message and exit")
	s.CLI.BoolP(FlagVersion, "v", false, "Print version information and exit")
	s.CLI.Bool(FlagPrintDefaultConfig, false, "Print the default configuration and exit")
	s.CLI.StringP(FlagDataDir, "d", "", "Directory containing program runtime data")
	s.CLI.String(FlagConfigDir, "", "Directory containing configuration files such as config.yaml")
	s.CLI.StringP(FlagConfig, "c", DefaultConfigFile, "Configuration file name relative to config-dir")

	s.File.StringSlice(FlagPlugin, nil, "Plugin(s) to enable, may be specified multiple times")
	s.File.String(FlagLogLevel, cfg.DefaultLogLevel, "Log level (trace, debug, info, warn, error)")
	s.File.String(FlagLogFormat, cfg.DefaultLogFormat, "Log format (json, console)")
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	return fs
}
