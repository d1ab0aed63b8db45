package options

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/alexisbeaulieu97/appbase/pkg/appdirs"
	apperrors "github.com/alexisbeaulieu97/appbase/pkg/errors"
)

// Config controls parser behaviour.
type Config struct {
	// AppName names the flag sets and the default home directory.
	AppName string
	// EnvPrefix enables environment overrides (<PREFIX>_<NAME>). Empty disables them.
	EnvPrefix string
	// DefaultDirs are used when --data-dir/--config-dir are absent. When zero,
	// appdirs.Default(AppName) is consulted.
	DefaultDirs      appdirs.Dirs
	DefaultLogLevel  string
	DefaultLogFormat string
}

// DefaultConfig returns sensible defaults for appName.
func DefaultConfig(appName string) Config {
	return Config{
		AppName:          appName,
		EnvPrefix:        strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(appName)),
		DefaultLogLevel:  "info",
		DefaultLogFormat: "json",
	}
}

// Parser merges command line, environment and config file into Values.
type Parser struct {
	cfg    Config
	schema *Schema
}

// NewParser creates a parser with the built-in options declared.
func NewParser(cfg Config) *Parser {
	if cfg.AppName == "" {
		cfg.AppName = "appbase"
	}
	if cfg.DefaultLogLevel == "" {
		cfg.DefaultLogLevel = "info"
	}
	if cfg.DefaultLogFormat == "" {
		cfg.DefaultLogFormat = "json"
	}

	schema := NewSchema(cfg.AppName)
	schema.declareBuiltins(cfg)
	return &Parser{cfg: cfg, schema: schema}
}

// Schema exposes the option schema so plugins can declare their options.
func (p *Parser) Schema() *Schema {
	return p.schema
}

// Usage renders the help text for every declared option.
func (p *Parser) Usage() string {
	return p.schema.Merged(p.cfg.AppName).FlagUsages()
}

// Parse processes args. It must be called at most once per parser. When the
// arguments request help, version or the default config, the filesystem is
// not touched and the returned Values report EarlyExit.
func (p *Parser) Parse(args []string) (*Values, error) {
	flags := p.schema.Merged(p.cfg.AppName)
	if err := flags.Parse(args); err != nil {
		return nil, apperrors.NewOptionsError(err)
	}
	if extra := flags.Args(); len(extra) > 0 {
		return nil, apperrors.NewOptionsError(fmt.Errorf("unexpected argument %q", extra[0]))
	}

	v := viper.New()
	if p.cfg.EnvPrefix != "" {
		v.SetEnvPrefix(p.cfg.EnvPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
		v.AutomaticEnv()
	}
	if err := v.BindPFlags(flags); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	values := &Values{v: v}
	if values.EarlyExit() {
		return values, nil
	}

	defaults := p.cfg.DefaultDirs
	if defaults == (appdirs.Dirs{}) {
		var err error
		defaults, err = appdirs.Default(p.cfg.AppName)
		if err != nil {
			return nil, err
		}
	}
	dirs, err := appdirs.Resolve(v.GetString(FlagDataDir), v.GetString(FlagConfigDir), defaults)
	if err != nil {
		return nil, err
	}
	values.dirs = dirs
	values.configPath = dirs.ConfigFile(v.GetString(FlagConfig))

	if err := p.ensureConfigFile(values.configPath); err != nil {
		return nil, err
	}

	settings, err := readConfigFile(values.configPath)
	if err != nil {
		return nil, err
	}
	for key := range settings {
		if p.schema.File.Lookup(key) == nil {
			values.ignored = append(values.ignored, key)
			delete(settings, key)
		}
	}
	if err := v.MergeConfigMap(settings); err != nil {
		return nil, apperrors.NewParseError(values.configPath, 0, err)
	}

	return values, nil
}

func (p *Parser) ensureConfigFile(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), appdirs.DirPerm); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	if err := WriteDefaults(f, p.schema); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
