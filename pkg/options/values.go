package options

import (
	"sort"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/alexisbeaulieu97/appbase/internal/validation"
	"github.com/alexisbeaulieu97/appbase/pkg/appdirs"
)

// Values is the read-only merged view of every option.
type Values struct {
	v          *viper.Viper
	dirs       appdirs.Dirs
	configPath string
	ignored    []string
}

// FromMap builds Values from settings without parsing anything.
func FromMap(settings map[string]any) *Values {
	v := viper.New()
	for key, value := range settings {
		v.Set(key, value)
	}
	return &Values{v: v}
}

// WithDirs returns a copy of o reporting dirs.
func (o *Values) WithDirs(dirs appdirs.Dirs) *Values {
	clone := *o
	clone.dirs = dirs
	return &clone
}

func (o *Values) GetString(key string) string { return o.v.GetString(key) }
func (o *Values) GetBool(key string) bool { return o.v.GetBool(key) }
func (o *Values) GetInt(key string) int { return o.v.GetInt(key) }
func (o *Values) GetFloat64(key string) float64 { return o.v.GetFloat64(key) }
func (o *Values) GetDuration(key string) time.Duration { return o.v.GetDuration(key) }
func (o *Values) GetStringSlice(key string) []string { return o.v.GetStringSlice(key) }
func (o *Values) IsSet(key string) bool { return o.v.IsSet(key) }
func (o *Values) UnmarshalKey(key string, out any) error { return o.v.UnmarshalKey(key, out) }
func (o *Values) AllSettings() map[string]any { return o.v.AllSettings() }

// Dirs returns the resolved data and config directories.
func (o *Values) Dirs() appdirs.Dirs { return o.dirs }

// ConfigPath returns the config file that was read, if any.
func (o *Values) ConfigPath() string { return o.configPath }

// IgnoredKeys lists config file keys that match no config-file option.
func (o *Values) IgnoredKeys() []string {
	keys := append([]string(nil), o.ignored...)
	sort.Strings(keys)
	return keys
}

func (o *Values) Help() bool { return o.v.GetBool(FlagHelp) }
func (o *Values) ShowVersion() bool { return o.v.GetBool(FlagVersion) }
func (o *Values) PrintDefaultConfig() bool { return o.v.GetBool(FlagPrintDefaultConfig) }

// EarlyExit reports whether the command line asked for output only.
func (o *Values) EarlyExit() bool {
	return o.Help() || o.ShowVersion() || o.PrintDefaultConfig()
}

// Plugins returns the plugin names given with --plugin, split on commas,
// deduplicated and in first-seen order.
func (o *Values) Plugins() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, entry := range o.v.GetStringSlice(FlagPlugin) {
		for _, name := range strings.Split(entry, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

// Settings are the framework's own options.
type Settings struct {
	LogLevel  string   `validate:"required,oneof=trace debug info warn error"`
	LogFormat string   `validate:"required,oneof=json console"`
	Plugins   []string `validate:"dive,plugin_name"`
}

// Settings extracts and validates the framework options.
func (o *Values) Settings() (Settings, error) {
	settings := Settings{
		LogLevel:  strings.ToLower(strings.TrimSpace(o.GetString(FlagLogLevel))),
		LogFormat: strings.ToLower(strings.TrimSpace(o.GetString(FlagLogFormat))),
		Plugins:   o.Plugins(),
	}
	if err := validation.Struct(settings); err != nil {
		return Settings{}, err
	}
	return settings, nil
}
