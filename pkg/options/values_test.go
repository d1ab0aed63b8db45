package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/appbase/pkg/appdirs"
	apperrors "github.com/alexisbeaulieu97/appbase/pkg/errors"
)

func TestFromMap(t *testing.T) {
	t.Parallel()

	values := FromMap(map[string]any{
		"clock-interval":  "2s",
		"heartbeat-every": 5,
		"peers":           []string{"a"},
		"ratio":           0.5,
	})

	require.Equal(t, 2*time.Second, values.GetDuration("clock-interval"))
	require.Equal(t, 5, values.GetInt("heartbeat-every"))
	require.Equal(t, []string{"a"}, values.GetStringSlice("peers"))
	require.InDelta(t, 0.5, values.GetFloat64("ratio"), 0.0001)
	require.True(t, values.IsSet("ratio"))
	require.False(t, values.IsSet("missing"))
	require.False(t, values.EarlyExit())
}

func TestWithDirsCopies(t *testing.T) {
	t.Parallel()

	base := FromMap(nil)
	dirs := appdirs.Dirs{Data: "/d", Config: "/c"}
	withDirs := base.WithDirs(dirs)

	require.Equal(t, dirs, withDirs.Dirs())
	require.Equal(t, appdirs.Dirs{}, base.Dirs())
}

func TestUnmarshalKey(t *testing.T) {
	t.Parallel()

	values := FromMap(map[string]any{"server": map[string]any{"port": 8080, "host": "localhost"}})

	var server struct {
		Port int
		Host string
	}
	require.NoError(t, values.UnmarshalKey("server", &server))
	require.Equal(t, 8080, server.Port)
	require.Equal(t, "localhost", server.Host)
}

func TestSettingsValidates(t *testing.T) {
	t.Parallel()

	settings, err := FromMap(map[string]any{
		FlagLogLevel:  "DEBUG",
		FlagLogFormat: "console",
		FlagPlugin:    []string{"clock"},
	}).Settings()
	require.NoError(t, err)
	require.Equal(t, "debug", settings.LogLevel)
	require.Equal(t, []string{"clock"}, settings.Plugins)

	_, err = FromMap(map[string]any{FlagLogLevel: "loud", FlagLogFormat: "json"}).Settings()
	var validationErr *apperrors.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Equal(t, "Settings.LogLevel", validationErr.Field)

	_, err = FromMap(map[string]any{FlagLogLevel: "info", FlagLogFormat: "json", FlagPlugin: []string{"Bad Name"}}).Settings()
	require.ErrorAs(t, err, &validationErr)
}
