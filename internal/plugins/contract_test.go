package plugins

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/appbase/internal/plugins/clock"
	"github.com/alexisbeaulieu97/appbase/internal/plugins/health"
	"github.com/alexisbeaulieu97/appbase/internal/plugins/heartbeat"
	"github.com/alexisbeaulieu97/appbase/pkg/appbase"
	"github.com/alexisbeaulieu97/appbase/pkg/options"
)

// getAllPlugins returns every bundled plugin type for contract testing.
func getAllPlugins() []*appbase.Type {
	return []*appbase.Type{clock.Type, health.Type, heartbeat.Type}
}

func contractOptions() *options.Values {
	return options.FromMap(map[string]any{
		health.OptListen:  "127.0.0.1:0",
		clock.OptInterval: "1h",
	})
}

// TestContract_Metadata checks every type carries a semantic version and a description.
func TestContract_Metadata(t *testing.T) {
	t.Parallel()

	for _, typ := range getAllPlugins() {
		_, err := semver.StrictNewVersion(typ.Version)
		require.NoError(t, err, typ.Name)
		require.NotEmpty(t, typ.Description, typ.Name)
		require.NotNil(t, typ.New, typ.Name)
	}
}

// TestContract_OptionsArePrefixed keeps option names from colliding across plugins.
func TestContract_OptionsArePrefixed(t *testing.T) {
	t.Parallel()

	for _, typ := range getAllPlugins() {
		schema := options.NewSchema("contract")
		typ.New(nil).DeclareOptions(schema)

		visit := func(f *pflag.Flag) {
			require.True(t, strings.HasPrefix(f.Name, typ.Name+"-"), "%s declares %s", typ.Name, f.Name)
		}
		schema.CLI.VisitAll(visit)
		schema.File.VisitAll(visit)
	}
}

// TestContract_Lifecycle drives each plugin through a full lifecycle and a
// replayed shutdown.
func TestContract_Lifecycle(t *testing.T) {
	for _, typ := range getAllPlugins() {
		t.Run(typ.Name, func(t *testing.T) {
			app, err := appbase.New(appbase.Config{Name: "contract", LogWriter: io.Discard})
			require.NoError(t, err)
			defer app.Close()
			ctx := context.Background()

			h, err := app.Register(typ)
			require.NoError(t, err)
			require.NoError(t, app.InitializeAll(ctx, contractOptions(), h))
			require.NoError(t, app.Startup(ctx))
			require.Equal(t, appbase.StateStarted, h.State())

			require.NoError(t, app.Shutdown(ctx))
			require.NoError(t, app.Shutdown(ctx))
			require.Equal(t, appbase.StateStopped, h.State())

			started := app.StartedOrder()
			stopped := app.StoppedOrder()
			require.Len(t, stopped, len(started))
			for i := range started {
				require.Same(t, started[i], stopped[len(stopped)-1-i])
			}
		})
	}
}
