package health

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/appbase/pkg/appbase"
	apperrors "github.com/alexisbeaulieu97/appbase/pkg/errors"
	"github.com/alexisbeaulieu97/appbase/pkg/options"
)

func newApp(t *testing.T) *appbase.Application {
	t.Helper()

	app, err := appbase.New(appbase.Config{Name: "healthtest", LogWriter: io.Discard})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app
}

func startHealth(t *testing.T, app *appbase.Application, settings map[string]any, memory float64) (*appbase.Handle, *Plugin) {
	t.Helper()
	ctx := context.Background()

	h, err := app.Register(Type)
	require.NoError(t, err)
	p, ok := appbase.Lookup[*Plugin](app, Type)
	require.True(t, ok)
	p.memoryPercent = func() (float64, error) { return memory, nil }

	if settings == nil {
		settings = map[string]any{}
	}
	if _, ok := settings[OptListen]; !ok {
		settings[OptListen] = "127.0.0.1:0"
	}
	require.NoError(t, app.InitializeAll(ctx, options.FromMap(settings), h))
	require.NoError(t, app.Startup(ctx))
	t.Cleanup(func() { _ = app.Shutdown(context.Background()) })
	return h, p
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestEndpointsServeWhenStarted(t *testing.T) {
	app := newApp(t)
	_, p := startHealth(t, app, nil, 10)
	base := "http://" + p.Addr()

	status, _ := get(t, base+"/live")
	require.Equal(t, http.StatusOK, status)

	status, _ = get(t, base+"/ready")
	require.Equal(t, http.StatusOK, status)

	status, body := get(t, base+"/metrics")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, "appbase_plugin_transitions_total")

	status, body = get(t, base+"/plugins")
	require.Equal(t, http.StatusOK, status)
	var report pluginsReport
	require.NoError(t, json.Unmarshal([]byte(body), &report))
	require.Equal(t, "started", report.Plugins["health"])
	require.Equal(t, 1, report.States["started"])
}

func TestReadyFailsAboveMemoryLimit(t *testing.T) {
	app := newApp(t)
	_, p := startHealth(t, app, map[string]any{OptMaxMemoryPercent: 50.0}, 80)

	status, body := get(t, "http://"+p.Addr()+"/ready?full=1")
	require.Equal(t, http.StatusServiceUnavailable, status)
	require.Contains(t, body, "memory")
}

func TestReadyFailsWhilePluginNotStarted(t *testing.T) {
	app := newApp(t)
	_, p := startHealth(t, app, nil, 10)

	idle := &appbase.Type{Name: "idle", New: func(*appbase.Application) appbase.Plugin { return &appbase.Base{} }}
	h, err := app.Register(idle)
	require.NoError(t, err)
	require.NoError(t, h.Initialize(context.Background(), nil))

	status, _ := get(t, "http://"+p.Addr()+"/ready")
	require.Equal(t, http.StatusServiceUnavailable, status)
}

func TestShutdownStopsServer(t *testing.T) {
	app := newApp(t)
	h, p := startHealth(t, app, nil, 10)
	addr := p.Addr()

	require.NoError(t, h.Shutdown(context.Background()))

	_, err := http.Get("http://" + addr + "/live")
	require.Error(t, err)
}

func TestStartupFailsWhenAddressTaken(t *testing.T) {
	app := newApp(t)
	taken, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer taken.Close()

	h, err := app.Register(Type)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, app.InitializeAll(ctx, options.FromMap(map[string]any{
		OptListen:       taken.Addr().String(),
		OptBindAttempts: 1,
	}), h))

	err = app.Startup(ctx)
	var pluginErr *apperrors.PluginError
	require.ErrorAs(t, err, &pluginErr)
	require.Equal(t, "startup", pluginErr.Hook)
	require.Equal(t, appbase.StateInitialized, h.State())
}

func TestInitializeRejectsBadOptions(t *testing.T) {
	app := newApp(t)
	h, err := app.Register(Type)
	require.NoError(t, err)

	err = h.Initialize(context.Background(), options.FromMap(map[string]any{OptListen: "no-port"}))
	require.Error(t, err)

	err = h.Initialize(context.Background(), options.FromMap(map[string]any{OptBindAttempts: 0}))
	require.True(t, errors.As(err, new(*apperrors.PluginError)))
	require.Equal(t, appbase.StateRegistered, h.State())
}
