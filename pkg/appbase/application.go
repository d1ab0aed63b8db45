package appbase

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/alexisbeaulieu97/appbase/internal/registry"
	"github.com/alexisbeaulieu97/appbase/internal/telemetry"
	"github.com/alexisbeaulieu97/appbase/pkg/appdirs"
	apperrors "github.com/alexisbeaulieu97/appbase/pkg/errors"
	"github.com/alexisbeaulieu97/appbase/pkg/eventloop"
	"github.com/alexisbeaulieu97/appbase/pkg/logger"
	"github.com/alexisbeaulieu97/appbase/pkg/options"
)

// live guards the one-Application-per-process rule.
var live atomic.Bool

// Config controls Application construction.
type Config struct {
	Name    string
	Version string
	// EnvPrefix enables <PREFIX>_<OPTION> environment overrides. Empty disables them.
	EnvPrefix string
	// DefaultDirs override the ~/.<name> data and config directories.
	DefaultDirs appdirs.Dirs

	// Logger, when set, is kept across Initialize; only its level follows --log-level.
	Logger *logger.Logger
	// LogWriter receives framework logs when Logger is nil.
	LogWriter io.Writer
	// LogFormat is the --log-format default: "json" or "console".
	LogFormat string
	// Stdout receives --help, --version and --print-default-config output.
	Stdout io.Writer

	Tracer trace.Tracer
	Meter  metric.Meter
	Loop   eventloop.Config
}

// DefaultConfig returns the defaults used by New when fields are left empty.
func DefaultConfig() Config {
	return Config{
		Name:      "appbase",
		Version:   "0.0.0-dev",
		EnvPrefix: "APPBASE",
		LogWriter: os.Stderr,
		LogFormat: "json",
		Stdout:    os.Stdout,
		Loop:      eventloop.DefaultConfig(),
	}
}

// Application owns the plugin registry, the lifecycle order logs, the method
// and channel registries and the event loop.
type Application struct {
	cfg Config

	// regMu serializes registration so each plugin is constructed once.
	regMu       sync.Mutex
	mu          sync.RWMutex
	plugins     map[string]*Handle
	initialized []*Handle
	started     []*Handle
	stopped     []*Handle
	opts        *options.Values
	log         *logger.Logger

	trailMu sync.Mutex
	trail   []string

	methods  *registry.Registry
	channels *registry.Registry

	loop      *eventloop.Loop
	observer  *telemetry.Observer
	closeOnce sync.Once
}

// New creates the process's Application. It returns ErrApplicationExists
// while another Application has not been closed.
func New(cfg Config) (*Application, error) {
	if !live.CompareAndSwap(false, true) {
		return nil, apperrors.ErrApplicationExists
	}

	app, err := newApplication(cfg)
	if err != nil {
		live.Store(false)
		return nil, err
	}
	return app, nil
}

func newApplication(cfg Config) (*Application, error) {
	defaults := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = defaults.Name
	}
	if cfg.Version == "" {
		cfg.Version = defaults.Version
	}
	if cfg.LogWriter == nil {
		cfg.LogWriter = defaults.LogWriter
	}
	if cfg.Stdout == nil {
		cfg.Stdout = defaults.Stdout
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = defaults.LogFormat
	}

	log := cfg.Logger
	if log == nil {
		var err error
		log, err = logger.New(logger.Options{
			Level:         "info",
			HumanReadable: cfg.LogFormat == "console",
			Writer:        cfg.LogWriter,
		})
		if err != nil {
			return nil, err
		}
	}

	observer, err := telemetry.New(telemetry.Config{
		Tracer:            cfg.Tracer,
		Meter:             cfg.Meter,
		RuntimeCollectors: true,
	})
	if err != nil {
		return nil, err
	}

	app := &Application{
		cfg:      cfg,
		plugins:  make(map[string]*Handle),
		opts:     options.FromMap(nil),
		log:      log.With("component", "appbase"),
		methods:  registry.New("method"),
		channels: registry.New("channel"),
		observer: observer,
	}

	loopCfg := cfg.Loop
	if loopCfg.PanicHandler == nil {
		loopCfg.PanicHandler = func(recovered any) {
			app.Logger().Error(fmt.Errorf("%v", recovered), "event loop task panicked")
		}
	}
	app.loop, err = eventloop.New(loopCfg)
	if err != nil {
		return nil, err
	}

	return app, nil
}

// Close stops the event loop, frees its workers and allows a new Application
// to be created. It does not shut plugins down; call Shutdown first.
func (a *Application) Close() {
	a.closeOnce.Do(func() {
		a.loop.Release()
		live.Store(false)
	})
}

// Name returns the application name.
func (a *Application) Name() string { return a.cfg.Name }

// Version returns the application version.
func (a *Application) Version() string { return a.cfg.Version }

// Loop returns the shared event loop.
func (a *Application) Loop() *eventloop.Loop { return a.loop }

// Gatherer exposes lifecycle metrics for scraping.
func (a *Application) Gatherer() prometheus.Gatherer { return a.observer.Gatherer() }

// StateCounts reports how many plugins are in each state.
func (a *Application) StateCounts() (map[string]int, error) { return a.observer.StateCounts() }

// Options returns the values passed to the most recent initialize.
func (a *Application) Options() *options.Values {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.opts
}

// Dirs returns the resolved data and config directories.
func (a *Application) Dirs() appdirs.Dirs {
	return a.Options().Dirs()
}

// Logger returns the framework logger.
func (a *Application) Logger() *logger.Logger {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.log
}

func (a *Application) setLogger(log *logger.Logger) {
	a.mu.Lock()
	a.log = log
	a.mu.Unlock()
}

func (a *Application) setOptions(opts *options.Values) {
	a.mu.Lock()
	a.opts = opts
	a.mu.Unlock()
}

// InitializedOrder returns the plugins in the order they finished initializing.
func (a *Application) InitializedOrder() []*Handle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]*Handle(nil), a.initialized...)
}

// StartedOrder returns the plugins in the order they finished starting.
func (a *Application) StartedOrder() []*Handle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]*Handle(nil), a.started...)
}

// StoppedOrder returns the plugins in the order their Shutdown hooks ran.
func (a *Application) StoppedOrder() []*Handle {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]*Handle(nil), a.stopped...)
}

func (a *Application) record(target State, h *Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch target {
	case StateInitialized:
		a.initialized = append(a.initialized, h)
	case StateStarted:
		a.started = append(a.started, h)
	case StateStopped:
		a.stopped = append(a.stopped, h)
	}
}
