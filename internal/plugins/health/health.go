// Package health serves liveness, readiness and metrics endpoints for the
// running application.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/valyala/bytebufferpool"

	"github.com/alexisbeaulieu97/appbase/pkg/appbase"
	"github.com/alexisbeaulieu97/appbase/pkg/logger"
	"github.com/alexisbeaulieu97/appbase/pkg/options"
)

// Option names.
const (
	OptListen           = "health-listen"
	OptBindAttempts     = "health-bind-attempts"
	OptMaxMemoryPercent = "health-max-memory-percent"
)

// Option defaults.
const (
	DefaultListen           = "127.0.0.1:8090"
	DefaultBindAttempts     = 3
	DefaultMaxMemoryPercent = 95.0

	maxGoroutines   = 10000
	checkTimeout    = time.Second
	shutdownTimeout = 5 * time.Second
)

// Type registers the health plugin.
var Type = &appbase.Type{
	Name:        "health",
	Version:     "1.0.0",
	Description: "Liveness, readiness and Prometheus metrics over HTTP",
	New:         New,
}

// Plugin serves /live, /ready, /plugins and /metrics.
type Plugin struct {
	appbase.Base

	app *appbase.Application
	log *logger.Logger

	listen   string
	attempts int
	maxMem   float64

	// memoryPercent reports system memory use; replaced in tests.
	memoryPercent func() (float64, error)

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

// New constructs the plugin.
func New(app *appbase.Application) appbase.Plugin {
	return &Plugin{app: app, memoryPercent: usedMemoryPercent}
}

func (p *Plugin) DeclareOptions(schema *options.Schema) {
	schema.File.String(OptListen, DefaultListen, "Address the health endpoints listen on")
	schema.File.Int(OptBindAttempts, DefaultBindAttempts, "Attempts to bind the listen address before giving up")
	schema.File.Float64(OptMaxMemoryPercent, DefaultMaxMemoryPercent, "Report not ready while system memory use is above this percentage")
}

func (p *Plugin) Initialize(_ context.Context, opts *options.Values) error {
	p.log = p.app.Logger().With("plugin", Type.Name)

	p.listen = DefaultListen
	if listen := opts.GetString(OptListen); listen != "" {
		p.listen = listen
	}
	if _, _, err := net.SplitHostPort(p.listen); err != nil {
		return fmt.Errorf("invalid %s %q: %w", OptListen, p.listen, err)
	}

	p.attempts = DefaultBindAttempts
	if opts.IsSet(OptBindAttempts) {
		p.attempts = opts.GetInt(OptBindAttempts)
	}
	if p.attempts < 1 {
		return fmt.Errorf("%s must be at least 1, got %d", OptBindAttempts, p.attempts)
	}

	p.maxMem = DefaultMaxMemoryPercent
	if opts.IsSet(OptMaxMemoryPercent) {
		p.maxMem = opts.GetFloat64(OptMaxMemoryPercent)
	}

	checks := healthcheck.NewHandler()
	checks.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(maxGoroutines))
	checks.AddReadinessCheck("plugins-started", p.pluginsStarted)
	checks.AddReadinessCheck("memory", healthcheck.Timeout(p.memoryBelowLimit, checkTimeout))

	mux := http.NewServeMux()
	mux.Handle("/live", checks)
	mux.Handle("/ready", checks)
	mux.HandleFunc("/plugins", p.servePlugins)
	mux.Handle("/metrics", promhttp.HandlerFor(p.app.Gatherer(), promhttp.HandlerOpts{}))

	p.mu.Lock()
	p.srv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) Startup(ctx context.Context) error {
	ln, err := p.bind(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.ln = ln
	srv := p.srv
	p.mu.Unlock()

	if err := p.app.Loop().Go(func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.log.Error(err, "health server stopped")
		}
	}); err != nil {
		_ = ln.Close()
		return err
	}

	p.log.WithFields(map[string]any{"addr": ln.Addr().String()}).Info("health endpoints listening")
	return nil
}

func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	srv := p.srv
	p.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}

// Addr returns the bound listen address, or "" before startup.
func (p *Plugin) Addr() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ln == nil {
		return ""
	}
	return p.ln.Addr().String()
}

func (p *Plugin) bind(ctx context.Context) (net.Listener, error) {
	var (
		lc net.ListenConfig
		ln net.Listener
	)
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(p.attempts-1)),
		ctx,
	)
	err := backoff.Retry(func() error {
		var err error
		ln, err = lc.Listen(ctx, "tcp", p.listen)
		if err != nil {
			p.log.WithFields(map[string]any{"addr": p.listen}).Warn("health listener bind failed")
		}
		return err
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", p.listen, err)
	}
	return ln, nil
}

func (p *Plugin) pluginsStarted() error {
	for _, h := range p.app.InitializedOrder() {
		if state := h.State(); state != appbase.StateStarted {
			return fmt.Errorf("plugin %s is %s", h.Name(), state)
		}
	}
	return nil
}

func (p *Plugin) memoryBelowLimit() error {
	used, err := p.memoryPercent()
	if err != nil {
		return err
	}
	if used > p.maxMem {
		return fmt.Errorf("memory use %.1f%% exceeds %.1f%%", used, p.maxMem)
	}
	return nil
}

type pluginsReport struct {
	Plugins map[string]string `json:"plugins"`
	States  map[string]int    `json:"states"`
}

func (p *Plugin) servePlugins(w http.ResponseWriter, _ *http.Request) {
	report := pluginsReport{Plugins: make(map[string]string)}
	for _, h := range p.app.Plugins() {
		report.Plugins[h.Name()] = h.State().String()
	}
	states, err := p.app.StateCounts()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	report.States = states

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := json.NewEncoder(buf).Encode(report); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.B)
}

func usedMemoryPercent() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("read memory stats: %w", err)
	}
	return vm.UsedPercent, nil
}
