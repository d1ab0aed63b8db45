package appbase

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/appbase/pkg/appdirs"
	"github.com/alexisbeaulieu97/appbase/pkg/options"
)

type journal struct {
	mu     sync.Mutex
	events []string
}

func (j *journal) add(event string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, event)
}

func (j *journal) list() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.events...)
}

type testPlugin struct {
	Base
	name    string
	deps    []Dependency
	journal *journal
	fail    map[string]error
	declare func(*options.Schema)
	opts    *options.Values
}

func (p *testPlugin) Requires() []Dependency { return p.deps }

func (p *testPlugin) DeclareOptions(schema *options.Schema) {
	if p.declare != nil {
		p.declare(schema)
	}
}

func (p *testPlugin) Initialize(_ context.Context, opts *options.Values) error {
	p.opts = opts
	return p.hook("initialize")
}

func (p *testPlugin) Startup(context.Context) error  { return p.hook("startup") }
func (p *testPlugin) Shutdown(context.Context) error { return p.hook("shutdown") }

func (p *testPlugin) hook(name string) error {
	if err := p.fail[name]; err != nil {
		return err
	}
	if p.journal != nil {
		p.journal.add(name + ":" + p.name)
	}
	return nil
}

// pluginSpec describes a test plugin type. Dependencies are resolved lazily so
// specs may refer to each other.
type pluginSpec struct {
	name    string
	version string
	deps    func() []Dependency
	fail    map[string]error
	declare func(*options.Schema)
}

func newType(spec pluginSpec, j *journal, constructed *atomic.Int32) *Type {
	version := spec.version
	if version == "" {
		version = "1.0.0"
	}
	return &Type{
		Name:    spec.name,
		Version: version,
		New: func(*Application) Plugin {
			if constructed != nil {
				constructed.Add(1)
			}
			var deps []Dependency
			if spec.deps != nil {
				deps = spec.deps()
			}
			return &testPlugin{name: spec.name, deps: deps, journal: j, fail: spec.fail, declare: spec.declare}
		},
	}
}

func newTestApp(t *testing.T) (*Application, *bytes.Buffer) {
	t.Helper()

	root := t.TempDir()
	stdout := &bytes.Buffer{}
	app, err := New(Config{
		Name:      "apptest",
		Version:   "1.2.3",
		EnvPrefix: "APPTEST",
		DefaultDirs: appdirs.Dirs{
			Data:   filepath.Join(root, "data"),
			Config: filepath.Join(root, "etc"),
		},
		LogWriter: io.Discard,
		Stdout:    stdout,
	})
	require.NoError(t, err)
	t.Cleanup(app.Close)
	return app, stdout
}

func names(handles []*Handle) []string {
	out := make([]string, 0, len(handles))
	for _, h := range handles {
		out = append(out, h.Name())
	}
	return out
}
