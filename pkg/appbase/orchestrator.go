package appbase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/alexisbeaulieu97/appbase/pkg/errors"
	"github.com/alexisbeaulieu97/appbase/pkg/logger"
	"github.com/alexisbeaulieu97/appbase/pkg/options"
)

// InitializeAll initializes each handle, dependencies first, and stops at the
// first failure.
func (a *Application) InitializeAll(ctx context.Context, opts *options.Values, handles ...*Handle) error {
	if opts == nil {
		opts = options.FromMap(nil)
	}
	a.setOptions(opts)

	for _, h := range handles {
		if h == nil {
			continue
		}
		if err := h.Initialize(ctx, opts); err != nil {
			return err
		}
	}
	return nil
}

// Initialize parses args, configures logging and directories, then
// initializes the autostart plugins and every plugin named with --plugin.
// It returns false without initializing anything when args only asked for
// help, version or the default config, or when an error occurred.
func (a *Application) Initialize(ctx context.Context, args []string, autostart ...*Type) (bool, error) {
	handles := make([]*Handle, 0, len(autostart))
	for _, t := range autostart {
		h, err := a.Register(t)
		if err != nil {
			return false, err
		}
		handles = append(handles, h)
	}

	parser, values, err := a.parseOptions(args)
	if err != nil {
		return false, err
	}
	if values.EarlyExit() {
		return false, a.printEarlyExit(values, parser)
	}

	settings, err := values.Settings()
	if err != nil {
		return false, err
	}
	if err := a.configureLogger(settings); err != nil {
		return false, err
	}
	log := a.Logger()
	if ignored := values.IgnoredKeys(); len(ignored) > 0 {
		log.WithFields(map[string]any{"keys": ignored, "file": values.ConfigPath()}).
			Warn("ignoring unknown config file keys")
	}
	if err := values.Dirs().Ensure(); err != nil {
		return false, err
	}

	for _, name := range settings.Plugins {
		h, err := a.Get(name)
		if err != nil {
			return false, err
		}
		handles = append(handles, h)
	}

	log.WithFields(map[string]any{
		"data_dir":   values.Dirs().Data,
		"config_dir": values.Dirs().Config,
		"plugins":    len(handles),
	}).Info("initializing plugins")

	if err := a.InitializeAll(ctx, values, handles...); err != nil {
		return false, err
	}
	return true, nil
}

// ConfigDiff parses args like Initialize and returns a unified diff from the
// default config to the config file in use. Nothing is initialized.
func (a *Application) ConfigDiff(args []string) (string, error) {
	parser, values, err := a.parseOptions(args)
	if err != nil {
		return "", err
	}
	if values.EarlyExit() {
		return "", a.printEarlyExit(values, parser)
	}
	return options.DiffDefaults(parser.Schema(), values.ConfigPath())
}

// parseOptions collects every registered plugin's options and parses args.
func (a *Application) parseOptions(args []string) (*options.Parser, *options.Values, error) {
	parser := options.NewParser(options.Config{
		AppName:          a.cfg.Name,
		EnvPrefix:        a.cfg.EnvPrefix,
		DefaultDirs:      a.cfg.DefaultDirs,
		DefaultLogFormat: a.cfg.LogFormat,
	})
	for _, h := range a.Plugins() {
		if err := declareOptions(h, parser.Schema()); err != nil {
			return nil, nil, err
		}
	}

	values, err := parser.Parse(args)
	if err != nil {
		return nil, nil, err
	}
	return parser, values, nil
}

func declareOptions(h *Handle, schema *options.Schema) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = apperrors.NewValidationError(h.Name()+".options", fmt.Sprint(recovered), nil)
		}
	}()
	h.impl.DeclareOptions(schema)
	return nil
}

func (a *Application) printEarlyExit(values *options.Values, parser *options.Parser) error {
	out := a.cfg.Stdout
	switch {
	case values.Help():
		_, err := fmt.Fprintf(out, "Usage of %s:\n%s", a.cfg.Name, parser.Usage())
		return err
	case values.ShowVersion():
		_, err := fmt.Fprintln(out, a.cfg.Version)
		return err
	default:
		return options.WriteDefaults(out, parser.Schema())
	}
}

func (a *Application) configureLogger(settings options.Settings) error {
	if a.cfg.Logger != nil {
		log, err := a.cfg.Logger.WithLevel(settings.LogLevel)
		if err != nil {
			return err
		}
		a.setLogger(log.With("component", "appbase"))
		return nil
	}

	log, err := logger.New(logger.Options{
		Level:         settings.LogLevel,
		HumanReadable: strings.EqualFold(settings.LogFormat, "console"),
		Writer:        a.cfg.LogWriter,
	})
	if err != nil {
		return err
	}
	a.setLogger(log.With("component", "appbase"))
	return nil
}

// Startup starts every initialized plugin in initialization order. When a
// plugin fails to start, the plugins already started are shut down in
// reverse order and the startup error is returned.
func (a *Application) Startup(ctx context.Context) error {
	for _, h := range a.InitializedOrder() {
		if err := h.Startup(ctx); err != nil {
			a.Logger().Error(err, "startup failed, shutting down started plugins")
			if shutdownErr := a.Shutdown(ctx); shutdownErr != nil {
				a.Logger().Error(shutdownErr, "shutdown after failed startup")
			}
			return err
		}
	}
	a.Logger().WithFields(map[string]any{"plugins": len(a.StartedOrder())}).Info("plugins started")
	return nil
}

// Shutdown stops every started plugin in reverse startup order. Every plugin
// is attempted; failures are logged and returned together.
func (a *Application) Shutdown(ctx context.Context) error {
	started := a.StartedOrder()
	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		if err := started[i].Shutdown(ctx); err != nil {
			started[i].logger().Error(err, "plugin shutdown failed")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
