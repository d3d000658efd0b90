// Package app wires configuration loading, the session registry, and the
// config-file watcher into one unit: sessions for a project whose server
// settings track the project's tide.toml. A change to the file reloads
// settings and restarts the running session so the replacement server picks
// them up.
package app

import (
	"context"
	"errors"
	"path/filepath"

	"github.com/razumit/tide/internal/config"
	"github.com/razumit/tide/internal/tsserver"
	"github.com/razumit/tide/internal/watcher"
)

// App owns a registry configured from a project's tide.toml.
type App struct {
	project string
	reg     *tsserver.Registry
	watch   *watcher.Watcher

	extra    []tsserver.RegistryOption
	onReload func(cfg *config.Config, err error)
}

// Option configures the app.
type Option func(*App)

// WithRegistryOptions appends registry options applied after the
// configuration-derived ones, so callers can install hooks or override
// settings for tests.
func WithRegistryOptions(opts ...tsserver.RegistryOption) Option {
	return func(a *App) {
		a.extra = append(a.extra, opts...)
	}
}

// WithReloadCallback sets a hook invoked after each config-change reload
// attempt. On success cfg holds the freshly loaded configuration; when
// loading fails cfg is nil and err carries the failure, with the previous
// settings left in effect.
func WithReloadCallback(cb func(cfg *config.Config, err error)) Option {
	return func(a *App) {
		a.onReload = cb
	}
}

// New loads the project's configuration, builds the registry from it, and
// begins watching the config file.
func New(project string, opts ...Option) (*App, error) {
	project, err := filepath.Abs(project)
	if err != nil {
		return nil, err
	}

	a := &App{project: project}
	for _, opt := range opts {
		opt(a)
	}

	cfg, err := config.Load(project)
	if err != nil {
		return nil, err
	}
	a.reg = tsserver.NewRegistry(a.options(cfg)...)

	w, err := watcher.New(a.reloadConfig)
	if err != nil {
		return nil, err
	}
	if err := w.Watch(config.Path(project)); err != nil {
		w.Close()
		return nil, err
	}
	a.watch = w
	return a, nil
}

// options maps configuration onto registry settings, with caller-supplied
// options layered last.
func (a *App) options(cfg *config.Config) []tsserver.RegistryOption {
	opts := []tsserver.RegistryOption{
		tsserver.WithCommand(cfg.Command, cfg.Args...),
		tsserver.WithEnv(cfg.Env),
		tsserver.WithRequestTimeout(cfg.Timeout.Std()),
		tsserver.WithVerbose(cfg.Verbose),
		tsserver.WithMaxFrameSize(cfg.MaxFrameSize),
	}
	return append(opts, a.extra...)
}

// Start launches the project's session.
func (a *App) Start(ctx context.Context) (*tsserver.Session, error) {
	return a.reg.Start(ctx, a.project)
}

// Registry exposes the underlying session registry.
func (a *App) Registry() *tsserver.Registry {
	return a.reg
}

// Project returns the absolute project root.
func (a *App) Project() string {
	return a.project
}

// reloadConfig reacts to a config file change: reload settings, apply them
// to the registry, and restart the running session so the new server sees
// them. With no session running the new settings simply wait for the next
// Start.
func (a *App) reloadConfig(string) {
	cfg, err := config.Load(a.project)
	if err == nil {
		a.reg.Reconfigure(a.options(cfg)...)
		if a.reg.Current(a.project) != nil {
			_, err = a.reg.Restart(context.Background(), a.project)
		}
	}
	if a.onReload != nil {
		a.onReload(cfg, err)
	}
}

// Close stops the watcher and every session.
func (a *App) Close() error {
	werr := a.watch.Close()
	serr := a.reg.Shutdown(context.Background())
	return errors.Join(werr, serr)
}
