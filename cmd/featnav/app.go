package main

import (
	"context"
	"fmt"
	"io"

	"featnav/internal/config"
	"featnav/internal/console"
	"featnav/internal/navigator"
	"featnav/internal/source"
	"featnav/internal/source/bolt"
	"featnav/internal/source/geojson"
	"featnav/internal/source/sqlite"
	"featnav/internal/status"
	"featnav/internal/view"
)

// openSource builds the configured reader. The returned close function is
// always non-nil.
func openSource(cfg config.SourceConfig) (source.Source, func() error, error) {
	nop := func() error { return nil }
	switch cfg.Kind {
	case config.KindSQLite:
		src, err := sqlite.Open(cfg.Path, sqlite.Options{
			Table:          cfg.Table,
			IDColumn:       cfg.IDColumn,
			GeometryColumn: cfg.GeometryColumn,
			Attributes:     cfg.Attributes,
		})
		if err != nil {
			return nil, nop, err
		}
		return src, src.Close, nil
	case config.KindBolt:
		ds, err := bolt.OpenReadOnly(cfg.Path, cfg.Bucket)
		if err != nil {
			return nil, nop, err
		}
		return ds, ds.Close, nil
	case config.KindGeoJSON:
		return geojson.New(cfg.Path, geojson.Options{IDProperty: cfg.IDProperty}), nop, nil
	}
	return nil, nop, fmt.Errorf("unknown source kind %q", cfg.Kind)
}

// app is one loaded navigator with its sinks and console environment.
type app struct {
	cfg     *config.Config
	nav     *navigator.Navigator
	hub     *status.Hub // nil without live sessions
	env     *console.Env
	closeFn func() error
}

// newApp opens the source and wires the navigator. With hub set, status
// lines go to the hub's sessions; otherwise they are printed to statusOut
// when it is non-nil. The navigator is not loaded yet.
func newApp(cfg *config.Config, withHub bool, statusOut io.Writer) (*app, error) {
	src, closeFn, err := openSource(cfg.Source)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "opening source", err)
	}

	f := status.NewFormatter(cfg.Console.Locale)
	a := &app{cfg: cfg, closeFn: closeFn}

	var opts []navigator.Option
	switch {
	case withHub:
		a.hub = status.NewHub(f)
		go a.hub.Run()
		opts = append(opts, navigator.WithStatus(a.hub))
	case statusOut != nil:
		opts = append(opts, navigator.WithStatus(status.NewWriter(statusOut, f)))
	}
	a.nav = navigator.New(src, opts...)

	a.env = &console.Env{Nav: a.nav, Hub: a.hub, Format: f, ListLimit: cfg.Console.ListLimit}
	m := view.NewMap(cfg.View.Padding, cfg.View.MinSize)
	s := view.NewScene(cfg.View.FOV, cfg.View.Padding)
	// the configured mode is added first and becomes active
	if cfg.View.Mode == config.Mode3D {
		a.env.AddView("scene", s)
		a.env.AddView("map", m)
	} else {
		a.env.AddView("map", m)
		a.env.AddView("scene", s)
	}
	return a, nil
}

// load runs the initial reload. Load failures are command failures: the
// operator asked for a source that cannot be navigated.
func (a *app) load(ctx context.Context) (int, error) {
	n, err := a.nav.Reload(ctx)
	if err != nil {
		return 0, WrapExitError(ExitFailure, fmt.Sprintf("loading %s [%s]", a.nav.Source().Name(), navigator.Code(err)), err)
	}
	return n, nil
}

func (a *app) console() *console.Console {
	return console.New(a.env, console.NewRateLimiter(a.cfg.Console.CommandsPerSecond))
}

func (a *app) Close() error {
	if a.hub != nil {
		a.hub.Stop()
	}
	return a.closeFn()
}
