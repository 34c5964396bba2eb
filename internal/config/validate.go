package config

import (
	"errors"
	"fmt"
	"math"
	"net"
	"strings"

	"golang.org/x/text/language"

	"featnav/internal/logging"
)

// Validate checks every section and reports all problems at once, each
// prefixed with the field path (e.g. "view.padding").
func (c *Config) Validate() error {
	var errs []error
	add := func(field string, err error) {
		errs = append(errs, fmt.Errorf("%s: %w", field, err))
	}

	switch c.Source.Kind {
	case KindSQLite:
		if strings.TrimSpace(c.Source.Table) == "" {
			add("source.table", errors.New("required for sqlite sources"))
		}
	case KindBolt, KindGeoJSON:
	default:
		add("source.kind", fmt.Errorf("unknown kind %q (want sqlite, bolt or geojson)", c.Source.Kind))
	}
	for i, a := range c.Source.Attributes {
		if strings.TrimSpace(a) == "" {
			add(fmt.Sprintf("source.attributes[%d]", i), errors.New("empty column name"))
		}
	}

	switch c.View.Mode {
	case Mode2D, Mode3D:
	default:
		add("view.mode", fmt.Errorf("unknown mode %q (want 2d or 3d)", c.View.Mode))
	}
	if c.View.Padding < 0 || math.IsNaN(c.View.Padding) || math.IsInf(c.View.Padding, 0) {
		add("view.padding", fmt.Errorf("must be a finite value >= 0, got %g", c.View.Padding))
	}
	if c.View.MinSize < 0 || math.IsNaN(c.View.MinSize) {
		add("view.min_size", fmt.Errorf("must be >= 0, got %g", c.View.MinSize))
	}
	// zero means default
	if c.View.FOV != 0 && (c.View.FOV <= 0 || c.View.FOV >= 180) {
		add("view.fov", fmt.Errorf("must be in (0, 180) degrees, got %g", c.View.FOV))
	}

	if c.Console.Locale != "" {
		if _, err := language.Parse(c.Console.Locale); err != nil {
			add("console.locale", err)
		}
	}
	if c.Console.ListLimit < 0 {
		add("console.list_limit", fmt.Errorf("must be >= 0, got %d", c.Console.ListLimit))
	}
	if c.Console.CommandsPerSecond < 0 {
		add("console.commands_per_second", fmt.Errorf("must be >= 0, got %g", c.Console.CommandsPerSecond))
	}

	if c.SSH.Listen != "" {
		if err := validateListenAddr(c.SSH.Listen); err != nil {
			add("ssh.listen", err)
		}
	}

	if err := validateLogLevel(c.Logging.Level); err != nil {
		add("logging.level", err)
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "text", "json":
	default:
		add("logging.format", fmt.Errorf("unknown format %q (want text or json)", c.Logging.Format))
	}

	return errors.Join(errs...)
}

func validateListenAddr(addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return errors.New("empty address")
	}
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if strings.TrimSpace(host) == "" {
		return errors.New("missing host (use 0.0.0.0 to listen on all interfaces)")
	}
	if strings.TrimSpace(port) == "" {
		return errors.New("missing port")
	}
	return nil
}

func validateLogLevel(level string) error {
	if !logging.ValidLevel(level) {
		return fmt.Errorf("unknown level %q (want debug, info, warn or error)", level)
	}
	return nil
}
