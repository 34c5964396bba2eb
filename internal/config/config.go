package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Source kinds.
const (
	KindSQLite  = "sqlite"
	KindBolt    = "bolt"
	KindGeoJSON = "geojson"
)

// View modes.
const (
	Mode2D = "2d"
	Mode3D = "3d"
)

type Config struct {
	Source  SourceConfig  `toml:"source"`
	View    ViewConfig    `toml:"view"`
	Console ConsoleConfig `toml:"console"`
	SSH     SSHConfig     `toml:"ssh"`
	Logging LoggingConfig `toml:"logging"`
}

// SourceConfig selects where records are loaded from. Table, IDColumn,
// GeometryColumn and Attributes apply to sqlite; Bucket to bolt; IDProperty
// to geojson.
type SourceConfig struct {
	Kind           string   `toml:"kind"`
	Path           string   `toml:"path"`
	Table          string   `toml:"table"`
	IDColumn       string   `toml:"id_column"`
	GeometryColumn string   `toml:"geometry_column"`
	Attributes     []string `toml:"attributes"`
	Bucket         string   `toml:"bucket"`
	IDProperty     string   `toml:"id_property"`
}

type ViewConfig struct {
	Mode    string  `toml:"mode"`
	Padding float64 `toml:"padding"`
	MinSize float64 `toml:"min_size"`
	FOV     float64 `toml:"fov"`
}

type ConsoleConfig struct {
	Prompt            string  `toml:"prompt"`
	Locale            string  `toml:"locale"`
	ListLimit         int     `toml:"list_limit"`
	CommandsPerSecond float64 `toml:"commands_per_second"`
}

// SSHConfig enables the remote console when Listen is set.
type SSHConfig struct {
	Listen  string `toml:"listen"`
	DataDir string `toml:"data_dir"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		Source: SourceConfig{
			Kind:           KindSQLite,
			IDColumn:       "OBJECTID",
			GeometryColumn: "geometry",
			Bucket:         "records",
		},
		View: ViewConfig{
			Mode:    Mode2D,
			Padding: 0.1,
			MinSize: 1.0,
			FOV:     60,
		},
		Console: ConsoleConfig{
			Prompt:            "featnav> ",
			Locale:            "en",
			ListLimit:         50,
			CommandsPerSecond: 20,
		},
		SSH: SSHConfig{
			DataDir: "~/.featnav",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML config file and returns the parsed Config.
// If path is empty, only defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		// Try default location
		path = expandHome("~/.featnav/config.toml")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// ExpandHome resolves a leading ~/ to the user's home directory.
func ExpandHome(path string) string {
	return expandHome(path)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
