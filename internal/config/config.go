// Package config loads the board's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"TutorBoard/internal/state"
	"TutorBoard/internal/stroke"
)

type Config struct {
	Board  Board  `toml:"board"`
	Render Render `toml:"render"`
	Net    Net    `toml:"net"`
	Log    Log    `toml:"log"`
}

type Board struct {
	HistoryLimit     int     `toml:"history_limit"`
	MinPointDistance float64 `toml:"min_point_distance"`
	Grid             bool    `toml:"grid"`
	GridSize         float64 `toml:"grid_size"`
	Background       string  `toml:"background"`
	Color            string  `toml:"color"`
	BrushSize        float64 `toml:"brush_size"`
}

type Render struct {
	// Backend is auto, gpu or immediate.
	Backend string `toml:"backend"`
}

type Net struct {
	Port      int    `toml:"port"`
	Advertise bool   `toml:"advertise"`
	Name      string `toml:"name"`
}

type Log struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Board: Board{
			HistoryLimit:     state.DefaultHistoryLimit,
			MinPointDistance: stroke.DefaultMinDistance,
			Grid:             true,
			GridSize:         50,
			Background:       "#ffffff",
			Color:            "#000000",
			BrushSize:        3,
		},
		Render: Render{Backend: "auto"},
		Net:    Net{Port: 8888, Advertise: true},
		Log:    Log{Level: "info"},
	}
}

// DefaultPath is config.toml under the user's config directory, or "" when
// there is none.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tutorboard", "config.toml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		log.Default().Warn("ignoring unknown config keys", "file", path, "keys", fmt.Sprint(undecoded))
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid value, naming its key.
func (c Config) Validate() error {
	switch {
	case c.Board.HistoryLimit <= 0:
		return invalid("board.history_limit", "must be positive")
	case c.Board.MinPointDistance < 0:
		return invalid("board.min_point_distance", "must not be negative")
	case c.Board.GridSize <= 0:
		return invalid("board.grid_size", "must be positive")
	case c.Board.BrushSize <= 0:
		return invalid("board.brush_size", "must be positive")
	case !validColor(c.Board.Background):
		return invalid("board.background", "must be #rrggbb")
	case !validColor(c.Board.Color):
		return invalid("board.color", "must be #rrggbb")
	case c.Net.Port < 0 || c.Net.Port > 65535:
		return invalid("net.port", "out of range")
	}
	switch c.Render.Backend {
	case "auto", "gpu", "immediate":
	default:
		return invalid("render.backend", "must be auto, gpu or immediate")
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level", err.Error())
	}
	return nil
}

// LogLevel returns the configured level, defaulting to info.
func (c Config) LogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid config")

func invalid(key, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalid, key, reason)
}

func validColor(s string) bool {
	_, ok := state.NormalizeColor(s)
	return ok
}
