// Package config loads geopolygonize's run configuration: built-in defaults,
// overridden by an optional YAML file. The CLI has no flags for individual
// settings, so the YAML file is the only override.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the conversion pipeline (spec.md §6).
type Config struct {
	TileSize                  int      `yaml:"tile_size" doc:"Maximum tile width/height in pixels" default:"200"`
	Workers                   int      `yaml:"workers" doc:"Number of concurrent tile workers" default:"4"`
	MinBlobSize               int      `yaml:"min_blob_size" doc:"Connected components smaller than this are repainted before tiling" default:"0"`
	MetersPerPixel            float64  `yaml:"meters_per_pixel" doc:"World-unit size of one pixel, used to convert the simplification window to a tolerance" default:"1"`
	SimplificationPixelWindow float64  `yaml:"simplification_pixel_window" doc:"RDP tolerance in pixels" default:"2"`
	SmoothingIterations       int      `yaml:"smoothing_iterations" doc:"Number of Chaikin smoothing passes" default:"5"`
	Transforms                []string `yaml:"transforms" doc:"Named arc transforms to apply in order" default:"[rdp,chaikin]"`
}

// Default returns the built-in defaults (spec.md §6).
func Default() Config {
	return Config{
		TileSize:                  200,
		Workers:                   4,
		MinBlobSize:               0,
		MetersPerPixel:            1,
		SimplificationPixelWindow: 2,
		SmoothingIterations:       5,
		Transforms:                []string{"rdp", "chaikin"},
	}
}

// Load builds a Config by starting from Default() and merging in yamlPath's
// contents if non-empty. Fields the YAML file does not set keep their
// defaults.
func Load(yamlPath string) (Config, error) {
	cfg := Default()
	if yamlPath == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(yamlPath)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", yamlPath, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", yamlPath, err)
	}
	return cfg, nil
}

// Validate reports whether cfg's values are usable, per spec.md §7's
// Configuration error class.
func (c Config) Validate() error {
	if c.TileSize <= 0 {
		return fmt.Errorf("tile_size must be positive, got %d", c.TileSize)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if c.MinBlobSize < 0 {
		return fmt.Errorf("min_blob_size must be >= 0, got %d", c.MinBlobSize)
	}
	if c.MetersPerPixel <= 0 {
		return fmt.Errorf("meters_per_pixel must be positive, got %g", c.MetersPerPixel)
	}
	if c.SimplificationPixelWindow < 0 {
		return fmt.Errorf("simplification_pixel_window must be >= 0, got %g", c.SimplificationPixelWindow)
	}
	if c.SmoothingIterations < 0 {
		return fmt.Errorf("smoothing_iterations must be >= 0, got %d", c.SmoothingIterations)
	}
	return nil
}
