package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pagemark/pagemark/annotation"
)

// Config holds the pagemark CLI configuration.
type Config struct {
	// Color is the annotation color as "#RRGGBB".
	Color string `yaml:"color"`
	// StrokeWidth is the drawing stroke width in pixels.
	StrokeWidth float64 `yaml:"stroke_width"`
	// Scale is the render scale factor.
	Scale float64 `yaml:"scale"`
	// Blank configures the document created when no input file is given.
	Blank BlankConfig `yaml:"blank"`
}

// BlankConfig sizes the generated blank document.
type BlankConfig struct {
	Pages  int     `yaml:"pages"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// DefaultConfig returns sane defaults: yellow annotations on US Letter.
func DefaultConfig() *Config {
	return &Config{
		Color:       "#FFFF00",
		StrokeWidth: 2,
		Scale:       1.0,
		Blank:       BlankConfig{Pages: 1, Width: 612, Height: 792},
	}
}

// LoadConfig reads a YAML config file merged over DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks that values are sane.
func (c *Config) Validate() error {
	if _, err := c.AnnotationColor(); err != nil {
		return err
	}
	if c.StrokeWidth <= 0 {
		return fmt.Errorf("stroke_width must be positive")
	}
	if c.Scale <= 0 {
		return fmt.Errorf("scale must be positive")
	}
	if c.Blank.Pages < 1 {
		return fmt.Errorf("blank.pages must be at least 1")
	}
	if c.Blank.Width <= 0 || c.Blank.Height <= 0 {
		return fmt.Errorf("blank page dimensions must be positive")
	}
	return nil
}

// AnnotationColor parses the configured "#RRGGBB" color.
func (c *Config) AnnotationColor() (annotation.Color, error) {
	s := strings.TrimPrefix(c.Color, "#")
	if len(s) != 6 {
		return 0, fmt.Errorf("color %q: want #RRGGBB", c.Color)
	}
	n, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color %q: %w", c.Color, err)
	}
	return annotation.Color(n), nil
}
