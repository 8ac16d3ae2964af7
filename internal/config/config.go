// Package config loads YAML case files describing a matrix-vector product
// component, its sources and the outputs to report.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Engines accepted by Config.Engine.
const (
	EngineDense = "dense"
	EngineGraph = "graph"
)

// Config is one case.
type Config struct {
	Name   string `yaml:"name"`
	Engine string `yaml:"engine"` // dense, graph

	Logging   LoggingConfig   `yaml:"logging"`
	Component ComponentConfig `yaml:"component"`
	Sources   []SourceConfig  `yaml:"sources,omitempty"`
	Report    []ReportConfig  `yaml:"report,omitempty"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console, json
}

// ComponentConfig declares the component and its default product.
type ComponentConfig struct {
	Name    string `yaml:"name"`
	Promote bool   `yaml:"promote"`

	AName   string `yaml:"A_name"`
	XName   string `yaml:"x_name"`
	BName   string `yaml:"b_name"`
	VecSize int    `yaml:"vec_size"`
	AShape  []int  `yaml:"A_shape"`
	AUnits  string `yaml:"A_units"`
	XUnits  string `yaml:"x_units"`
	BUnits  string `yaml:"b_units"`

	Products []ProductConfig `yaml:"products,omitempty"`
}

// ProductConfig declares an additional product. Zero VecSize and empty
// Shape inherit the default product's values.
type ProductConfig struct {
	AName   string `yaml:"A_name"`
	XName   string `yaml:"x_name"`
	BName   string `yaml:"b_name"`
	VecSize int    `yaml:"vec_size"`
	Shape   []int  `yaml:"shape,omitempty"`
	AUnits  string `yaml:"A_units"`
	XUnits  string `yaml:"x_units"`
	BUnits  string `yaml:"b_units"`
}

// SourceConfig feeds one component input. Units default to the input's
// units. Without Value the source is filled deterministically from Seed,
// or from its name when Seed is empty.
type SourceConfig struct {
	Name  string    `yaml:"name"`
	Units string    `yaml:"units"`
	Value []float64 `yaml:"value,omitempty"`
	Seed  string    `yaml:"seed"`
}

// ReportConfig selects an output to print and the units to print it in.
type ReportConfig struct {
	Name  string `yaml:"name"`
	Units string `yaml:"units"`
}

// Default returns a case with a single 3x3 product and no units.
func Default() *Config {
	return &Config{
		Name:   "case",
		Engine: EngineDense,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Component: ComponentConfig{
			Name:    "mvp",
			Promote: true,
			AName:   "A",
			XName:   "x",
			BName:   "b",
			VecSize: 1,
			AShape:  []int{3, 3},
		},
	}
}

// Load reads a case file on top of Default, applies environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg, err := decode(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config")
	}
	return cfg, nil
}

// Save writes the case as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "failed to write config")
}

// Validate checks the fields Setup cannot.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineDense, EngineGraph:
	default:
		return errors.Errorf("unknown engine %q", c.Engine)
	}
	if c.Component.Name == "" {
		return errors.New("component name is required")
	}
	if len(c.Component.AShape) != 2 {
		return errors.Errorf("A_shape must have 2 entries, got %v", c.Component.AShape)
	}
	for i, p := range c.Component.Products {
		if p.AName == "" || p.XName == "" || p.BName == "" {
			return errors.Errorf("product %d: A_name, x_name and b_name are required", i)
		}
		if len(p.Shape) != 0 && len(p.Shape) != 2 {
			return errors.Errorf("product %d: shape must have 2 entries, got %v", i, p.Shape)
		}
	}
	for i, s := range c.Sources {
		if s.Name == "" {
			return errors.Errorf("source %d: name is required", i)
		}
	}
	return nil
}
