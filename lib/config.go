package lib

import (
	"os"

	"gopkg.in/yaml.v3"
)

/*
	Export settings, loadable from a yaml file next to the board. All
	fields have working defaults; a missing file is not an error.
*/
type Config struct {
	Layers        []string `yaml:"layers"`
	Precision     int      `yaml:"precision"`
	Epsilon       float64  `yaml:"epsilon"`
	MaxComponents int      `yaml:"max_components"`
	Archive       bool     `yaml:"archive"`
}

func DefaultConfig() *Config {
	return &Config{
		Layers: []string{
			"F.Cu", "B.Cu",
			"F.SilkS", "B.SilkS",
			"F.Mask", "B.Mask",
			"Edge.Cuts",
		},
		Precision:     4,
		Epsilon:       0.00005,
		MaxComponents: 20000,
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" || !Exists(path) {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}

	if cfg.Precision <= 0 {
		cfg.Precision = 4
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = 0.00005
	}

	return cfg, nil
}
