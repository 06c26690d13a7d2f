package anchor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultLayers are the road-attribute layers whose decoded partition files
// are picked up by the directory walk.
var DefaultLayers = []string{
	"topology-attributes",
	"advanced-navigation-attributes",
	"complex-road-attributes",
	"navigation-attributes",
	"road-attributes",
	"traffic-patterns",
	"sign-text",
	"generalized-junctions-signs",
	"bicycle-attributes",
	"address-attributes",
	"adas-attributes",
	"truck-attributes",
	"recreational-vehicle-attributes",
}

const (
	// DefaultGeometrySegmentsFile is the per-directory GeoJSON file the
	// segment geometry index is loaded from.
	DefaultGeometrySegmentsFile = "topology-geometry-segments.geojson"
	// DefaultGeometryNodesFile is the node counterpart.
	DefaultGeometryNodesFile = "topology-geometry-nodes.geojson"

	// DefaultWorkers bounds concurrent partition processing.
	DefaultWorkers = 4

	// DefaultCatalogTimeoutSeconds is the per-request timeout for the
	// supplemental street-names download.
	DefaultCatalogTimeoutSeconds = 30
)

// DefaultConfig returns a Config with every default filled in.
func DefaultConfig() *Config {
	return &Config{
		Layers:  append([]string(nil), DefaultLayers...),
		Workers: DefaultWorkers,
		Geometry: GeometryConfig{
			SegmentsFile: DefaultGeometrySegmentsFile,
			NodesFile:    DefaultGeometryNodesFile,
		},
		Catalog: CatalogConfig{
			Layer:          "street-names",
			TimeoutSeconds: DefaultCatalogTimeoutSeconds,
		},
	}
}

// LoadConfig loads the configuration from a YAML file and fills in defaults
// for everything left unset.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&config)

	if config.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", config.Workers)
	}
	for i, layer := range config.Layers {
		if layer == "" {
			return nil, fmt.Errorf("layers[%d] is empty", i)
		}
	}

	return &config, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

func applyDefaults(config *Config) {
	defaults := DefaultConfig()
	if len(config.Layers) == 0 {
		config.Layers = defaults.Layers
	}
	if config.Workers == 0 {
		config.Workers = defaults.Workers
	}
	if config.Geometry.SegmentsFile == "" {
		config.Geometry.SegmentsFile = defaults.Geometry.SegmentsFile
	}
	if config.Geometry.NodesFile == "" {
		config.Geometry.NodesFile = defaults.Geometry.NodesFile
	}
	if config.Catalog.Layer == "" {
		config.Catalog.Layer = defaults.Catalog.Layer
	}
	if config.Catalog.TimeoutSeconds == 0 {
		config.Catalog.TimeoutSeconds = defaults.Catalog.TimeoutSeconds
	}
}
