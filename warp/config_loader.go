package warp

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the full configuration file
type Config struct {
	MQTT       MQTTConfig         `yaml:"mqtt" json:"mqtt"`
	Cameras    []CameraIntrinsics `yaml:"cameras" json:"cameras"`
	Solver     SolverConfig       `yaml:"solver" json:"solver"`
	Workers    int                `yaml:"workers,omitempty" json:"workers,omitempty"`       // concurrent frame solves (default 4)
	StateCache string             `yaml:"stateCache,omitempty" json:"stateCache,omitempty"` // latest solves per camera; empty disables persistence
}

// MQTTConfig holds MQTT connection settings
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	JobTopic      string `yaml:"jobTopic" json:"jobTopic"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// DefaultWorkers is the batch concurrency used when the config leaves it unset
const DefaultWorkers = 4

// GetCamera returns the camera with the given name
func (c *Config) GetCamera(name string) (CameraIntrinsics, bool) {
	for _, cam := range c.Cameras {
		if cam.Name == name {
			return cam, true
		}
	}
	return CameraIntrinsics{}, false
}

// LoadConfig loads the configuration from a YAML file.
// Solver fields missing from the file keep their DefaultSolverConfig values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Config{Solver: DefaultSolverConfig()}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	if config.Workers == 0 {
		config.Workers = DefaultWorkers
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks required fields and camera/solver consistency
func (c *Config) Validate() error {
	if len(c.Cameras) == 0 {
		return fmt.Errorf("at least one camera must be defined")
	}
	seen := make(map[string]bool, len(c.Cameras))
	for i, cam := range c.Cameras {
		if cam.Name == "" {
			return fmt.Errorf("cameras[%d].name is required", i)
		}
		if seen[cam.Name] {
			return fmt.Errorf("cameras[%d].name %q is duplicated", i, cam.Name)
		}
		seen[cam.Name] = true
		if err := cam.Validate(); err != nil {
			return fmt.Errorf("cameras[%d]: %w", i, err)
		}
	}
	if err := c.Solver.Validate(); err != nil {
		return fmt.Errorf("solver: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers %d must not be negative", c.Workers)
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file
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
