// Package config loads the session profile (serial port, baud, timeout,
// flow control, default remote root) from an optional YAML file, with CLI
// flags overriding whatever the profile sets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Profile is the YAML-loadable set of connection defaults.
type Profile struct {
	Port           string `yaml:"port"`
	Baud           int    `yaml:"baud"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RTSCTS         bool   `yaml:"rtscts"`
	RemoteRoot     string `yaml:"remote_root"`
	ChunkSize      int    `yaml:"chunk_size"`
}

// Default returns the built-in defaults, matching spec §6.
func Default() Profile {
	return Profile{
		Baud:           115200,
		TimeoutSeconds: 5,
		RTSCTS:         true,
		RemoteRoot:     "/",
		ChunkSize:      1024,
	}
}

// Load reads a YAML profile from path, starting from Default() so any
// field the file omits keeps its default value.
func Load(path string) (Profile, error) {
	p := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read profile %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse profile %s: %w", path, err)
	}

	return p, nil
}

// Timeout returns the profile's timeout as a time.Duration.
func (p Profile) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}
