// Package config loads the supervisor's worker manifest.
package config

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root of a worker manifest.
type Config struct {
	Worker Worker `yaml:"worker"`
}

// Worker describes the worker the supervisor runs.
type Worker struct {
	// Entry is the dotted reference of the registered entry function.
	Entry string `yaml:"entry"`

	// Kwargs are the keyword arguments delivered in the bootstrap packet.
	Kwargs map[string]any `yaml:"kwargs"`

	// GracePeriod bounds how long a graceful stop waits before escalating.
	GracePeriod Duration `yaml:"gracePeriod"`

	// Env adds environment entries to the worker process.
	Env map[string]string `yaml:"env"`
}

// Environ returns the worker's extra environment as KEY=VALUE entries in a
// stable order.
func (w *Worker) Environ() []string {
	if len(w.Env) == 0 {
		return nil
	}
	env := make([]string, 0, len(w.Env))
	for k, v := range w.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(env)
	return env
}

// Validate checks the manifest for the mistakes a launch would otherwise
// surface much later inside the worker.
func (c *Config) Validate() error {
	entry := c.Worker.Entry
	if entry == "" {
		return fmt.Errorf("worker.entry is required")
	}
	if i := strings.LastIndex(entry, "."); i <= 0 || i == len(entry)-1 {
		return fmt.Errorf("worker.entry %q is not a dotted unit.name reference", entry)
	}
	if c.Worker.GracePeriod < 0 {
		return fmt.Errorf("worker.gracePeriod must not be negative")
	}
	return nil
}

// Duration is a yaml-friendly wrapper over time.Duration accepting values
// like "5s" or "1m30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
