// Package config loads the YAML-based configuration for an Athena forwarder
// instance, in the same spirit as the teacher's core.Config/toolutils.ReadYaml
// pair (fw/cmd/cmd.go).
package config

import (
	"os"

	yaml "github.com/goccy/go-yaml"

	"github.com/parc-forge/athena/std/log"
)

// CoreConfig carries daemon-wide settings outside the forwarding tables.
type CoreConfig struct {
	LogLevel     string `yaml:"log_level"`
	CpuProfile   string `yaml:"cpu_profile"`
	MemProfile   string `yaml:"mem_profile"`
	BlockProfile string `yaml:"block_profile"`
	BaseDir      string `yaml:"-"`
}

// TablesConfig sizes the three in-memory tables (spec §4.3/§4.4).
type TablesConfig struct {
	ContentStoreCapacityMB int `yaml:"content_store_capacity_mb"`
	PitCapacity            int `yaml:"pit_capacity"`
}

// Config is the top-level, YAML-loadable forwarder configuration.
type Config struct {
	Core   CoreConfig   `yaml:"core"`
	Tables TablesConfig `yaml:"tables"`
	// Listen holds link URIs (spec §6 grammar) opened at startup.
	Listen []string `yaml:"listen"`
}

// DefaultConfig mirrors the teacher's core.DefaultConfig() pattern of a
// ready-to-run configuration before command-line flags or a YAML file
// override any of it.
func DefaultConfig() *Config {
	return &Config{
		Core: CoreConfig{
			LogLevel: "INFO",
		},
		Tables: TablesConfig{
			ContentStoreCapacityMB: 0, // AthenaDefaultContentStoreSize
			PitCapacity:            65536,
		},
		Listen: []string{"tcp://localhost:9695/listener"},
	}
}

// ReadYaml decodes the YAML file at path into cfg, matching the teacher's
// toolutils.ReadYaml(config, configfile) call shape.
func ReadYaml(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// ParsedLogLevel parses Core.LogLevel, silently falling back to LevelInfo if
// it isn't a recognized name.
func (c *Config) ParsedLogLevel() log.Level {
	lvl, err := log.ParseLevel(c.Core.LogLevel)
	if err != nil {
		return log.LevelInfo
	}
	return lvl
}
