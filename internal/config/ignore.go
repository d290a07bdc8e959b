package config

import (
	"gopkg.in/yaml.v3"
)

// IgnoreConfig controls which working-tree paths are hidden from status.
type IgnoreConfig struct {
	Paths []string `yaml:"paths"`
}

// IsEmpty returns true when no ignore rules are configured.
func (c IgnoreConfig) IsEmpty() bool {
	return len(c.Paths) == 0
}

// UnmarshalYAML accepts either the full mapping form or a bare list of
// patterns as shorthand for paths.
func (c *IgnoreConfig) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		return value.Decode(&c.Paths)
	}

	var raw struct {
		Paths []string `yaml:"paths"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Paths = raw.Paths
	return nil
}
