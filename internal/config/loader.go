package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileNames lists the files searched for configuration in order.
// Checks the repo root first, then .github/.
var FileNames = []string{
	".ledgit.yml",
	".ledgit.yaml",
	".github/ledgit.yml",
}

// LoadFromFile reads and parses a ledgit configuration file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromBytes(data)
}

// LoadFromBytes parses ledgit configuration from raw YAML bytes.
func LoadFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return &cfg, nil
}

// Discover loads the first configuration file found under root. It returns
// nil without error when none exists.
func Discover(root string) (*Config, error) {
	for _, name := range FileNames {
		p := filepath.Join(root, filepath.FromSlash(name))
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("checking %s: %w", name, err)
		}
		cfg, err := LoadFromFile(p)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return cfg, nil
	}
	return nil, nil
}

// Load builds the effective configuration for a repository: defaults, then
// the explicit file (or the discovered one when explicit is empty), then
// any overrides.
func Load(root, explicit string, overrides ...*Config) (*Config, error) {
	var file *Config
	var err error
	if explicit != "" {
		file, err = LoadFromFile(explicit)
	} else if root != "" {
		file, err = Discover(root)
	}
	if err != nil {
		return nil, err
	}

	b := NewBuilder().Add(file)
	for _, o := range overrides {
		b.Add(o)
	}
	return b.Build()
}
