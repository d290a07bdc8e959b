package config

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// Builder constructs a Config by layering overrides on top of defaults.
type Builder struct {
	overrides []*Config
}

// NewBuilder creates a new configuration builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add adds a configuration override. Overrides are applied in order:
// later overrides take precedence over earlier ones.
func (b *Builder) Add(override *Config) *Builder {
	if override != nil {
		b.overrides = append(b.overrides, override)
	}
	return b
}

// Build constructs the final configuration by starting with defaults,
// applying all overrides, and validating.
func (b *Builder) Build() (*Config, error) {
	cfg := CreateDefaultConfiguration()

	for _, override := range b.overrides {
		mergeConfig(cfg, override)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// mergeConfig applies non-nil fields from src to dst.
func mergeConfig(dst, src *Config) {
	if src.Author.Name != nil {
		dst.Author.Name = src.Author.Name
	}
	if src.Author.Email != nil {
		dst.Author.Email = src.Author.Email
	}
	if src.DefaultRemote != nil {
		dst.DefaultRemote = src.DefaultRemote
	}
	if src.LogLimit != nil {
		dst.LogLimit = src.LogLimit
	}

	// Attributes: merge per-extension. An empty driver removes the entry.
	for ext, driver := range src.Attributes {
		if dst.Attributes == nil {
			dst.Attributes = make(map[string]string)
		}
		if driver == "" {
			delete(dst.Attributes, ext)
			continue
		}
		dst.Attributes[ext] = driver
	}

	if src.Ignore.Paths != nil {
		dst.Ignore.Paths = src.Ignore.Paths
	}

	if src.GitHub.Token != nil {
		dst.GitHub.Token = src.GitHub.Token
	}
	if src.GitHub.AppID != nil {
		dst.GitHub.AppID = src.GitHub.AppID
	}
	if src.GitHub.AppKeyPath != nil {
		dst.GitHub.AppKeyPath = src.GitHub.AppKeyPath
	}
	if src.GitHub.APIURL != nil {
		dst.GitHub.APIURL = src.GitHub.APIURL
	}
}

// validate checks the configuration for errors.
func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.AuthorName()) == "" {
		return errors.New("author.name must not be empty")
	}
	if strings.TrimSpace(cfg.AuthorEmail()) == "" {
		return errors.New("author.email must not be empty")
	}
	if strings.TrimSpace(cfg.Remote()) == "" {
		return errors.New("default-remote must not be empty")
	}
	if cfg.Limit() <= 0 {
		return fmt.Errorf("log-limit must be positive, got %d", cfg.Limit())
	}

	for ext, driver := range cfg.Attributes {
		if ext == "" || strings.ContainsAny(ext, " /*") {
			return fmt.Errorf("invalid attribute extension %q", ext)
		}
		if strings.TrimSpace(driver) == "" {
			return fmt.Errorf("attribute %q has an empty diff driver", ext)
		}
	}

	for _, pattern := range cfg.Ignore.Paths {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
	}

	if cfg.GitHub.AppID != nil && *cfg.GitHub.AppID != 0 && deref(cfg.GitHub.AppKeyPath) == "" {
		return errors.New("github.app-id requires github.app-key-path")
	}

	return nil
}
