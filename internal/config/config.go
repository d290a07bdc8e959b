// Package config provides YAML configuration loading, defaults, and
// override layering for ledgit.
package config

// Config is the root configuration for ledgit. All optional fields are
// pointers to support merge semantics during configuration building.
type Config struct {
	Author        AuthorConfig      `yaml:"author"`
	DefaultRemote *string           `yaml:"default-remote"`
	LogLimit      *int              `yaml:"log-limit"`
	Attributes    map[string]string `yaml:"attributes"`
	Ignore        IgnoreConfig      `yaml:"ignore"`
	GitHub        GitHubConfig      `yaml:"github"`
}

// AuthorConfig signs commits when git config has no user identity.
type AuthorConfig struct {
	Name  *string `yaml:"name"`
	Email *string `yaml:"email"`
}

// GitHubConfig holds credentials for https remotes hosted on GitHub.
// A token takes precedence over GitHub App credentials.
type GitHubConfig struct {
	Token      *string `yaml:"token"`
	AppID      *int64  `yaml:"app-id"`
	AppKeyPath *string `yaml:"app-key-path"`
	APIURL     *string `yaml:"api-url"`
}

// IsEmpty returns true when no GitHub credentials are configured.
func (c GitHubConfig) IsEmpty() bool {
	return deref(c.Token) == "" && deref(c.AppKeyPath) == "" && (c.AppID == nil || *c.AppID == 0)
}

// AuthorName returns the configured author name.
func (c *Config) AuthorName() string { return deref(c.Author.Name) }

// AuthorEmail returns the configured author email.
func (c *Config) AuthorEmail() string { return deref(c.Author.Email) }

// Remote returns the default remote name.
func (c *Config) Remote() string { return deref(c.DefaultRemote) }

// Limit returns the default log page size.
func (c *Config) Limit() int {
	if c.LogLimit == nil {
		return 0
	}
	return *c.LogLimit
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
