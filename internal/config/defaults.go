package config

import (
	"fmt"
	"sort"
	"strings"
)

// CreateDefaultConfiguration returns a Config with all default values
// populated.
func CreateDefaultConfiguration() *Config {
	return &Config{
		Author: AuthorConfig{
			Name:  stringPtr("Ledgit"),
			Email: stringPtr("ledgit@local"),
		},
		DefaultRemote: stringPtr("origin"),
		LogLimit:      intPtr(50),
		Attributes: map[string]string{
			"csv": "csv",
			"tsv": "tsv",
		},
	}
}

// GitAttributes renders the attributes map as .gitattributes content, one
// "*.<ext> diff=<driver>" line per extension in sorted order.
func (c *Config) GitAttributes() string {
	exts := make([]string, 0, len(c.Attributes))
	for ext := range c.Attributes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)

	var b strings.Builder
	for _, ext := range exts {
		fmt.Fprintf(&b, "*.%s diff=%s\n", strings.TrimPrefix(ext, "."), c.Attributes[ext])
	}
	return b.String()
}
