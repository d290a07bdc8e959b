package config

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestIgnoreConfig_IsEmpty(t *testing.T) {
	require.True(t, IgnoreConfig{}.IsEmpty())
	require.True(t, IgnoreConfig{Paths: []string{}}.IsEmpty())
	require.False(t, IgnoreConfig{Paths: []string{"*.bak"}}.IsEmpty())
}

func TestIgnoreConfig_UnmarshalYAML_Mapping(t *testing.T) {
	var cfg IgnoreConfig
	require.NoError(t, yaml.Unmarshal([]byte("paths:\n  - '*.bak'\n  - scratch/\n"), &cfg))
	require.Equal(t, []string{"*.bak", "scratch/"}, cfg.Paths)
}

func TestIgnoreConfig_UnmarshalYAML_ListShorthand(t *testing.T) {
	var cfg IgnoreConfig
	require.NoError(t, yaml.Unmarshal([]byte("- '*.bak'\n- scratch/\n"), &cfg))
	require.Equal(t, []string{"*.bak", "scratch/"}, cfg.Paths)
}

func TestIgnoreConfig_UnmarshalYAML_Invalid(t *testing.T) {
	var cfg IgnoreConfig
	require.Error(t, yaml.Unmarshal([]byte("paths: 3\n"), &cfg))
}
