package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateDefaultConfiguration(t *testing.T) {
	cfg := CreateDefaultConfiguration()
	require.Equal(t, map[string]string{"csv": "csv", "tsv": "tsv"}, cfg.Attributes)
	require.True(t, cfg.Ignore.IsEmpty())
	require.True(t, cfg.GitHub.IsEmpty())
}

func TestCreateDefaultConfiguration_ReturnsFreshCopies(t *testing.T) {
	a := CreateDefaultConfiguration()
	b := CreateDefaultConfiguration()
	a.Attributes["json"] = "json"
	require.NotContains(t, b.Attributes, "json")
}

func TestConfig_GitAttributes(t *testing.T) {
	cfg := CreateDefaultConfiguration()
	require.Equal(t, "*.csv diff=csv\n*.tsv diff=tsv\n", cfg.GitAttributes())

	cfg.Attributes = map[string]string{".psv": "csv"}
	require.Equal(t, "*.psv diff=csv\n", cfg.GitAttributes())

	cfg.Attributes = nil
	require.Equal(t, "", cfg.GitAttributes())
}
