package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewConfig()
	assert.True(t, cfg.IsFeatureEnabled(FeatOptimize))
	assert.False(t, cfg.IsFeatureEnabled(FeatBuiltinNameCache))
	assert.True(t, cfg.IsWarningEnabled(WarnInfiniteLoop))
	assert.Zero(t, cfg.CompileLevel)
	assert.False(t, cfg.DropUnused(), "level 0 keeps every body")
}

func TestProcessDirectiveFlags(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.ProcessDirectiveFlags("-Wunreachable-loop -Wno-all -Fno-comments -Fbuiltin-name-cache -O2"))

	assert.True(t, cfg.IsWarningEnabled(WarnUnreachableLoop), "-Wno-all is applied first")
	assert.False(t, cfg.IsWarningEnabled(WarnInfiniteLoop))
	assert.False(t, cfg.IsFeatureEnabled(FeatComments))
	assert.True(t, cfg.IsFeatureEnabled(FeatBuiltinNameCache))
	assert.Equal(t, 2, cfg.CompileLevel)
	assert.True(t, cfg.DropUnused())

	require.NoError(t, cfg.ProcessDirectiveFlags("-Fno-drop-unused"))
	assert.False(t, cfg.DropUnused())
}

func TestProcessDirectiveFlagsErrors(t *testing.T) {
	for flag, want := range map[string]string{
		"-Wbogus": "unknown warning 'bogus'",
		"-Fbogus": "unknown feature 'bogus'",
		"-Ofast":  "invalid compile level",
		"-x":      "unrecognized flag",
	} {
		err := NewConfig().ProcessDirectiveFlags(flag)
		require.Error(t, err, flag)
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoad(t *testing.T) {
	cfg, err := Load(strings.NewReader(`
features:
  optimize: false
  builtin-name-cache: true
warnings:
  redundant-conversion: false
compile-level: 1
flags: -Wno-infinite-loop
`))
	require.NoError(t, err)
	assert.False(t, cfg.IsFeatureEnabled(FeatOptimize))
	assert.True(t, cfg.IsFeatureEnabled(FeatBuiltinNameCache))
	assert.False(t, cfg.IsWarningEnabled(WarnRedundantConversion))
	assert.False(t, cfg.IsWarningEnabled(WarnInfiniteLoop))
	assert.True(t, cfg.IsWarningEnabled(WarnUnreachableLoop))
	assert.Equal(t, 1, cfg.CompileLevel)

	cfg, err = Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		src, want string
	}{
		{"features: [", "decoding config"},
		{"features:\n  turbo: true\n", "unknown feature 'turbo'"},
		{"warnings:\n  pedantic: true\n", "unknown warning 'pedantic'"},
		{"flags: -Wbogus\n", "config: flags: unknown warning 'bogus'"},
	}
	for _, tt := range tests {
		_, err := Load(strings.NewReader(tt.src))
		require.Error(t, err, tt.src)
		assert.Contains(t, err.Error(), tt.want)
	}
}
