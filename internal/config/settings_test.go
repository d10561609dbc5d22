package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOS(t *testing.T) {
	for in, want := range map[string]OS{
		"Windows": Windows,
		"windows": Windows,
		"Linux":   Linux,
		"Macos":   Macos,
		"darwin":  Macos,
	} {
		got, err := ParseOS(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseOS("freebsd")
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	s := Settings{OS: Windows, FPIC: true, Shared: true}.Normalize()
	assert.False(t, s.FPIC)
	assert.True(t, s.Shared)

	s = Settings{OS: Linux, FPIC: true}.Normalize()
	assert.True(t, s.FPIC)
}

func TestHostSettings(t *testing.T) {
	s := HostSettings()
	require.NoError(t, s.Validate())
	if s.OS == Windows {
		assert.False(t, s.FPIC)
	}
}

func TestValidate(t *testing.T) {
	assert.Error(t, Settings{OS: "Plan9", Compiler: "gcc", Arch: "x86_64"}.Validate())
	assert.Error(t, Settings{OS: Linux, Arch: "x86_64"}.Validate())
	assert.Error(t, Settings{OS: Linux, Compiler: "gcc"}.Validate())
	assert.NoError(t, Settings{OS: Linux, Compiler: "gcc", Arch: "x86_64"}.Validate())
}
