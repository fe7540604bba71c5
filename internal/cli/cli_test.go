package cli

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/firewatch/internal/model"
)

func useConfigFile(t *testing.T, path string) {
	t.Helper()
	viper.Reset()
	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() {
		cfgFile = prev
		viper.Reset()
	})
	initConfig()
}

func TestWriteDefaultConfig_RoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "firewatch", "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	useConfigFile(t, path)
	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, model.DefaultConfig(), cfg)
}

func TestWriteDefaultConfig_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	err := writeDefaultConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	t.Setenv("FIREWATCH_LIVE_PROVIDER", "firms")
	t.Setenv("FIREWATCH_CACHE_BACKEND", "memory")
	useConfigFile(t, path)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "firms", cfg.Live.Provider)
	assert.Equal(t, "memory", cfg.Cache.Backend)
}

func TestLoadConfig_RejectsUnknownProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, writeDefaultConfig(path))

	t.Setenv("FIREWATCH_LIVE_PROVIDER", "carrier-pigeon")
	useConfigFile(t, path)

	_, err := loadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carrier-pigeon")
}

func TestReceptorFromFlags(t *testing.T) {
	newCmd := func(args ...string) *cobra.Command {
		cmd := &cobra.Command{}
		cmd.Flags().Float64Var(&lat, "lat", 0, "")
		cmd.Flags().Float64Var(&lon, "lon", 0, "")
		require.NoError(t, cmd.Flags().Parse(args))
		return cmd
	}

	pos, err := receptorFromFlags(newCmd(), model.DelhiReceptor)
	require.NoError(t, err)
	assert.Equal(t, model.DelhiReceptor, pos)

	pos, err = receptorFromFlags(newCmd("--lat", "28.4595", "--lon", "77.0266"), model.DelhiReceptor)
	require.NoError(t, err)
	assert.Equal(t, model.Position{28.4595, 77.0266}, pos)

	_, err = receptorFromFlags(newCmd("--lat", "28.4595"), model.DelhiReceptor)
	assert.Error(t, err)

	_, err = receptorFromFlags(newCmd("--lat", "91", "--lon", "77"), model.DelhiReceptor)
	assert.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Delhi", "Delhi"},
		{"New Delhi", "New-Delhi"},
		{"a/b:c", "a_b_c"},
		{"  ", "receptor"},
		{"..", "receptor"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}
}
