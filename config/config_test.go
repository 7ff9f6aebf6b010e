package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/powersoftau/ceremony/config"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsMarlinChunked(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ProvingSystem = "Marlin"
	cfg.ContributionMode = "Chunked"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownCurve(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Curve = "Secp256k1"
	require.Error(t, cfg.Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	data := []byte(`
[ceremony]
curve = "BW6_761"
power = 12
contribution_mode = "Full"
proving_system = "Marlin"

[server]
address = "0.0.0.0"
port = 9000
cors_allowed_origins = [https://example.com, https://ceremony.example.org]

[participants]
contributors = [0xaaaa, 0xbbbb]
verifiers = [0xcccc]

[lock]
ttl = "5m"
sweep_interval = "15s"
`)
	cfg, err := config.LoadConfig(data)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.Equal(t, "BW6_761", cfg.Curve)
	require.Equal(t, uint(12), cfg.Power)
	require.Equal(t, "0.0.0.0", cfg.Address)
	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, []string{"https://example.com", "https://ceremony.example.org"}, cfg.CORSAllowedOrigins)
	require.Equal(t, []string{"0xaaaa", "0xbbbb"}, cfg.Contributors)
	require.Equal(t, []string{"0xcccc"}, cfg.Verifiers)
	require.Equal(t, "5m0s", cfg.LockTTL.String())
}

func TestLoadConfigRejectsUnknownKey(t *testing.T) {
	_, err := config.LoadConfig([]byte("[ceremony]\nbogus_key = 1\n"))
	require.Error(t, err)
}

func TestAllowsRoundDirectoryResetExcludesProductionOnly(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Environment = "test"
	require.True(t, cfg.AllowsRoundDirectoryReset())
	cfg.Environment = "development"
	require.True(t, cfg.AllowsRoundDirectoryReset())
	cfg.Environment = "production"
	require.False(t, cfg.AllowsRoundDirectoryReset())
}
