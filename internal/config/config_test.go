package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper to set env vars and clean up after
func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old := os.Getenv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if old == "" {
			os.Unsetenv(key)
		} else {
			os.Setenv(key, old)
		}
	})
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, "PORT", "")
	setEnv(t, "RATE_LIMIT_RPM", "")
	setEnv(t, "ALERT_THRESHOLD", "")
	setEnv(t, "HIGH_RISK_CATEGORIES", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultRateLimitRPM, cfg.RateLimitRPM)
	assert.Equal(t, DefaultAlertThreshold, cfg.AlertThreshold)
	assert.Equal(t, DefaultHighRiskCategories, cfg.HighRiskCategories)
	assert.Equal(t, DefaultHighRiskZones, cfg.HighRiskZones)
	assert.True(t, cfg.RateLimitEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	setEnv(t, "PORT", "9090")
	setEnv(t, "ALERT_THRESHOLD", "55")
	setEnv(t, "RATE_LIMIT_RPM", "30")
	setEnv(t, "HIGH_RISK_CATEGORIES", "Jewelry, Travel ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 55, cfg.AlertThreshold)
	assert.Equal(t, 30, cfg.RateLimitRPM)
	// List entries are lowercased, trimmed, and empties dropped.
	assert.Equal(t, []string{"jewelry", "travel"}, cfg.HighRiskCategories)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr string
	}{
		{
			name:    "valid config",
			config:  Config{AlertThreshold: 70, RateLimitEnabled: true, RateLimitRPM: 120},
			wantErr: "",
		},
		{
			name:    "threshold above range",
			config:  Config{AlertThreshold: 101},
			wantErr: "ALERT_THRESHOLD",
		},
		{
			name:    "threshold below range",
			config:  Config{AlertThreshold: -1},
			wantErr: "ALERT_THRESHOLD",
		},
		{
			name:    "zero rpm with limiting enabled",
			config:  Config{AlertThreshold: 70, RateLimitEnabled: true, RateLimitRPM: 0},
			wantErr: "RATE_LIMIT_RPM",
		},
		{
			name:    "zero rpm ok when limiting disabled",
			config:  Config{AlertThreshold: 70, RateLimitEnabled: false, RateLimitRPM: 0},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())

	cfg.Env = "production"
	assert.False(t, cfg.IsDevelopment())
	assert.True(t, cfg.IsProduction())
}

func TestGetEnv(t *testing.T) {
	setEnv(t, "TEST_VAR", "custom_value")

	assert.Equal(t, "custom_value", getEnv("TEST_VAR", "default"))
	assert.Equal(t, "default", getEnv("NONEXISTENT_VAR", "default"))
}

func TestGetEnvInt(t *testing.T) {
	setEnv(t, "TEST_INT", "42")
	setEnv(t, "TEST_INVALID", "not_a_number")

	assert.Equal(t, 42, getEnvInt("TEST_INT", 0))
	assert.Equal(t, 99, getEnvInt("NONEXISTENT_VAR", 99))
	assert.Equal(t, 99, getEnvInt("TEST_INVALID", 99)) // Falls back on parse error
}

func TestGetEnvList(t *testing.T) {
	setEnv(t, "TEST_LIST", "A,b , C")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvList("TEST_LIST", nil))

	setEnv(t, "TEST_EMPTY", " , ,")
	assert.Equal(t, []string{"fallback"}, getEnvList("TEST_EMPTY", []string{"fallback"}))
}
