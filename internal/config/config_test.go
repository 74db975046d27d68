package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, time.Hour, cfg.Memory.STMTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Memory.ITMTTL)
	assert.Equal(t, 3, cfg.Memory.PromotionThreshold)
	assert.Equal(t, 0.3, cfg.Distill.EmotionalWeightThreshold)
	assert.Equal(t, 0.7, cfg.Distill.ConfidenceThreshold)
	assert.Equal(t, 0.5, cfg.Distill.MinSuccessRate)
	assert.Equal(t, 2, cfg.Distill.MinGroupSize)
	assert.Equal(t, 24*time.Hour, cfg.Distill.Lookback)
	assert.Equal(t, "mock", cfg.Embedder.Provider)
	require.NoError(t, cfg.Validate())
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mnemos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9100"
memory:
  promotion_threshold: 5
distill:
  schedule_hour_utc: 4
context:
  ltm_limit: 7
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port)
	assert.Equal(t, 5, cfg.Memory.PromotionThreshold)
	assert.Equal(t, 4, cfg.Distill.ScheduleHourUTC)
	assert.Equal(t, 7, cfg.Context.LTMLimit)
	assert.Equal(t, time.Hour, cfg.Memory.STMTTL, "unset keys keep defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mnemos.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: \"9100\"\n"), 0o644))

	t.Setenv("PORT", "9200")
	t.Setenv("STM_TTL_SECONDS", "120")
	t.Setenv("LTM_PROMOTION_THRESHOLD", "9")
	t.Setenv("FREE_TIER_MEMORY_GB", "0.5")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "9200", cfg.Port)
	assert.Equal(t, 2*time.Minute, cfg.Memory.STMTTL)
	assert.Equal(t, 9, cfg.Memory.PromotionThreshold)
	assert.Equal(t, 0.5, cfg.Quota.FreeGB)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name  string
		mutate func(*Config)
	}{
		{"zero stm ttl", func(c *Config) { c.Memory.STMTTL = 0 }},
		{"zero promotion threshold", func(c *Config) { c.Memory.PromotionThreshold = 0 }},
		{"group of one", func(c *Config) { c.Distill.MinGroupSize = 1 }},
		{"hour out of range", func(c *Config) { c.Distill.ScheduleHourUTC = 24 }},
		{"negative slice limit", func(c *Config) { c.Context.STMLimit = -1 }},
		{"unknown embedder", func(c *Config) { c.Embedder.Provider = "tarot" }},
		{"zero dims", func(c *Config) { c.Embedder.Dimensions = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
