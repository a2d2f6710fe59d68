package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
app:
  env: prod
providers:
  presets:
    seedream:
      kind: seedream
      api_url: https://ark.example.com/api/v3
      enabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":9980", cfg.App.HTTPAddr)
	assert.Equal(t, 0.6, cfg.Scoring.VetoThreshold)
	assert.Equal(t, 0.5, cfg.Scoring.VetoCap)
	assert.Equal(t, "general", cfg.Scoring.ReviewFlavor)
	assert.Equal(t, []string{"signal_stats", "baseline"}, cfg.Scoring.Fallbacks)
	assert.Equal(t, 0.8, cfg.Consistency.ConsistentMin)
	assert.Equal(t, 0.5, cfg.Consistency.UncertainMin)
	assert.Equal(t, 4, cfg.Pipeline.GenerateConcurrency)
	assert.Equal(t, 6, cfg.Pipeline.MaxCandidates)
	assert.Equal(t, 30, cfg.Store.RetentionDays)

	weights := cfg.Scoring.Weights
	require.NotEmpty(t, weights)
	assert.InDelta(t, 0.3, weights["structural_integrity"], 1e-9)
	assert.InDelta(t, 0.3, weights["prompt_fidelity"], 1e-9)
}

func TestLoadExplicitZeroSurvivesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.yaml", `
store:
  retention_days: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.Store.RetentionDays, "显式写 0 表示关闭清理，不应被默认值覆盖")
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base.yaml", `
app:
  env: base
  log_level: debug
scoring:
  veto_threshold: 0.7
`)
	main := writeConfig(t, dir, "config.yaml", `
include:
  - base.yaml
app:
  env: prod
`)
	cfg, err := Load(main)
	require.NoError(t, err)
	assert.Equal(t, "prod", cfg.App.Env, "主文件覆盖 include")
	assert.Equal(t, "debug", cfg.App.LogLevel, "include 的值保留")
	assert.Equal(t, 0.7, cfg.Scoring.VetoThreshold)
}

func TestLoadRejectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "a.yaml", "include: [b.yaml]\n")
	pathA := filepath.Join(dir, "a.yaml")
	writeConfig(t, dir, "b.yaml", "include: [a.yaml]\n")
	_, err := Load(pathA)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.applyDefaults(make(keySet))
		return cfg
	}

	cfg := base()
	cfg.Scoring.Weights = map[string]float64{"prompt_fidelity": -1}
	assert.Error(t, validate(cfg), "负权重")

	cfg = base()
	cfg.Scoring.VetoThreshold = 1.5
	assert.Error(t, validate(cfg), "否决阈值越界")

	cfg = base()
	cfg.Scoring.ReviewFlavor = "luxury"
	assert.Error(t, validate(cfg), "未知点评口径")

	cfg = base()
	cfg.Consistency.ConsistentMin = 0.4
	cfg.Consistency.UncertainMin = 0.5
	assert.Error(t, validate(cfg), "一致阈值必须高于存疑阈值")

	cfg = base()
	cfg.Providers.Presets = map[string]ProviderPreset{
		"x": {Enabled: true, Kind: "openai_images"},
	}
	assert.Error(t, validate(cfg), "启用的预设缺少 api_url")

	assert.NoError(t, validate(base()))
}

func TestEnabledPresets(t *testing.T) {
	p := ProvidersConfig{Presets: map[string]ProviderPreset{
		"Seedream": {Enabled: true},
		"dalle":    {Enabled: false},
		"  ":       {Enabled: true},
	}}
	out := p.EnabledPresets()
	require.Len(t, out, 1)
	_, ok := out["seedream"]
	assert.True(t, ok)
}
