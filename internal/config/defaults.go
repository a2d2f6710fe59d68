package config

import "strings"

// 默认值常量
const (
	defaultAppEnv           = "dev"
	defaultAppLogLevel      = "info"
	defaultAppHTTPAddr      = ":9980"
	defaultAppLogPath       = "/data/logs/pictor.log"
	defaultAppOracleLogPath = "/data/logs/pictor-oracle.log"

	defaultOracleAPI     = "https://ark.cn-beijing.volces.com/api/v3/chat/completions"
	defaultOracleModel   = "doubao-seed-1-6-vision-250815"
	defaultOracleTimeout = 30
	defaultOracleRetries = 2

	defaultVetoThreshold     = 0.6
	defaultVetoCap           = 0.5
	defaultBaselineAesthetic = 0.5
	defaultReviewFlavor      = "general"

	defaultConsistentMin      = 0.8
	defaultUncertainMin       = 0.5
	defaultConsistencyTimeout = 30

	defaultGenerateConcurrency = 4
	defaultScoreConcurrency    = 6
	defaultGenerateTimeout     = 120
	defaultScoreTimeout        = 45
	defaultMaxCandidates       = 6
	defaultMaxProviders        = 4

	defaultPromptDir     = "prompts"
	defaultRunLogPath    = "/data/pictor/runs.db"
	defaultRetentionDays = 30
	defaultReportDir     = "/data/pictor/reports"
)

// 维度权重默认值：综合分 = 0.3*结构 + 0.3*语义 + 0.2*美学 + 0.2*纯净度。
func defaultWeights() map[string]float64 {
	return map[string]float64{
		"structural_integrity": 0.3,
		"prompt_fidelity":      0.3,
		"aesthetic_appeal":     0.2,
		"cleanliness":          0.2,
	}
}

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Oracle.applyDefaults(keys)
	c.Scoring.applyDefaults(keys)
	c.Consistency.applyDefaults(keys)
	c.Pipeline.applyDefaults(keys)
	c.Prompt.applyDefaults(keys)
	c.Store.applyDefaults(keys)
	c.Providers.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
		stringFieldDefault("app.oracle_log_path", &a.OracleLog, defaultAppOracleLogPath),
	)
}

func (o *OracleConfig) applyDefaults(keys keySet) {
	if o == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("oracle.api_url", &o.APIURL, defaultOracleAPI),
		stringFieldDefault("oracle.model", &o.Model, defaultOracleModel),
		intFieldDefault("oracle.timeout_seconds", &o.TimeoutSeconds, defaultOracleTimeout),
		intFieldDefault("oracle.max_retries", &o.MaxRetries, defaultOracleRetries),
	)
}

func (s *ScoringConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	if len(s.Weights) == 0 {
		s.Weights = defaultWeights()
	}
	applyFieldDefaults(keys,
		floatFieldDefault("scoring.veto_threshold", &s.VetoThreshold, defaultVetoThreshold),
		floatFieldDefault("scoring.veto_cap", &s.VetoCap, defaultVetoCap),
		floatFieldDefault("scoring.baseline_aesthetic", &s.BaselineAesthetic, defaultBaselineAesthetic),
		stringFieldDefault("scoring.review_flavor", &s.ReviewFlavor, defaultReviewFlavor),
	)
	if len(s.Fallbacks) == 0 && !keys.isSet("scoring.fallbacks") {
		s.Fallbacks = []string{"signal_stats", "baseline"}
	}
}

func (c *ConsistencyConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("consistency.consistent_min", &c.ConsistentMin, defaultConsistentMin),
		floatFieldDefault("consistency.uncertain_min", &c.UncertainMin, defaultUncertainMin),
		intFieldDefault("consistency.timeout_seconds", &c.TimeoutSeconds, defaultConsistencyTimeout),
	)
}

func (p *PipelineConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("pipeline.generate_concurrency", &p.GenerateConcurrency, defaultGenerateConcurrency),
		intFieldDefault("pipeline.score_concurrency", &p.ScoreConcurrency, defaultScoreConcurrency),
		intFieldDefault("pipeline.generate_timeout_seconds", &p.GenerateTimeoutSeconds, defaultGenerateTimeout),
		intFieldDefault("pipeline.score_timeout_seconds", &p.ScoreTimeoutSeconds, defaultScoreTimeout),
		intFieldDefault("pipeline.max_candidates", &p.MaxCandidates, defaultMaxCandidates),
		intFieldDefault("pipeline.max_providers", &p.MaxProviders, defaultMaxProviders),
	)
}

func (p *PromptConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("prompt.dir", &p.Dir, defaultPromptDir),
	)
}

func (s *StoreConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("store.run_log_path", &s.RunLogPath, defaultRunLogPath),
		intFieldDefault("store.retention_days", &s.RetentionDays, defaultRetentionDays),
		stringFieldDefault("store.report_dir", &s.ReportDir, defaultReportDir),
	)
}

func (p *ProvidersConfig) applyDefaults(_ keySet) {
	if p == nil {
		return
	}
	for id, preset := range p.Presets {
		if preset.TimeoutSeconds <= 0 {
			preset.TimeoutSeconds = defaultGenerateTimeout
		}
		if preset.MaxRetries < 0 {
			preset.MaxRetries = 0
		}
		if strings.TrimSpace(preset.Kind) == "" {
			preset.Kind = "openai_images"
		}
		p.Presets[id] = preset
	}
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
