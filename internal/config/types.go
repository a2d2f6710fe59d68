package config

import "strings"

// Config 是 Pictor 的主配置载体。
type Config struct {
	App         AppConfig         `toml:"app"`
	Providers   ProvidersConfig   `toml:"providers"`
	Oracle      OracleConfig      `toml:"oracle"`
	Scoring     ScoringConfig     `toml:"scoring"`
	Consistency ConsistencyConfig `toml:"consistency"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Prompt      PromptConfig      `toml:"prompt"`
	Store       StoreConfig       `toml:"store"`
}

type AppConfig struct {
	Env        string `toml:"env"`
	LogLevel   string `toml:"log_level"`
	HTTPAddr   string `toml:"http_addr"`
	LogPath    string `toml:"log_path"`
	OracleLog  string `toml:"oracle_log_path"`
	OracleDump bool   `toml:"oracle_dump_payload"`
}

// ProvidersConfig 描述生成提供方注册表。
// Presets 为内联预设；PresetsPath 指向可热更新的注册表文件（fsnotify 监听）。
type ProvidersConfig struct {
	PresetsPath string                    `toml:"presets_path"`
	Presets     map[string]ProviderPreset `toml:"presets"`
}

// ProviderPreset 单个生成提供方的接入配置。
// 同时用于主配置（toml）与独立注册表文件（yaml），两套标签都要带。
type ProviderPreset struct {
	Kind           string            `toml:"kind" yaml:"kind"` // openai_images | seedream | chat_image
	APIURL         string            `toml:"api_url" yaml:"api_url"`
	APIKey         string            `toml:"api_key" yaml:"api_key"`
	Model          string            `toml:"model" yaml:"model"`
	Headers        map[string]string `toml:"headers" yaml:"headers"`
	TimeoutSeconds int               `toml:"timeout_seconds" yaml:"timeout_seconds"`
	MaxRetries     int               `toml:"max_retries" yaml:"max_retries"`
	Enabled        bool              `toml:"enabled" yaml:"enabled"`
	// SupportsBurst 标记按序批量出图能力（一次调用返回多张有序图）。
	SupportsBurst bool `toml:"supports_burst" yaml:"supports_burst"`
}

// OracleConfig 外部视觉评分服务（chat completions 形态）。
type OracleConfig struct {
	APIURL         string            `toml:"api_url"`
	APIKey         string            `toml:"api_key"`
	Model          string            `toml:"model"`
	Headers        map[string]string `toml:"headers"`
	TimeoutSeconds int               `toml:"timeout_seconds"`
	MaxRetries     int               `toml:"max_retries"`
}

// ScoringConfig 维度权重与一票否决阈值，全部可在测试中覆盖。
type ScoringConfig struct {
	Weights       map[string]float64 `toml:"weights"`
	VetoThreshold float64            `toml:"veto_threshold"`
	VetoCap       float64            `toml:"veto_cap"`
	// Fallbacks 本地回退打分器的启用顺序。
	Fallbacks []string `toml:"fallbacks"`
	// BaselineAesthetic 兜底回退打分器给出的先验美学分。
	BaselineAesthetic float64 `toml:"baseline_aesthetic"`
	// ReviewFlavor 对比点评口径：general（通用）或 commerce（商品向）。
	ReviewFlavor string `toml:"review_flavor"`
}

// ConsistencyConfig 一致性判定阈值：score>=ConsistentMin 为 consistent，
// >=UncertainMin 为 uncertain，否则 inconsistent。
type ConsistencyConfig struct {
	ConsistentMin  float64 `toml:"consistent_min"`
	UncertainMin   float64 `toml:"uncertain_min"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// PipelineConfig 编排器的并发上限与各类外呼超时。
type PipelineConfig struct {
	GenerateConcurrency    int `toml:"generate_concurrency"`
	ScoreConcurrency       int `toml:"score_concurrency"`
	GenerateTimeoutSeconds int `toml:"generate_timeout_seconds"`
	ScoreTimeoutSeconds    int `toml:"score_timeout_seconds"`
	MaxCandidates          int `toml:"max_candidates"`
	MaxProviders           int `toml:"max_providers"`
}

type PromptConfig struct {
	Dir string `toml:"dir"`
}

// StoreConfig 运行记录与报表产物。
type StoreConfig struct {
	RunLogPath    string `toml:"run_log_path"`
	RetentionDays int    `toml:"retention_days"`
	ReportDir     string `toml:"report_dir"`
	// Snapshot 开启后使用 headless chrome 把评分报表渲染为 PNG。
	Snapshot bool `toml:"snapshot"`
}

// EnabledPresets 返回启用的提供方预设。
func (p ProvidersConfig) EnabledPresets() map[string]ProviderPreset {
	out := make(map[string]ProviderPreset, len(p.Presets))
	for id, preset := range p.Presets {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" || !preset.Enabled {
			continue
		}
		out[id] = preset
	}
	return out
}

type keySet map[string]struct{}

func (k keySet) mark(path string) {
	if k == nil {
		return
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if k == nil {
		return false
	}
	_, ok := k[strings.ToLower(strings.TrimSpace(path))]
	return ok
}

type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
