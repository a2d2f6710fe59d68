package app

import (
	"fmt"
	"strings"

	"pictor/internal/config"
	"pictor/internal/gateway/provider"
)

// StartupSummary 启动配置摘要。
type StartupSummary struct {
	Env          string
	HTTPAddr     string
	Providers    []string
	OracleModel  string
	Weights      map[string]float64
	ReviewFlavor string
	RunLogPath   string
	Retention    int
}

func buildStartupSummary(cfg *config.Config, registry *provider.Registry) *StartupSummary {
	return &StartupSummary{
		Env:          cfg.App.Env,
		HTTPAddr:     cfg.App.HTTPAddr,
		Providers:    registry.IDs(),
		OracleModel:  cfg.Oracle.Model,
		Weights:      cfg.Scoring.Weights,
		ReviewFlavor: cfg.Scoring.ReviewFlavor,
		RunLogPath:   cfg.Store.RunLogPath,
		Retention:    cfg.Store.RetentionDays,
	}
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[服务 (SERVICE)]")
	fmt.Printf("  环境: %s\n", s.Env)
	fmt.Printf("  监听地址: %s\n", s.HTTPAddr)
	fmt.Println()

	fmt.Println("[生成提供方 (PROVIDERS)]")
	fmt.Printf("  已启用: %s\n", formatList(s.Providers))
	fmt.Println()

	fmt.Println("[评审 (SCORING)]")
	fmt.Printf("  裁判模型: %s\n", s.OracleModel)
	fmt.Printf("  权重: %s\n", formatWeights(s.Weights))
	fmt.Printf("  点评口径: %s\n", s.ReviewFlavor)
	fmt.Println()

	fmt.Println("[存储 (STORE)]")
	fmt.Printf("  运行日志: %s\n", s.RunLogPath)
	fmt.Printf("  保留天数: %d\n", s.Retention)
	fmt.Println(strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func formatWeights(w map[string]float64) string {
	if len(w) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(w))
	for _, dim := range []string{"structural_integrity", "prompt_fidelity", "aesthetic_appeal", "cleanliness", "physical_plausibility"} {
		if v, ok := w[dim]; ok {
			parts = append(parts, fmt.Sprintf("%s=%.2f", dim, v))
		}
	}
	if len(parts) == 0 {
		for dim, v := range w {
			parts = append(parts, fmt.Sprintf("%s=%.2f", dim, v))
		}
	}
	return strings.Join(parts, " ")
}
