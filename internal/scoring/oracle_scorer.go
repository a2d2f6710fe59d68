package scoring

import (
	"context"
	"errors"
	"fmt"

	"pictor/internal/gateway/oracle"
	"pictor/internal/types"
)

// ScoreOracle 视觉裁判的窄接口，便于测试替身。
type ScoreOracle interface {
	Score(ctx context.Context, image, systemPrompt, userPrompt string) (*oracle.ScoreReport, error)
}

// PromptSource 提供打分用的系统/用户提示词。
type PromptSource interface {
	ScoringSystem() string
	ScoringUser(prompt string) string
}

// OracleScorer 调用视觉裁判模型逐维打分，原生标签映射到统一维度。
type OracleScorer struct {
	oracle  ScoreOracle
	prompts PromptSource
}

func NewOracleScorer(o ScoreOracle, prompts PromptSource) *OracleScorer {
	return &OracleScorer{oracle: o, prompts: prompts}
}

func (s *OracleScorer) Name() string { return "oracle" }

func (s *OracleScorer) Score(ctx context.Context, image, prompt string) (*types.ScoringResult, error) {
	report, err := s.oracle.Score(ctx, image, s.prompts.ScoringSystem(), s.prompts.ScoringUser(prompt))
	if err != nil {
		return nil, fmt.Errorf("视觉裁判打分失败: %w", err)
	}
	if report == nil || len(report.Dimensions) == 0 {
		return nil, errors.New("视觉裁判未返回任何维度分")
	}

	labels := make(map[string]bool, len(report.Dimensions))
	for label := range report.Dimensions {
		labels[label] = true
	}
	result := &types.ScoringResult{
		Dimensions: make(map[string]float64, len(report.Dimensions)),
		Comments:   make(map[string]string),
	}
	// 同一维度命中多个原生标签时按映射优先级取值，保证结果确定。
	for dim, label := range mapReport(labels) {
		ds := report.Dimensions[label]
		result.Dimensions[dim] = NormalizeTen(ds.Score)
		if ds.Comment != "" {
			result.Comments[dim] = ds.Comment
		}
	}
	if len(result.Dimensions) == 0 {
		return nil, errors.New("视觉裁判的维度标签均无法映射")
	}
	// report.Final 仅作参考，综合分一律由本地公式计算。
	return result, nil
}
