package scoring

import (
	"context"
	"errors"

	"pictor/internal/config"
	"pictor/internal/logger"
	"pictor/internal/types"
)

// 中文说明：
// 评分聚合器：按固定顺序尝试打分器（oracle 优先，本地回退殿后），
// 第一个成功者的维度结果经过综合分公式与一票否决后成为最终评分。

// ErrUnscored 所有打分器均失败。
var ErrUnscored = errors.New("所有打分器均未能产出评分")

// Scorer 单个打分策略：返回部分维度（0~1），不负责综合分。
type Scorer interface {
	Name() string
	Score(ctx context.Context, image, prompt string) (*types.ScoringResult, error)
}

// Aggregator 持有打分器序列与综合分参数。
type Aggregator struct {
	scorers       []Scorer
	weights       map[string]float64
	vetoThreshold float64
	vetoCap       float64
}

func NewAggregator(cfg config.ScoringConfig, scorers ...Scorer) *Aggregator {
	weights := cfg.Weights
	if len(weights) == 0 {
		weights = map[string]float64{
			DimStructuralIntegrity: 0.3,
			DimPromptFidelity:      0.3,
			DimAestheticAppeal:     0.2,
			DimCleanliness:         0.2,
		}
	}
	return &Aggregator{
		scorers:       scorers,
		weights:       weights,
		vetoThreshold: cfg.VetoThreshold,
		vetoCap:       cfg.VetoCap,
	}
}

// Score 逐个尝试打分器，成功即定稿；全部失败返回 ErrUnscored。
func (a *Aggregator) Score(ctx context.Context, image, prompt string) (*types.ScoringResult, error) {
	var lastErr error
	for _, s := range a.scorers {
		if s == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := s.Score(ctx, image, prompt)
		if err != nil || result == nil || len(result.Dimensions) == 0 {
			if err != nil {
				lastErr = err
				logger.Warnf("[scoring] %s 打分失败: %v", s.Name(), err)
			}
			continue
		}
		result.Source = s.Name()
		a.finalize(result)
		return result, nil
	}
	if lastErr != nil {
		return nil, errors.Join(ErrUnscored, lastErr)
	}
	return nil, ErrUnscored
}

// finalize 计算综合分：加权求和（缺失维度按 0），随后应用一票否决。
// 否决必须在加权之后执行，不得折进权重。
func (a *Aggregator) finalize(r *types.ScoringResult) {
	var composite float64
	for dim, weight := range a.weights {
		if v, ok := r.Dimensions[dim]; ok {
			composite += weight * v
		}
	}
	if structural, ok := r.Dimensions[DimStructuralIntegrity]; ok && structural < a.vetoThreshold {
		if composite > a.vetoCap {
			composite = a.vetoCap
		}
	}
	if composite < 0 {
		composite = 0
	}
	if composite > 1 {
		composite = 1
	}
	r.Composite = composite
}

// Weights 返回生效中的权重表（测试与报表用）。
func (a *Aggregator) Weights() map[string]float64 {
	out := make(map[string]float64, len(a.weights))
	for k, v := range a.weights {
		out[k] = v
	}
	return out
}
