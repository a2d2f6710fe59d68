package consistency

import (
	"context"
	"errors"
	"fmt"

	"pictor/internal/config"
	"pictor/internal/gateway/oracle"
	"pictor/internal/types"
)

// 中文说明：
// 主体一致性校验：候选图与参考图交给视觉裁判比对，
// 得分按阈值落档为 consistent / uncertain / inconsistent 三态。

// Oracle 一致性裁判的窄接口。
type Oracle interface {
	VerifyConsistency(ctx context.Context, references []string, candidate, prompt string) (*oracle.ConsistencyJudgment, error)
}

// PromptSource 提供一致性比对的提示词。
type PromptSource interface {
	Consistency(prompt string) string
}

// Verifier 按配置阈值把一致性得分映射为状态。
type Verifier struct {
	oracle        Oracle
	prompts       PromptSource
	consistentMin float64
	uncertainMin  float64
}

func NewVerifier(cfg config.ConsistencyConfig, o Oracle, prompts PromptSource) *Verifier {
	return &Verifier{
		oracle:        o,
		prompts:       prompts,
		consistentMin: cfg.ConsistentMin,
		uncertainMin:  cfg.UncertainMin,
	}
}

// Verify 对单个候选执行一致性判定。参考图为空时直接报错（调用方保证只在主体模式调用）。
func (v *Verifier) Verify(ctx context.Context, references []string, candidate *types.Candidate, prompt string) (*types.ConsistencyResult, error) {
	if len(references) == 0 {
		return nil, errors.New("一致性校验缺少参考图")
	}
	if candidate == nil || candidate.Image == "" {
		return nil, errors.New("一致性校验缺少候选图")
	}
	judgment, err := v.oracle.VerifyConsistency(ctx, references, candidate.Image, v.prompts.Consistency(prompt))
	if err != nil {
		return nil, fmt.Errorf("一致性裁判调用失败: %w", err)
	}
	if judgment == nil {
		return nil, errors.New("一致性裁判未返回结果")
	}
	return &types.ConsistencyResult{
		Score:   judgment.Score,
		Status:  v.status(judgment.Score),
		Comment: judgment.Comment,
	}, nil
}

// status 阈值落档：闭区间下界，分数恰等于阈值按高档处理。
func (v *Verifier) status(score float64) string {
	switch {
	case score >= v.consistentMin:
		return types.ConsistencyConsistent
	case score >= v.uncertainMin:
		return types.ConsistencyUncertain
	default:
		return types.ConsistencyInconsistent
	}
}
