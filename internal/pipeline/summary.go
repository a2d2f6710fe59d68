package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"pictor/internal/scoring"
	"pictor/internal/types"
)

// buildSummary 根据最佳候选生成一句话运行摘要。
// 优先引用裁判的维度点评；没有点评时罗列 >=0.8 的强项维度；再不行给中性描述。
func buildSummary(best *types.Candidate, total int) string {
	if best == nil || !best.Scored() {
		return ""
	}
	head := fmt.Sprintf("共 %d 个候选，%s 胜出（综合 %.1f/10）", total, best.Provider, best.Scores.Composite*10)

	if comment := pickComment(best.Scores); comment != "" {
		return head + "：" + comment
	}
	if strong := strongDimensions(best.Scores); len(strong) > 0 {
		return head + "，强项：" + strings.Join(strong, "、")
	}
	return head + "。"
}

// pickComment 按固定维度顺序取第一条非空点评，保证摘要可复现。
func pickComment(scores *types.ScoringResult) string {
	for _, dim := range scoring.BaseDimensions {
		if c, ok := scores.Comments[dim]; ok && c != "" {
			return c
		}
	}
	return ""
}

func strongDimensions(scores *types.ScoringResult) []string {
	var strong []string
	for dim, v := range scores.Dimensions {
		if v >= 0.8 {
			strong = append(strong, dim)
		}
	}
	sort.Strings(strong)
	return strong
}
