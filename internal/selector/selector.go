package selector

import (
	"errors"
	"sort"

	"pictor/internal/types"
)

// 中文说明：
// 候选排序与选优。资格线：必须有评分；主体模式下一致性判为 inconsistent 的直接出局。
// 排序全程确定：综合分降序 → 一致性得分降序 → 提交顺序升序。

// ErrNoEligible 有候选但全部不过资格线。
var ErrNoEligible = errors.New("没有满足资格的候选")

// Selection 选优结果：最佳候选与完整的资格内排序。
type Selection struct {
	Best   *types.Candidate
	Ranked []*types.Candidate
}

// Pick 从候选集中选出最佳。subjectBound 表示本次运行带参考主体。
func Pick(candidates []*types.Candidate, subjectBound bool) (*Selection, error) {
	eligible := make([]*types.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.Scored() {
			continue
		}
		if subjectBound && c.Consistency != nil && c.Consistency.Status == types.ConsistencyInconsistent {
			continue
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligible
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.Scores.Composite != b.Scores.Composite {
			return a.Scores.Composite > b.Scores.Composite
		}
		ca, cb := consistencyScore(a), consistencyScore(b)
		if ca != cb {
			return ca > cb
		}
		return a.Submitted < b.Submitted
	})
	return &Selection{Best: eligible[0], Ranked: eligible}, nil
}

// Worst 返回排序末位的候选（对比点评用）。
func (s *Selection) Worst() *types.Candidate {
	if s == nil || len(s.Ranked) == 0 {
		return nil
	}
	return s.Ranked[len(s.Ranked)-1]
}

// consistencyScore 一致性缺失按 0 参与平手裁决。
func consistencyScore(c *types.Candidate) float64 {
	if c.Consistency == nil {
		return 0
	}
	return c.Consistency.Score
}
