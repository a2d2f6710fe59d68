package oracle

// 中文说明：
// 评分 oracle 的原生输出形态。维度名为 oracle 侧标签（1~10 分制），
// 由上层 scoring 包负责映射到固定分类并归一化。

// DimensionScore 单个原生维度的得分与短评。
type DimensionScore struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment,omitempty"`
}

// ScoreReport 一次评分调用的原生结果。
type ScoreReport struct {
	Dimensions map[string]DimensionScore
	// Final 为 oracle 自报的总分（如有）。综合分始终由本地公式推导，这里仅保留原始值。
	Final    float64
	HasFinal bool
}

// ConsistencyJudgment 主体一致性判定的原生结果，Score 已钳制到 [0,1]。
type ConsistencyJudgment struct {
	Score   float64 `json:"score"`
	Comment string  `json:"comment,omitempty"`
}
