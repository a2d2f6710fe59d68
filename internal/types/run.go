package types

import "time"

// 中文说明：
// 流水线各阶段共享的数据模型：请求、候选图、评分与最终结果。
// Candidate 一旦创建只允许附加评分/一致性结果，不做其他修改。

// GenerateRequest 一次生成运行的输入，提交后不可变。
type GenerateRequest struct {
	Prompt          string         `json:"prompt"`
	ReferenceImages []string       `json:"reference_images,omitempty"`
	Providers       []string       `json:"providers"`
	NumCandidates   int            `json:"num_candidates"`
	Ratio           string         `json:"ratio,omitempty"`
	Size            string         `json:"size,omitempty"`
	Params          map[string]any `json:"params,omitempty"`
}

// Candidate 单张候选图及其评分状态。
type Candidate struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	// Image 为图片地址：http(s) URL 或 data URI。
	Image string `json:"image_url"`
	// SequenceIndex/GroupSize 仅在提供方按序批量出图时填充，GroupSize=0 表示非组图。
	SequenceIndex int `json:"sequence_index,omitempty"`
	GroupSize     int `json:"group_size,omitempty"`
	// Submitted 提交顺序（跨提供方全局递增），用于确定性平手裁决。
	Submitted int `json:"submitted"`

	Scores      *ScoringResult     `json:"scores,omitempty"`
	Consistency *ConsistencyResult `json:"consistency,omitempty"`
}

// Scored 返回候选是否拿到了有效评分。
func (c *Candidate) Scored() bool { return c != nil && c.Scores != nil }

// ScoringResult 维度评分（0~1）与综合分。Composite 始终由维度按公式推导。
type ScoringResult struct {
	Dimensions map[string]float64 `json:"dimensions"`
	Comments   map[string]string  `json:"comments,omitempty"`
	Composite  float64            `json:"composite"`
	// Source 给出实际产生评分的打分器名称（oracle / 本地回退）。
	Source string `json:"source,omitempty"`
}

// Dimension 返回某维度得分；缺失时返回 0 与 false。
func (r *ScoringResult) Dimension(name string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	v, ok := r.Dimensions[name]
	return v, ok
}

// 一致性状态集合（固定枚举）。
const (
	ConsistencyConsistent   = "consistent"
	ConsistencyUncertain    = "uncertain"
	ConsistencyInconsistent = "inconsistent"
)

// ConsistencyResult 候选图与参考主体的一致性判定，每次运行每个候选只产生一次。
type ConsistencyResult struct {
	Score   float64 `json:"score"`
	Status  string  `json:"status"`
	Comment string  `json:"comment,omitempty"`
}

// ComparativeReview 最佳/最差候选的对比点评。仅在 >=2 个有效评分候选时存在。
type ComparativeReview struct {
	Title         string `json:"title"`
	Analysis      string `json:"analysis"`
	KeyDifference string `json:"key_difference"`
}

// RunResult 一次流水线运行的最终产物，进入终态后不可变。
type RunResult struct {
	RunID         string             `json:"run_id"`
	Request       GenerateRequest    `json:"request"`
	BestImage     string             `json:"best_image_url"`
	BestProvider  string             `json:"best_provider"`
	BestComposite float64            `json:"best_composite_score"`
	Candidates    []*Candidate       `json:"candidates"`
	Review        *ComparativeReview `json:"review,omitempty"`
	ProvidersUsed []string           `json:"providers_used"`
	Summary       string             `json:"summary"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    time.Time          `json:"finished_at"`
}
