package runlog

import (
	"time"

	"gorm.io/datatypes"
)

// RunModel 对应 runs 表：一次流水线运行的终态快照。
type RunModel struct {
	RunID         string         `gorm:"column:run_id;primaryKey"`
	Mode          string         `gorm:"column:mode"` // open | subject
	Prompt        string         `gorm:"column:prompt"`
	RequestJSON   datatypes.JSON `gorm:"column:request_json"`
	Status        string         `gorm:"column:status"` // succeeded | failed
	Error         string         `gorm:"column:error"`
	BestProvider  string         `gorm:"column:best_provider"`
	BestImage     string         `gorm:"column:best_image"`
	BestComposite float64        `gorm:"column:best_composite"`
	Summary       string         `gorm:"column:summary"`
	ReviewJSON    datatypes.JSON `gorm:"column:review_json"`
	ProvidersJSON datatypes.JSON `gorm:"column:providers_json"`
	StartedAt     time.Time      `gorm:"column:started_at"`
	FinishedAt    time.Time      `gorm:"column:finished_at;index"`
}

func (RunModel) TableName() string { return "runs" }

// CandidateModel 对应 run_candidates 表。
type CandidateModel struct {
	ID                string         `gorm:"column:id;primaryKey"`
	RunID             string         `gorm:"column:run_id;index"`
	Provider          string         `gorm:"column:provider"`
	Image             string         `gorm:"column:image"`
	SequenceIndex     int            `gorm:"column:sequence_index"`
	GroupSize         int            `gorm:"column:group_size"`
	Submitted         int            `gorm:"column:submitted"`
	Composite         float64        `gorm:"column:composite"`
	ScoreSource       string         `gorm:"column:score_source"`
	DimensionsJSON    datatypes.JSON `gorm:"column:dimensions_json"`
	CommentsJSON      datatypes.JSON `gorm:"column:comments_json"`
	ConsistencyScore  float64        `gorm:"column:consistency_score"`
	ConsistencyStatus string         `gorm:"column:consistency_status"`
}

func (CandidateModel) TableName() string { return "run_candidates" }

// CallEventModel 对应 run_call_events 表：外部调用明细。
type CallEventModel struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement"`
	RunID       string    `gorm:"column:run_id;index"`
	Stage       string    `gorm:"column:stage"`
	Target      string    `gorm:"column:target"`
	CandidateID string    `gorm:"column:candidate_id"`
	DurationMS  int64     `gorm:"column:duration_ms"`
	Error       string    `gorm:"column:error"`
	At          time.Time `gorm:"column:at;index"`
}

func (CallEventModel) TableName() string { return "run_call_events" }
