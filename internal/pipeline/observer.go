package pipeline

import (
	"time"

	"pictor/internal/types"
)

// 阶段常量（事件记录用）。
const (
	StageGenerate    = "generate"
	StageScore       = "score"
	StageConsistency = "consistency"
	StageReview      = "review"
)

// CallEvent 单次外部调用的记录：哪个阶段、打到哪、花了多久、是否失败。
type CallEvent struct {
	RunID       string
	Stage       string
	Target      string
	CandidateID string
	Duration    time.Duration
	Err         string
	At          time.Time
}

// Observer 运行期观察者。实现方不得阻塞流水线，失败自行消化。
type Observer interface {
	RunStarted(runID string, req types.GenerateRequest)
	CallObserved(evt CallEvent)
	RunFinished(result *types.RunResult, runErr error)
}

// NopObserver 默认空实现。
type NopObserver struct{}

func (NopObserver) RunStarted(string, types.GenerateRequest) {}
func (NopObserver) CallObserved(CallEvent)                   {}
func (NopObserver) RunFinished(*types.RunResult, error)      {}
