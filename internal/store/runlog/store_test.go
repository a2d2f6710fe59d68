package runlog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pictor/internal/pipeline"
	"pictor/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(runID string, finished time.Time) *types.RunResult {
	return &types.RunResult{
		RunID: runID,
		Request: types.GenerateRequest{
			Prompt:        "一只戴帽子的猫",
			Providers:     []string{"seedream"},
			NumCandidates: 2,
		},
		BestImage:     "https://img.example.com/a.png",
		BestProvider:  "seedream",
		BestComposite: 0.82,
		Candidates: []*types.Candidate{
			{
				ID: runID + "-c2", Provider: "seedream",
				Image: "https://img.example.com/b.png", Submitted: 1,
				Scores: &types.ScoringResult{
					Dimensions: map[string]float64{"prompt_fidelity": 0.6},
					Composite:  0.6, Source: "oracle",
				},
			},
			{
				ID: runID + "-c1", Provider: "seedream",
				Image: "https://img.example.com/a.png", Submitted: 0,
				Scores: &types.ScoringResult{
					Dimensions: map[string]float64{"prompt_fidelity": 0.82},
					Comments:   map[string]string{"prompt_fidelity": "贴合度高"},
					Composite:  0.82, Source: "oracle",
				},
				Consistency: &types.ConsistencyResult{Score: 0.9, Status: types.ConsistencyConsistent},
			},
		},
		ProvidersUsed: []string{"seedream"},
		Summary:       "共 2 个候选，seedream 胜出",
		StartedAt:     finished.Add(-20 * time.Second),
		FinishedAt:    finished,
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	result := sampleResult("run-1", time.Now())
	require.NoError(t, s.SaveRun(ctx, result, nil))

	s.CallObserved(pipeline.CallEvent{
		RunID: "run-1", Stage: pipeline.StageGenerate, Target: "seedream",
		Duration: 1200 * time.Millisecond, At: time.Now(),
	})

	record, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "succeeded", record.Run.Status)
	assert.Equal(t, "open", record.Run.Mode)
	assert.Equal(t, 0.82, record.Run.BestComposite)
	require.Len(t, record.Candidates, 2)
	assert.Equal(t, "run-1-c1", record.Candidates[0].ID, "候选按提交顺序返回")
	assert.Equal(t, types.ConsistencyConsistent, record.Candidates[0].ConsistencyStatus)
	require.Len(t, record.Events, 1)
	assert.Equal(t, int64(1200), record.Events[0].DurationMS)
}

func TestSaveRunRecordsFailure(t *testing.T) {
	s := newTestStore(t)
	result := sampleResult("run-2", time.Now())
	require.NoError(t, s.SaveRun(context.Background(), result, errors.New("下游超时")))

	record, err := s.GetRun(context.Background(), "run-2")
	require.NoError(t, err)
	assert.Equal(t, "failed", record.Run.Status)
	assert.Equal(t, "下游超时", record.Run.Error)
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRunsOrderedByFinish(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.SaveRun(ctx, sampleResult("old", now.Add(-time.Hour)), nil))
	require.NoError(t, s.SaveRun(ctx, sampleResult("new", now), nil))

	runs, err := s.ListRuns(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].RunID, "完成时间倒序")
}

func TestSubjectModeDetection(t *testing.T) {
	s := newTestStore(t)
	result := sampleResult("run-sub", time.Now())
	result.Request.ReferenceImages = []string{"data:image/png;base64,cmVm"}
	require.NoError(t, s.SaveRun(context.Background(), result, nil))

	record, err := s.GetRun(context.Background(), "run-sub")
	require.NoError(t, err)
	assert.Equal(t, "subject", record.Run.Mode)
}

func TestPruneExpiredRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, s.SaveRun(ctx, sampleResult("expired", now.AddDate(0, 0, -40)), nil))
	require.NoError(t, s.SaveRun(ctx, sampleResult("fresh", now), nil))
	s.CallObserved(pipeline.CallEvent{RunID: "expired", Stage: pipeline.StageScore, At: now.AddDate(0, 0, -40)})

	deleted, err := s.Prune(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = s.GetRun(ctx, "expired")
	assert.ErrorIs(t, err, ErrRunNotFound)
	record, err := s.GetRun(ctx, "fresh")
	require.NoError(t, err)
	assert.Empty(t, record.Events)

	deleted, err = s.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, deleted, "retention<=0 表示不清理")
}
