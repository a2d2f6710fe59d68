package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pictor/internal/config"
	"pictor/internal/types"
)

type stubScorer struct {
	name   string
	result *types.ScoringResult
	err    error
	calls  int
}

func (s *stubScorer) Name() string { return s.name }

func (s *stubScorer) Score(context.Context, string, string) (*types.ScoringResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func scoringCfg() config.ScoringConfig {
	return config.ScoringConfig{
		Weights: map[string]float64{
			DimStructuralIntegrity: 0.3,
			DimPromptFidelity:      0.3,
			DimAestheticAppeal:     0.2,
			DimCleanliness:         0.2,
		},
		VetoThreshold: 0.6,
		VetoCap:       0.5,
	}
}

func TestAggregatorCompositeFormula(t *testing.T) {
	scorer := &stubScorer{name: "oracle", result: &types.ScoringResult{
		Dimensions: map[string]float64{
			DimStructuralIntegrity: 0.8,
			DimPromptFidelity:      0.9,
			DimAestheticAppeal:     0.7,
			DimCleanliness:         0.6,
		},
	}}
	agg := NewAggregator(scoringCfg(), scorer)

	result, err := agg.Score(context.Background(), "data:image/png;base64,xx", "一只猫")
	require.NoError(t, err)
	assert.InDelta(t, 0.3*0.8+0.3*0.9+0.2*0.7+0.2*0.6, result.Composite, 1e-9)
	assert.Equal(t, "oracle", result.Source)
}

func TestAggregatorMissingDimensionsCountZero(t *testing.T) {
	scorer := &stubScorer{name: "oracle", result: &types.ScoringResult{
		Dimensions: map[string]float64{DimAestheticAppeal: 1.0},
	}}
	agg := NewAggregator(scoringCfg(), scorer)

	result, err := agg.Score(context.Background(), "img", "p")
	require.NoError(t, err)
	assert.InDelta(t, 0.2, result.Composite, 1e-9)
}

func TestAggregatorVetoCapsComposite(t *testing.T) {
	scorer := &stubScorer{name: "oracle", result: &types.ScoringResult{
		Dimensions: map[string]float64{
			DimStructuralIntegrity: 0.5, // 低于否决线
			DimPromptFidelity:      1.0,
			DimAestheticAppeal:     1.0,
			DimCleanliness:         1.0,
		},
	}}
	agg := NewAggregator(scoringCfg(), scorer)

	result, err := agg.Score(context.Background(), "img", "p")
	require.NoError(t, err)
	// 加权和 0.3*0.5+0.3+0.2+0.2 = 0.85，封顶到 0.5
	assert.InDelta(t, 0.5, result.Composite, 1e-9)
}

func TestAggregatorVetoKeepsLowerComposite(t *testing.T) {
	scorer := &stubScorer{name: "oracle", result: &types.ScoringResult{
		Dimensions: map[string]float64{
			DimStructuralIntegrity: 0.2,
			DimPromptFidelity:      0.3,
		},
	}}
	agg := NewAggregator(scoringCfg(), scorer)

	result, err := agg.Score(context.Background(), "img", "p")
	require.NoError(t, err)
	// 加权和 0.15 本来就低于封顶值，不得被抬高
	assert.InDelta(t, 0.15, result.Composite, 1e-9)
}

func TestAggregatorStructuralAtThresholdNoVeto(t *testing.T) {
	scorer := &stubScorer{name: "oracle", result: &types.ScoringResult{
		Dimensions: map[string]float64{
			DimStructuralIntegrity: 0.6,
			DimPromptFidelity:      1.0,
			DimAestheticAppeal:     1.0,
			DimCleanliness:         1.0,
		},
	}}
	agg := NewAggregator(scoringCfg(), scorer)

	result, err := agg.Score(context.Background(), "img", "p")
	require.NoError(t, err)
	assert.InDelta(t, 0.88, result.Composite, 1e-9)
}

func TestAggregatorFallbackOrder(t *testing.T) {
	first := &stubScorer{name: "oracle", err: errors.New("裁判超时")}
	second := &stubScorer{name: "signal_stats", result: &types.ScoringResult{
		Dimensions: map[string]float64{DimAestheticAppeal: 0.9},
	}}
	third := &stubScorer{name: "baseline", result: &types.ScoringResult{
		Dimensions: map[string]float64{DimAestheticAppeal: 0.5},
	}}
	agg := NewAggregator(scoringCfg(), first, second, third)

	result, err := agg.Score(context.Background(), "img", "p")
	require.NoError(t, err)
	assert.Equal(t, "signal_stats", result.Source)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls, "成功后不应再尝试后续打分器")
}

func TestAggregatorAllScorersFail(t *testing.T) {
	agg := NewAggregator(scoringCfg(),
		&stubScorer{name: "oracle", err: errors.New("超时")},
		&stubScorer{name: "baseline", err: errors.New("兜底也挂了")},
	)

	result, err := agg.Score(context.Background(), "img", "p")
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrUnscored)
}

func TestAggregatorCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	scorer := &stubScorer{name: "oracle", result: &types.ScoringResult{
		Dimensions: map[string]float64{DimAestheticAppeal: 1},
	}}
	agg := NewAggregator(scoringCfg(), scorer)

	_, err := agg.Score(ctx, "img", "p")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, scorer.calls)
}

func TestAggregatorScoreIdempotent(t *testing.T) {
	scorer := &stubScorer{name: "oracle", result: &types.ScoringResult{
		Dimensions: map[string]float64{
			DimStructuralIntegrity: 0.7,
			DimPromptFidelity:      0.7,
		},
	}}
	agg := NewAggregator(scoringCfg(), scorer)

	first, err := agg.Score(context.Background(), "img", "p")
	require.NoError(t, err)
	scorer.result = &types.ScoringResult{Dimensions: map[string]float64{
		DimStructuralIntegrity: 0.7,
		DimPromptFidelity:      0.7,
	}}
	second, err := agg.Score(context.Background(), "img", "p")
	require.NoError(t, err)
	assert.Equal(t, first.Composite, second.Composite)
}
