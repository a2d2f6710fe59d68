package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pictor/internal/gateway/oracle"
)

type stubOracle struct {
	report *oracle.ScoreReport
	err    error
}

func (s *stubOracle) Score(context.Context, string, string, string) (*oracle.ScoreReport, error) {
	return s.report, s.err
}

type stubPrompts struct{}

func (stubPrompts) ScoringSystem() string            { return "system" }
func (stubPrompts) ScoringUser(prompt string) string { return "user: " + prompt }

func TestNormalizeTen(t *testing.T) {
	assert.Equal(t, 0.8, NormalizeTen(8))
	assert.Equal(t, 0.75, NormalizeTen(7.5))
	assert.Equal(t, 0.333, NormalizeTen(3.33))
	assert.Equal(t, 1.0, NormalizeTen(12), "超出 10 分按满分")
	assert.Equal(t, 0.0, NormalizeTen(-1))
}

func TestOracleScorerMapsNativeLabels(t *testing.T) {
	s := NewOracleScorer(&stubOracle{report: &oracle.ScoreReport{
		Dimensions: map[string]oracle.DimensionScore{
			"prompt_adherence":     {Score: 8, Comment: "贴合"},
			"anatomical_integrity": {Score: 6},
			"physical_logic":       {Score: 9},
			"aesthetic_value":      {Score: 7},
		},
	}}, stubPrompts{})

	result, err := s.Score(context.Background(), "img", "一只猫")
	require.NoError(t, err)
	assert.Equal(t, 0.8, result.Dimensions[DimPromptFidelity])
	assert.Equal(t, 0.6, result.Dimensions[DimStructuralIntegrity])
	assert.Equal(t, 0.9, result.Dimensions[DimPhysicalPlausibility])
	assert.Equal(t, 0.7, result.Dimensions[DimAestheticAppeal])
	assert.Equal(t, "贴合", result.Comments[DimPromptFidelity])
}

func TestOracleScorerIdentityWinsOverLegacy(t *testing.T) {
	s := NewOracleScorer(&stubOracle{report: &oracle.ScoreReport{
		Dimensions: map[string]oracle.DimensionScore{
			"prompt_fidelity":   {Score: 9},
			"semantic_fidelity": {Score: 3},
		},
	}}, stubPrompts{})

	result, err := s.Score(context.Background(), "img", "p")
	require.NoError(t, err)
	assert.Equal(t, 0.9, result.Dimensions[DimPromptFidelity], "同名直通优先于旧版标签")
}

func TestOracleScorerLegacyLabels(t *testing.T) {
	s := NewOracleScorer(&stubOracle{report: &oracle.ScoreReport{
		Dimensions: map[string]oracle.DimensionScore{
			"clarity_integrity": {Score: 5},
			"composition":       {Score: 6},
			"style_coherence":   {Score: 7},
			"light_color":       {Score: 8},
		},
	}}, stubPrompts{})

	result, err := s.Score(context.Background(), "img", "p")
	require.NoError(t, err)
	assert.Equal(t, 0.5, result.Dimensions[DimStructuralIntegrity])
	assert.Equal(t, 0.6, result.Dimensions[DimPhysicalPlausibility])
	assert.Equal(t, 0.7, result.Dimensions[DimCleanliness])
	assert.Equal(t, 0.8, result.Dimensions[DimAestheticAppeal])
}

func TestOracleScorerUnmappableLabels(t *testing.T) {
	s := NewOracleScorer(&stubOracle{report: &oracle.ScoreReport{
		Dimensions: map[string]oracle.DimensionScore{"mystery": {Score: 8}},
	}}, stubPrompts{})

	_, err := s.Score(context.Background(), "img", "p")
	assert.Error(t, err)
}

func TestOracleScorerPropagatesError(t *testing.T) {
	s := NewOracleScorer(&stubOracle{err: errors.New("网络错误")}, stubPrompts{})
	_, err := s.Score(context.Background(), "img", "p")
	assert.Error(t, err)
}

func TestOracleScorerIgnoresFinalForComposite(t *testing.T) {
	s := NewOracleScorer(&stubOracle{report: &oracle.ScoreReport{
		Dimensions: map[string]oracle.DimensionScore{"prompt_fidelity": {Score: 4}},
		Final:      9.9,
		HasFinal:   true,
	}}, stubPrompts{})

	result, err := s.Score(context.Background(), "img", "p")
	require.NoError(t, err)
	assert.Zero(t, result.Composite, "综合分由聚合器计算而非裁判给出")
}
