package consistency

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pictor/internal/config"
	"pictor/internal/gateway/oracle"
	"pictor/internal/types"
)

type stubOracle struct {
	judgment *oracle.ConsistencyJudgment
	err      error
}

func (s *stubOracle) VerifyConsistency(context.Context, []string, string, string) (*oracle.ConsistencyJudgment, error) {
	return s.judgment, s.err
}

type stubPrompts struct{}

func (stubPrompts) Consistency(prompt string) string { return "consistency: " + prompt }

func newVerifier(score float64) *Verifier {
	return NewVerifier(
		config.ConsistencyConfig{ConsistentMin: 0.8, UncertainMin: 0.5},
		&stubOracle{judgment: &oracle.ConsistencyJudgment{Score: score, Comment: "ok"}},
		stubPrompts{},
	)
}

func verify(t *testing.T, v *Verifier) *types.ConsistencyResult {
	t.Helper()
	result, err := v.Verify(context.Background(), []string{"ref1"}, &types.Candidate{ID: "c1", Image: "img"}, "一只猫")
	require.NoError(t, err)
	return result
}

func TestVerifierStatusMapping(t *testing.T) {
	assert.Equal(t, types.ConsistencyConsistent, verify(t, newVerifier(0.85)).Status)
	assert.Equal(t, types.ConsistencyUncertain, verify(t, newVerifier(0.65)).Status)
	assert.Equal(t, types.ConsistencyInconsistent, verify(t, newVerifier(0.2)).Status)
}

func TestVerifierThresholdBoundaries(t *testing.T) {
	// 恰好等于阈值按高档处理
	assert.Equal(t, types.ConsistencyConsistent, verify(t, newVerifier(0.8)).Status)
	assert.Equal(t, types.ConsistencyUncertain, verify(t, newVerifier(0.5)).Status)
}

func TestVerifierRequiresReferences(t *testing.T) {
	v := newVerifier(0.9)
	_, err := v.Verify(context.Background(), nil, &types.Candidate{ID: "c1", Image: "img"}, "p")
	assert.Error(t, err)
}

func TestVerifierRequiresCandidateImage(t *testing.T) {
	v := newVerifier(0.9)
	_, err := v.Verify(context.Background(), []string{"ref"}, &types.Candidate{ID: "c1"}, "p")
	assert.Error(t, err)
}

func TestVerifierPropagatesOracleError(t *testing.T) {
	v := NewVerifier(
		config.ConsistencyConfig{ConsistentMin: 0.8, UncertainMin: 0.5},
		&stubOracle{err: errors.New("裁判超时")},
		stubPrompts{},
	)
	_, err := v.Verify(context.Background(), []string{"ref"}, &types.Candidate{ID: "c1", Image: "img"}, "p")
	assert.Error(t, err)
}
