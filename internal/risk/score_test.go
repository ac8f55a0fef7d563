package risk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregateRiskFactorsExactWeightedAverage(t *testing.T) {
	aggregate, err := AggregateRiskFactors(
		[]float64{0.8, 0.2, 0.5, 0.3},
		[]float64{0.4, 0.3, 0.2, 0.1},
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.51, aggregate, 1e-2)
}

func TestAggregateRiskFactorsRejectsBadInput(t *testing.T) {
	_, err := AggregateRiskFactors(nil, nil)
	assert.Error(t, err)

	_, err = AggregateRiskFactors([]float64{0.5}, []float64{0.5, 0.5})
	assert.Error(t, err)

	_, err = AggregateRiskFactors([]float64{1.5}, []float64{1})
	assert.Error(t, err)

	_, err = AggregateRiskFactors([]float64{0.5, 0.5}, []float64{0.9, -0.1})
	assert.Error(t, err)

	_, err = AggregateRiskFactors([]float64{0.5, 0.5}, []float64{0.5, 0.4})
	assert.Error(t, err, "weights must sum to 1")
}

func TestCalculateRiskScoreBounds(t *testing.T) {
	weights := []float64{0.4, 0.3, 0.2, 0.1}

	zero, err := CalculateRiskScore([]float64{0, 0, 0, 0}, weights)
	require.NoError(t, err)
	assert.Equal(t, 0.0, zero)

	full, err := CalculateRiskScore([]float64{1, 1, 1, 1}, weights)
	require.NoError(t, err)
	assert.Equal(t, 100.0, full)

	mid, err := CalculateRiskScore([]float64{0.8, 0.2, 0.5, 0.3}, weights)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, mid, 0.0)
	assert.LessOrEqual(t, mid, 100.0)
}

func TestCalculateRiskScoreMonotone(t *testing.T) {
	weights := []float64{0.4, 0.3, 0.2, 0.1}
	base := []float64{0.3, 0.3, 0.3, 0.3}

	baseScore, err := CalculateRiskScore(base, weights)
	require.NoError(t, err)

	for i := range base {
		bumped := append([]float64(nil), base...)
		bumped[i] = 0.9

		bumpedScore, err := CalculateRiskScore(bumped, weights)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, bumpedScore, baseScore,
			"raising factor %d must never lower the score", i)
	}
}

func TestCategorizeRiskBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  Category
	}{
		{0, CategoryLow},
		{24.9, CategoryLow},
		{25, CategoryMedium},
		{59.9, CategoryMedium},
		{60, CategoryHigh},
		{79.9, CategoryHigh},
		{80, CategoryCritical},
		{90, CategoryCritical},
		{100, CategoryCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CategorizeRisk(tt.score), "score %.1f", tt.score)
	}
}
