package risk

import (
	"fmt"
	"math"
)

// Category buckets an aggregated risk score.
type Category string

const (
	CategoryLow      Category = "Low"
	CategoryMedium   Category = "Medium"
	CategoryHigh     Category = "High"
	CategoryCritical Category = "Critical"
)

// weightTolerance absorbs float accumulation when checking that weights
// sum to 1.
const weightTolerance = 1e-9

// AggregateRiskFactors returns the weighted average of factors. Factors must
// be in [0,1]; weights must be non-negative and sum to 1. The result divides
// by the accumulated weight sum so weight sets like {0.4,0.3,0.2,0.1}, whose
// float sum is not exactly 1, still map all-one factors to exactly 1.
func AggregateRiskFactors(factors, weights []float64) (float64, error) {
	if len(factors) == 0 {
		return 0, fmt.Errorf("at least one risk factor is required")
	}
	if len(factors) != len(weights) {
		return 0, fmt.Errorf("got %d factors but %d weights", len(factors), len(weights))
	}

	var weightSum, aggregate float64
	for i, factor := range factors {
		if factor < 0 || factor > 1 {
			return 0, fmt.Errorf("risk factor %d is %.4f, must be in [0,1]", i, factor)
		}
		if weights[i] < 0 {
			return 0, fmt.Errorf("weight %d is %.4f, must be non-negative", i, weights[i])
		}
		weightSum += weights[i]
		aggregate += factor * weights[i]
	}

	if math.Abs(weightSum-1) > weightTolerance {
		return 0, fmt.Errorf("weights must sum to 1, got %.6f", weightSum)
	}
	return aggregate / weightSum, nil
}

// CalculateRiskScore maps a weighted risk-factor vector to [0,100].
// All-zero factors score 0, all-one factors score 100, and increasing any
// factor never decreases the score.
func CalculateRiskScore(factors, weights []float64) (float64, error) {
	aggregate, err := AggregateRiskFactors(factors, weights)
	if err != nil {
		return 0, err
	}
	return aggregate * 100, nil
}

// CategorizeRisk buckets a 0-100 score. Boundaries are inclusive at the
// low end of each bucket.
func CategorizeRisk(score float64) Category {
	switch {
	case score < 25:
		return CategoryLow
	case score < 60:
		return CategoryMedium
	case score < 80:
		return CategoryHigh
	default:
		return CategoryCritical
	}
}
