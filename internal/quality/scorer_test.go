package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tradeforge/signalguard/internal/domain"
)

func statuses(successes, failures int) []domain.SourceStatus {
	var out []domain.SourceStatus
	for i := 0; i < successes; i++ {
		out = append(out, domain.SourceStatus{Name: "up", Status: domain.StatusSuccess})
	}
	for i := 0; i < failures; i++ {
		out = append(out, domain.SourceStatus{Name: "down", Status: domain.StatusFailure})
	}
	return out
}

func allChecksPassing() domain.SanityCheckResult {
	return domain.SanityCheckResult{
		Passed: true,
		Checks: map[string]bool{
			domain.CheckMempoolValid:     true,
			domain.CheckWhaleCountValid:  true,
			domain.CheckPriceAgreement:   true,
			domain.CheckVolumeReasonable: true,
			domain.CheckDataFresh:        true,
		},
	}
}

func TestScorePerfectCycle(t *testing.T) {
	scorer := New(DefaultConfig())

	assessment := scorer.Score(statuses(3, 0), allChecksPassing())

	assert.Equal(t, 100.0, assessment.Score)
	assert.Equal(t, domain.RecommendProceed, assessment.Recommendation)
}

func TestScorePartialSourcesStillProceeds(t *testing.T) {
	scorer := New(DefaultConfig())

	// 2/3 sources: 50*2/3 + 35 + 15 ≈ 83.3
	assessment := scorer.Score(statuses(2, 1), allChecksPassing())

	assert.InDelta(t, 83.33, assessment.Score, 0.01)
	assert.Equal(t, domain.RecommendProceed, assessment.Recommendation)
}

func TestScoreErrorDiscrepancyForfeitsBonus(t *testing.T) {
	scorer := New(DefaultConfig())
	sanity := allChecksPassing()
	sanity.Checks[domain.CheckVolumeReasonable] = false
	sanity.Passed = false
	sanity.Discrepancies = []domain.Discrepancy{
		{Type: "volume_implausible", Severity: domain.SeverityError, Description: "negative volume"},
	}

	// 50 + 35*4/5 + 0 = 78
	assessment := scorer.Score(statuses(3, 0), sanity)

	assert.InDelta(t, 78.0, assessment.Score, 0.01)
	assert.Equal(t, domain.RecommendProceed, assessment.Recommendation)
	assert.Len(t, assessment.Discrepancies, 1)
}

func TestScoreWarningKeepsBonus(t *testing.T) {
	scorer := New(DefaultConfig())
	sanity := allChecksPassing()
	sanity.Checks[domain.CheckDataFresh] = false
	sanity.Passed = false
	sanity.Discrepancies = []domain.Discrepancy{
		{Type: "stale_data", Severity: domain.SeverityWarning, Description: "old"},
	}

	// 50 + 35*4/5 + 15 = 93
	assessment := scorer.Score(statuses(3, 0), sanity)
	assert.InDelta(t, 93.0, assessment.Score, 0.01)
}

func TestScoreRetryBand(t *testing.T) {
	scorer := New(DefaultConfig())
	sanity := domain.SanityCheckResult{
		Checks: map[string]bool{
			domain.CheckMempoolValid:     true,
			domain.CheckWhaleCountValid:  true,
			domain.CheckPriceAgreement:   false,
			domain.CheckVolumeReasonable: true,
			domain.CheckDataFresh:        false,
		},
		Discrepancies: []domain.Discrepancy{
			{Type: "price_divergence", Severity: domain.SeverityWarning},
			{Type: "stale_data", Severity: domain.SeverityWarning},
		},
	}

	// 50*1/3 + 35*3/5 + 15 ≈ 52.7 → RETRY
	assessment := scorer.Score(statuses(1, 2), sanity)

	assert.InDelta(t, 52.67, assessment.Score, 0.01)
	assert.Equal(t, domain.RecommendRetry, assessment.Recommendation)
}

func TestScoreHaltOnTotalOutage(t *testing.T) {
	scorer := New(DefaultConfig())
	sanity := domain.SanityCheckResult{
		Checks: map[string]bool{
			domain.CheckMempoolValid:     false,
			domain.CheckWhaleCountValid:  false,
			domain.CheckPriceAgreement:   false,
			domain.CheckVolumeReasonable: false,
			domain.CheckDataFresh:        false,
		},
		Discrepancies: []domain.Discrepancy{
			{Type: "volume_implausible", Severity: domain.SeverityError},
		},
	}

	assessment := scorer.Score(statuses(0, 3), sanity)

	assert.Equal(t, 0.0, assessment.Score)
	assert.Equal(t, domain.RecommendHalt, assessment.Recommendation)
}

func TestScoreBoundaryExactlyAtThresholds(t *testing.T) {
	scorer := New(DefaultConfig())

	// 70 exactly → PROCEED: 50*1 + 35*4/7? Construct via custom checks:
	// 50 (all sources) + 35*4/7 = 70 requires fractional checks; instead use
	// 2/5 sanity and 3/3 sources with no bonus: 50 + 14 = 64 → RETRY.
	sanity := domain.SanityCheckResult{
		Checks: map[string]bool{
			domain.CheckMempoolValid:     true,
			domain.CheckWhaleCountValid:  true,
			domain.CheckPriceAgreement:   false,
			domain.CheckVolumeReasonable: false,
			domain.CheckDataFresh:        false,
		},
		Discrepancies: []domain.Discrepancy{
			{Type: "volume_implausible", Severity: domain.SeverityError},
		},
	}
	assessment := scorer.Score(statuses(3, 0), sanity)
	assert.InDelta(t, 64.0, assessment.Score, 0.01)
	assert.Equal(t, domain.RecommendRetry, assessment.Recommendation)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.SourceWeight = 60
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.RetryThreshold = 80
	assert.Error(t, cfg.Validate())
}
