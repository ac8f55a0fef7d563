// Package quality folds per-source fetch outcomes and sanity-check results
// into a single 0-100 data-quality score with a PROCEED/RETRY/HALT verdict.
package quality

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tradeforge/signalguard/internal/domain"
)

// Config holds the score weights and recommendation thresholds. Weights must
// sum to 100.
type Config struct {
	SourceWeight     float64 `yaml:"source_weight" default:"50"`
	SanityWeight     float64 `yaml:"sanity_weight" default:"35"`
	NoErrorBonus     float64 `yaml:"no_error_bonus" default:"15"`
	ProceedThreshold float64 `yaml:"proceed_threshold" default:"70"`
	RetryThreshold   float64 `yaml:"retry_threshold" default:"40"`
}

// DefaultConfig returns the canonical 50/35/15 weighting with 70/40 cuts.
func DefaultConfig() Config {
	return Config{
		SourceWeight:     50,
		SanityWeight:     35,
		NoErrorBonus:     15,
		ProceedThreshold: 70,
		RetryThreshold:   40,
	}
}

// Validate rejects weight sets that cannot produce a 0-100 score.
func (c Config) Validate() error {
	if sum := c.SourceWeight + c.SanityWeight + c.NoErrorBonus; sum != 100 {
		return fmt.Errorf("quality weights must sum to 100, got %.1f", sum)
	}
	if c.RetryThreshold >= c.ProceedThreshold {
		return fmt.Errorf("retry threshold %.1f must be below proceed threshold %.1f",
			c.RetryThreshold, c.ProceedThreshold)
	}
	return nil
}

// Scorer computes quality assessments for refresh cycles.
type Scorer struct {
	cfg Config
}

// New creates a Scorer. Config should have been validated at load time.
func New(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score combines source availability, sanity-check pass rate, and an
// absence-of-ERROR bonus into the weighted 0-100 score.
func (s *Scorer) Score(statuses []domain.SourceStatus, sanity domain.SanityCheckResult) domain.QualityAssessment {
	assessment := domain.QualityAssessment{
		Sources:       append([]domain.SourceStatus(nil), statuses...),
		Discrepancies: append([]domain.Discrepancy(nil), sanity.Discrepancies...),
	}

	sourceFraction := 0.0
	if len(statuses) > 0 {
		successes := 0
		for _, status := range statuses {
			if status.Status == domain.StatusSuccess {
				successes++
			}
		}
		sourceFraction = float64(successes) / float64(len(statuses))
	}

	sanityFraction := 0.0
	if len(sanity.Checks) > 0 {
		passed := 0
		for _, ok := range sanity.Checks {
			if ok {
				passed++
			}
		}
		sanityFraction = float64(passed) / float64(len(sanity.Checks))
	}

	bonus := s.cfg.NoErrorBonus
	for _, d := range sanity.Discrepancies {
		if d.Severity >= domain.SeverityError {
			bonus = 0
			break
		}
	}

	assessment.Score = sourceFraction*s.cfg.SourceWeight + sanityFraction*s.cfg.SanityWeight + bonus

	switch {
	case assessment.Score >= s.cfg.ProceedThreshold:
		assessment.Recommendation = domain.RecommendProceed
	case assessment.Score >= s.cfg.RetryThreshold:
		assessment.Recommendation = domain.RecommendRetry
	default:
		assessment.Recommendation = domain.RecommendHalt
	}

	if assessment.Recommendation != domain.RecommendProceed {
		log.Warn().Float64("score", assessment.Score).
			Str("recommendation", string(assessment.Recommendation)).
			Msg("degraded data quality")
	}

	return assessment
}
