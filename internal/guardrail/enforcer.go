// Package guardrail is the final policy gate in front of any surfaced
// output. Rules are stateless and independent; the overall verdict is a
// max-reduction over whatever fired. A guardrail failure is a result, not
// an error: callers always get a typed verdict to act on.
package guardrail

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradeforge/signalguard/internal/domain"
)

// Operation describes the candidate output under evaluation.
type Operation struct {
	Symbol       string    `json:"symbol"`
	SourcesUsed  []string  `json:"sources_used"`
	Price        float64   `json:"price"`
	QualityScore float64   `json:"quality_score"`
	Timestamp    time.Time `json:"timestamp"`
}

// Config holds the guardrail policy.
type Config struct {
	ApprovedSources []string `yaml:"approved_sources"`
	MinQualityScore float64  `yaml:"min_quality_score" default:"70"`
	// MaxPrice bounds plausible absolute price for the tracked asset.
	MaxPrice float64 `yaml:"max_price" default:"1000000"`
	MinPrice float64 `yaml:"min_price" default:"0"`
}

// DefaultConfig returns the production policy for the tracked asset.
func DefaultConfig() Config {
	return Config{
		ApprovedSources: []string{"kraken", "coinbase", "binance", "okx"},
		MinQualityScore: 70,
		MaxPrice:        1_000_000,
		MinPrice:        0,
	}
}

// Enforcer evaluates operations against the policy. It is stateless and safe
// for concurrent use.
type Enforcer struct {
	approved map[string]bool
	cfg      Config
}

// New creates an Enforcer from the policy config.
func New(cfg Config) *Enforcer {
	approved := make(map[string]bool, len(cfg.ApprovedSources))
	for _, source := range cfg.ApprovedSources {
		approved[source] = true
	}
	return &Enforcer{approved: approved, cfg: cfg}
}

// Enforce runs all rules and reduces to the most severe outcome. Passed is
// true only when no rule fired.
func (e *Enforcer) Enforce(op Operation) domain.GuardrailResult {
	result := domain.GuardrailResult{
		Passed:     true,
		Violations: []string{},
		Severity:   domain.SeverityInfo,
		Action:     domain.ActionProceed,
	}

	// Rule 1: source whitelist. An unapproved source is a trust breach, not
	// a data problem; it suspends the operation outright.
	for _, source := range op.SourcesUsed {
		if !e.approved[source] {
			result.Violations = append(result.Violations,
				fmt.Sprintf("UNAPPROVED SOURCE: %q is not in the approved source set", source))
			result.Severity = result.Severity.Max(domain.SeverityFatal)
			result.Action = result.Action.Max(domain.ActionSuspend)
		}
	}

	// Rule 2: minimum data quality.
	if op.QualityScore < e.cfg.MinQualityScore {
		result.Violations = append(result.Violations,
			fmt.Sprintf("DATA QUALITY: score %.1f below required minimum %.1f",
				op.QualityScore, e.cfg.MinQualityScore))
		result.Severity = result.Severity.Max(domain.SeverityError)
		result.Action = result.Action.Max(domain.ActionBlock)
	}

	// Rule 3: price plausibility.
	if op.Price > e.cfg.MaxPrice || op.Price <= e.cfg.MinPrice {
		result.Violations = append(result.Violations,
			fmt.Sprintf("PRICE ANOMALY: reported price %.2f outside plausible bounds (%.2f, %.2f]",
				op.Price, e.cfg.MinPrice, e.cfg.MaxPrice))
		result.Severity = result.Severity.Max(domain.SeverityError)
		result.Action = result.Action.Max(domain.ActionBlock)
	}

	result.Passed = len(result.Violations) == 0

	if !result.Passed {
		log.Warn().Str("symbol", op.Symbol).
			Str("severity", result.Severity.String()).
			Str("action", result.Action.String()).
			Strs("violations", result.Violations).
			Msg("guardrail violation")
	}

	return result
}
