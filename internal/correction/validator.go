// Package correction checks analyzer output for out-of-range derived fields
// and repairs it. Validation never mutates its input; correction returns a
// fresh copy plus a record of every field it changed.
package correction

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tradeforge/signalguard/internal/domain"
)

// ValidationReport is the read-only diagnostic view of one analysis.
type ValidationReport struct {
	IsValid    bool     `json:"is_valid"`
	Confidence float64  `json:"confidence"` // 0-100, share of fields in range
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
}

// Validator validates and repairs MarketStateAnalysis values.
type Validator struct{}

// New creates a Validator.
func New() *Validator {
	return &Validator{}
}

// boundedField is one [lo,hi]-bounded field with accessors for read and
// write against an analysis value.
type boundedField struct {
	name   string
	lo, hi float64
	get    func(*domain.MarketStateAnalysis) float64
	set    func(*domain.MarketStateAnalysis, float64)
}

func boundedFields() []boundedField {
	return []boundedField{
		{
			name: "confidenceScore", lo: 0, hi: 100,
			get: func(a *domain.MarketStateAnalysis) float64 { return a.ConfidenceScore },
			set: func(a *domain.MarketStateAnalysis, v float64) { a.ConfidenceScore = v },
		},
		{
			name: "trajectory.alignment", lo: 0, hi: 100,
			get: func(a *domain.MarketStateAnalysis) float64 { return a.Trajectory.Alignment },
			set: func(a *domain.MarketStateAnalysis, v float64) { a.Trajectory.Alignment = v },
		},
		{
			name: "trajectory.forward.strength", lo: 0, hi: 100,
			get: func(a *domain.MarketStateAnalysis) float64 { return a.Trajectory.Forward.Strength },
			set: func(a *domain.MarketStateAnalysis, v float64) { a.Trajectory.Forward.Strength = v },
		},
		{
			name: "trajectory.forward.probability", lo: 0, hi: 100,
			get: func(a *domain.MarketStateAnalysis) float64 { return a.Trajectory.Forward.Probability },
			set: func(a *domain.MarketStateAnalysis, v float64) { a.Trajectory.Forward.Probability = v },
		},
		{
			name: "trajectory.reverse.strength", lo: 0, hi: 100,
			get: func(a *domain.MarketStateAnalysis) float64 { return a.Trajectory.Reverse.Strength },
			set: func(a *domain.MarketStateAnalysis, v float64) { a.Trajectory.Reverse.Strength = v },
		},
		{
			name: "trajectory.reverse.probability", lo: 0, hi: 100,
			get: func(a *domain.MarketStateAnalysis) float64 { return a.Trajectory.Reverse.Probability },
			set: func(a *domain.MarketStateAnalysis, v float64) { a.Trajectory.Reverse.Probability = v },
		},
		{
			name: "liquidity.harmonicScore", lo: 0, hi: 100,
			get: func(a *domain.MarketStateAnalysis) float64 { return a.Liquidity.HarmonicScore },
			set: func(a *domain.MarketStateAnalysis, v float64) { a.Liquidity.HarmonicScore = v },
		},
		{
			name: "liquidity.imbalance", lo: -1, hi: 1,
			get: func(a *domain.MarketStateAnalysis) float64 { return a.Liquidity.Imbalance },
			set: func(a *domain.MarketStateAnalysis, v float64) { a.Liquidity.Imbalance = v },
		},
		{
			name: "liquidity.bidDepth", lo: 0, hi: maxDepth,
			get: func(a *domain.MarketStateAnalysis) float64 { return a.Liquidity.BidDepth },
			set: func(a *domain.MarketStateAnalysis, v float64) { a.Liquidity.BidDepth = v },
		},
		{
			name: "liquidity.askDepth", lo: 0, hi: maxDepth,
			get: func(a *domain.MarketStateAnalysis) float64 { return a.Liquidity.AskDepth },
			set: func(a *domain.MarketStateAnalysis, v float64) { a.Liquidity.AskDepth = v },
		},
		{
			name: "mempoolScore", lo: 0, hi: 100,
			get: func(a *domain.MarketStateAnalysis) float64 { return a.MempoolScore },
			set: func(a *domain.MarketStateAnalysis, v float64) { a.MempoolScore = v },
		},
		{
			name: "whaleScore", lo: 0, hi: 100,
			get: func(a *domain.MarketStateAnalysis) float64 { return a.WhaleScore },
			set: func(a *domain.MarketStateAnalysis, v float64) { a.WhaleScore = v },
		},
		{
			name: "macroScore", lo: 0, hi: 100,
			get: func(a *domain.MarketStateAnalysis) float64 { return a.MacroScore },
			set: func(a *domain.MarketStateAnalysis, v float64) { a.MacroScore = v },
		},
	}
}

// maxDepth is an effectively-unbounded upper limit for depth fields; only
// negative depths are out of range.
const maxDepth = 1e18

// ValidateReasoning inspects the analysis without touching it. The
// confidence figure is the share of bounded fields already in range.
func (v *Validator) ValidateReasoning(analysis domain.MarketStateAnalysis) ValidationReport {
	report := ValidationReport{Errors: []string{}, Warnings: []string{}}

	fields := boundedFields()
	inRange := 0
	for _, field := range fields {
		value := field.get(&analysis)
		if value < field.lo || value > field.hi {
			report.Errors = append(report.Errors,
				fmt.Sprintf("%s=%v outside [%v, %v]", field.name, value, field.lo, field.hi))
			continue
		}
		inRange++
	}

	if analysis.WavePattern != domain.WaveContinuation &&
		analysis.WavePattern != domain.WaveBreak &&
		analysis.WavePattern != domain.WaveUncertain {
		report.Errors = append(report.Errors,
			fmt.Sprintf("wavePattern %q is not a known label", analysis.WavePattern))
	}

	if analysis.Reasoning == "" {
		report.Warnings = append(report.Warnings, "reasoning text is empty")
	}

	report.IsValid = len(report.Errors) == 0
	report.Confidence = float64(inRange) / float64(len(fields)) * 100
	return report
}

// CorrectErrors returns a repaired copy of the analysis together with the
// list of corrections applied. If everything was already in range the list
// is empty and the returned analysis is value-equal to the input. The input
// is never modified.
func (v *Validator) CorrectErrors(analysis domain.MarketStateAnalysis) (domain.MarketStateAnalysis, []domain.Correction) {
	corrected := analysis.Clone()
	corrections := []domain.Correction{}

	for _, field := range boundedFields() {
		value := field.get(&corrected)
		clamped := value
		if value < field.lo {
			clamped = field.lo
		} else if value > field.hi {
			clamped = field.hi
		}
		if clamped == value {
			continue
		}

		field.set(&corrected, clamped)
		corrections = append(corrections, domain.Correction{
			Field:     field.name,
			Original:  value,
			Corrected: clamped,
			Reason:    fmt.Sprintf("clamped into [%v, %v]", field.lo, field.hi),
		})
	}

	if corrected.WavePattern != domain.WaveContinuation &&
		corrected.WavePattern != domain.WaveBreak &&
		corrected.WavePattern != domain.WaveUncertain {
		original := corrected.WavePattern
		corrected.WavePattern = domain.WaveUncertain
		corrections = append(corrections, domain.Correction{
			Field:  "wavePattern",
			Reason: fmt.Sprintf("unknown label %q replaced with %s", original, domain.WaveUncertain),
		})
	}

	if len(corrections) > 0 {
		corrected.Corrections = append(corrected.Corrections, corrections...)
		for _, c := range corrections {
			log.Warn().Str("field", c.Field).
				Float64("original", c.Original).
				Float64("corrected", c.Corrected).
				Str("reason", c.Reason).
				Msg("analysis field corrected")
		}
	}

	return corrected, corrections
}
