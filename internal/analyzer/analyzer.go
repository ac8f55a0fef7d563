// Package analyzer derives higher-level market-state signals from one
// validated snapshot: wave-pattern classification, a time-symmetric
// trajectory read, and bounded liquidity/mempool/whale/macro sub-scores.
// Every output field that is a score lands in [0,100] by construction; the
// self-correction validator downstream re-checks that anyway.
package analyzer

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/tradeforge/signalguard/internal/domain"
)

// Weights blends the sub-scores into the confidence score. Must sum to 1.
type Weights struct {
	Trajectory float64 `yaml:"trajectory" default:"0.30"`
	Wave       float64 `yaml:"wave" default:"0.20"`
	Liquidity  float64 `yaml:"liquidity" default:"0.15"`
	Mempool    float64 `yaml:"mempool" default:"0.10"`
	Whale      float64 `yaml:"whale" default:"0.10"`
	Macro      float64 `yaml:"macro" default:"0.15"`
}

// DefaultWeights returns the production confidence blend.
func DefaultWeights() Weights {
	return Weights{
		Trajectory: 0.30,
		Wave:       0.20,
		Liquidity:  0.15,
		Mempool:    0.10,
		Whale:      0.10,
		Macro:      0.15,
	}
}

// Config holds analyzer tuning.
type Config struct {
	Weights    Weights `yaml:"weights"`
	MempoolMin int64   `yaml:"mempool_min" default:"500"`
	MempoolMax int64   `yaml:"mempool_max" default:"500000"`
}

// DefaultConfig returns production analyzer settings.
func DefaultConfig() Config {
	return Config{
		Weights:    DefaultWeights(),
		MempoolMin: 500,
		MempoolMax: 500000,
	}
}

// Analyzer derives MarketStateAnalysis values. It keeps no cross-call state;
// every analysis is a pure function of its inputs.
type Analyzer struct {
	cfg Config
}

// New creates an Analyzer.
func New(cfg Config) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// wavePatternScore maps the structural label to a confidence contribution.
var wavePatternScore = map[domain.WavePattern]float64{
	domain.WaveContinuation: 80,
	domain.WaveBreak:        55,
	domain.WaveUncertain:    30,
}

// Analyze produces the full derived view. onChain and sentiment may be nil;
// the affected sub-scores fall back to neutral values and the omission is
// recorded in Errors.
func (a *Analyzer) Analyze(snapshot domain.MarketSnapshot, onChain *domain.OnChainSnapshot, sentiment *domain.SentimentSnapshot) domain.MarketStateAnalysis {
	analysis := domain.MarketStateAnalysis{
		Symbol: snapshot.Symbol,
		Errors: []string{},
	}

	history := snapshot.PriceHistory
	if len(history) < minHistoryPoints {
		analysis.Errors = append(analysis.Errors,
			fmt.Sprintf("price history has %d points, need at least %d", len(history), minHistoryPoints))
	}

	analysis.WavePattern = classifyWavePattern(history)
	analysis.Trajectory = computeTrajectory(history)
	analysis.Liquidity = liquidityProfile(snapshot.BidDepth, snapshot.AskDepth)

	if onChain != nil {
		analysis.MempoolPattern, analysis.MempoolScore = mempoolRead(onChain.MempoolSize, a.cfg.MempoolMin, a.cfg.MempoolMax)
		analysis.WhaleMovement, analysis.WhaleScore = whaleRead(*onChain)
	} else {
		analysis.MempoolPattern, analysis.MempoolScore = MempoolNormal, 50
		analysis.WhaleMovement, analysis.WhaleScore = WhaleNeutral, 50
		analysis.Errors = append(analysis.Errors, "on-chain snapshot unavailable, mempool and whale scores neutral")
	}

	if sentiment != nil {
		analysis.MacroCyclePhase, analysis.MacroScore = macroRead(*sentiment)
	} else {
		analysis.MacroCyclePhase, analysis.MacroScore = MacroTransition, 50
		analysis.Errors = append(analysis.Errors, "sentiment snapshot unavailable, macro score neutral")
	}

	w := a.cfg.Weights
	analysis.ConfidenceScore = clamp01h(
		analysis.Trajectory.Alignment*w.Trajectory +
			wavePatternScore[analysis.WavePattern]*w.Wave +
			analysis.Liquidity.HarmonicScore*w.Liquidity +
			analysis.MempoolScore*w.Mempool +
			analysis.WhaleScore*w.Whale +
			analysis.MacroScore*w.Macro)

	analysis.Reasoning = a.reasoning(analysis)
	analysis.Justification = a.justification(analysis)

	log.Debug().Str("symbol", snapshot.Symbol).
		Str("wave", string(analysis.WavePattern)).
		Float64("confidence", analysis.ConfidenceScore).
		Msg("market state analyzed")

	return analysis
}

// reasoning renders the numeric conclusion as text. It is generated from the
// analysis fields only, never from external content.
func (a *Analyzer) reasoning(analysis domain.MarketStateAnalysis) string {
	return fmt.Sprintf(
		"%s wave with %s forward trajectory (strength %.0f, alignment %.0f); "+
			"book %s (harmonic %.0f); mempool %s; whales %s; macro phase %s",
		analysis.WavePattern,
		analysis.Trajectory.Forward.Direction,
		analysis.Trajectory.Forward.Strength,
		analysis.Trajectory.Alignment,
		bookLabel(analysis.Liquidity.Imbalance),
		analysis.Liquidity.HarmonicScore,
		analysis.MempoolPattern,
		analysis.WhaleMovement,
		analysis.MacroCyclePhase)
}

func (a *Analyzer) justification(analysis domain.MarketStateAnalysis) string {
	w := a.cfg.Weights
	return fmt.Sprintf(
		"confidence %.1f = trajectory %.0f×%.2f + wave %.0f×%.2f + liquidity %.0f×%.2f + "+
			"mempool %.0f×%.2f + whale %.0f×%.2f + macro %.0f×%.2f",
		analysis.ConfidenceScore,
		analysis.Trajectory.Alignment, w.Trajectory,
		wavePatternScore[analysis.WavePattern], w.Wave,
		analysis.Liquidity.HarmonicScore, w.Liquidity,
		analysis.MempoolScore, w.Mempool,
		analysis.WhaleScore, w.Whale,
		analysis.MacroScore, w.Macro)
}

func bookLabel(imbalance float64) string {
	switch {
	case imbalance > 0.1:
		return "bid-heavy"
	case imbalance < -0.1:
		return "ask-heavy"
	default:
		return "balanced"
	}
}
