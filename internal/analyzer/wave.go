package analyzer

import (
	"math"

	"github.com/tradeforge/signalguard/internal/domain"
)

// minHistoryPoints is the floor below which no structural read is attempted.
const minHistoryPoints = 2

// wavePoints is the preferred window for wave classification.
const wavePoints = 10

// classifyWavePattern labels recent price action as trend continuation,
// trend break, or uncertain. The window is split in half and each half's
// slope is compared against the residual volatility band: agreeing moves
// beyond the band continue the trend, opposing moves break it, anything
// inside the band is chop.
func classifyWavePattern(history []float64) domain.WavePattern {
	if len(history) < minHistoryPoints+2 {
		return domain.WaveUncertain
	}

	window := history
	if len(window) > wavePoints {
		window = window[len(window)-wavePoints:]
	}

	mid := len(window) / 2
	olderHalf := window[:mid+1]
	newerHalf := window[mid:]
	older := normalizedSlope(olderHalf)
	newer := normalizedSlope(newerHalf)

	band := residualBandWidth(window)

	// A half-window move is significant when it travels beyond the noise
	// band over its span.
	olderSignificant := math.Abs(older)*float64(len(olderHalf)-1) > band
	newerSignificant := math.Abs(newer)*float64(len(newerHalf)-1) > band

	switch {
	case olderSignificant && newerSignificant && sameSign(older, newer):
		return domain.WaveContinuation
	case olderSignificant && newerSignificant:
		return domain.WaveBreak
	default:
		return domain.WaveUncertain
	}
}

// normalizedSlope is the least-squares slope of the series divided by its
// mean, i.e. fractional change per step. Returns 0 for degenerate input.
func normalizedSlope(series []float64) float64 {
	n := float64(len(series))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	slope := (n*sumXY - sumX*sumY) / denom

	mean := sumY / n
	if mean == 0 {
		return 0
	}
	return slope / mean
}

// residualBandWidth measures volatility around the fitted trend line: the
// standard deviation of regression residuals as a fraction of the mean. A
// clean ramp has a band near zero; a choppy series a wide one.
func residualBandWidth(series []float64) float64 {
	n := float64(len(series))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	mean := sumY / n
	if mean == 0 {
		return 0
	}

	denom := n*sumXX - sumX*sumX
	var slope float64
	if denom != 0 {
		slope = (n*sumXY - sumX*sumY) / denom
	}
	intercept := (sumY - slope*sumX) / n

	var residSq float64
	for i, y := range series {
		fitted := intercept + slope*float64(i)
		residSq += (y - fitted) * (y - fitted)
	}

	return math.Sqrt(residSq/n) / math.Abs(mean)
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

// clamp01h bounds v into [0,100].
func clamp01h(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
