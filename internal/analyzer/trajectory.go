package analyzer

import (
	"math"
	"sort"

	"github.com/tradeforge/signalguard/internal/domain"
)

// sidewaysBandPct is the per-step fractional slope below which a series
// reads as sideways.
const sidewaysBandPct = 0.0005

// readTrend produces one directional read of a price series: direction from
// the normalized slope, strength from slope magnitude, probability from how
// well the fit explains the series, and key levels from the local extremes.
func readTrend(series []float64) domain.TrendRead {
	read := domain.TrendRead{Direction: domain.DirectionSideways, KeyLevels: []float64{}}
	if len(series) < minHistoryPoints {
		return read
	}

	slope := normalizedSlope(series)
	switch {
	case slope > sidewaysBandPct:
		read.Direction = domain.DirectionUp
	case slope < -sidewaysBandPct:
		read.Direction = domain.DirectionDown
	}

	// Strength: fractional change per step scaled so a 1%/step move reads
	// as 100.
	read.Strength = clamp01h(math.Abs(slope) * 10000)

	// Probability: share of adjacent moves agreeing with the overall slope.
	agreeing := 0
	for i := 1; i < len(series); i++ {
		delta := series[i] - series[i-1]
		if delta == 0 || sameSign(delta, slope) {
			agreeing++
		}
	}
	read.Probability = clamp01h(float64(agreeing) / float64(len(series)-1) * 100)

	read.KeyLevels = keyLevels(series)
	return read
}

// keyLevels extracts support/resistance candidates: global min, global max,
// and the most recent price, sorted ascending and deduplicated.
func keyLevels(series []float64) []float64 {
	low, high := series[0], series[0]
	for _, v := range series {
		low = math.Min(low, v)
		high = math.Max(high, v)
	}

	levels := []float64{low, high, series[len(series)-1]}
	sort.Float64s(levels)

	dedup := levels[:1]
	for _, v := range levels[1:] {
		if v != dedup[len(dedup)-1] {
			dedup = append(dedup, v)
		}
	}
	return dedup
}

// computeTrajectory runs the forward read and a read of the time-reversed
// series, then scores how strongly the reversed read confirms the same
// structural trend. A clean uptrend reads DOWN when walked backwards, so
// full alignment means the reverse direction mirrors the forward one with
// comparable strength.
func computeTrajectory(history []float64) domain.Trajectory {
	forward := readTrend(history)

	reversed := make([]float64, len(history))
	for i, v := range history {
		reversed[len(history)-1-i] = v
	}
	reverse := readTrend(reversed)

	return domain.Trajectory{
		Forward:   forward,
		Reverse:   reverse,
		Alignment: alignmentScore(forward, reverse),
	}
}

// alignmentScore maps (forward, reverse) reads to [0,100]. Mirrored
// directions score from the strength similarity; one sideways leg caps at
// 50; a same-direction pair means the two reads disagree structurally and
// scores 0.
func alignmentScore(forward, reverse domain.TrendRead) float64 {
	similarity := 1 - math.Abs(forward.Strength-reverse.Strength)/100

	switch {
	case forward.Direction == domain.DirectionSideways && reverse.Direction == domain.DirectionSideways:
		return clamp01h(100 * similarity)
	case forward.Direction == domain.DirectionSideways || reverse.Direction == domain.DirectionSideways:
		return clamp01h(50 * similarity)
	case forward.Direction == mirrored(reverse.Direction):
		return clamp01h(100 * similarity)
	default:
		return 0
	}
}

func mirrored(d domain.Direction) domain.Direction {
	switch d {
	case domain.DirectionUp:
		return domain.DirectionDown
	case domain.DirectionDown:
		return domain.DirectionUp
	default:
		return domain.DirectionSideways
	}
}
