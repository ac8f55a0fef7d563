package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tradeforge/signalguard/internal/domain"
)

func TestLiquidityProfileBalancedBook(t *testing.T) {
	profile := liquidityProfile(1_000_000, 1_000_000)

	assert.Equal(t, 0.0, profile.Imbalance)
	assert.Equal(t, 100.0, profile.HarmonicScore)
}

func TestLiquidityProfileOneSidedBook(t *testing.T) {
	profile := liquidityProfile(1_000_000, 0)

	assert.Equal(t, 1.0, profile.Imbalance)
	assert.Equal(t, 0.0, profile.HarmonicScore)
}

func TestLiquidityProfileSkewedBook(t *testing.T) {
	profile := liquidityProfile(3_000_000, 1_000_000)

	assert.InDelta(t, 0.5, profile.Imbalance, 1e-9)
	assert.InDelta(t, 75.0, profile.HarmonicScore, 1e-9)
}

func TestLiquidityProfileClampsNegativeDepth(t *testing.T) {
	profile := liquidityProfile(-100, 500)

	assert.Equal(t, 0.0, profile.BidDepth)
	assert.Equal(t, -1.0, profile.Imbalance)
	assert.Equal(t, 0.0, profile.HarmonicScore)
}

func TestLiquidityProfileEmptyBook(t *testing.T) {
	profile := liquidityProfile(0, 0)
	assert.Zero(t, profile.Imbalance)
	assert.Zero(t, profile.HarmonicScore)
}

func TestMempoolRead(t *testing.T) {
	const envMin, envMax = 500, 500000

	pattern, score := mempoolRead(250250, envMin, envMax) // mid-envelope
	assert.Equal(t, MempoolNormal, pattern)
	assert.InDelta(t, 100.0, score, 0.5)

	pattern, score = mempoolRead(100, envMin, envMax)
	assert.Equal(t, MempoolQuiet, pattern)
	assert.Less(t, score, 50.0)

	pattern, score = mempoolRead(2_000_000, envMin, envMax)
	assert.Equal(t, MempoolCongested, pattern)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.Less(t, score, 50.0)

	// Degenerate envelope falls back to neutral.
	pattern, score = mempoolRead(1000, 100, 100)
	assert.Equal(t, MempoolNormal, pattern)
	assert.Equal(t, 50.0, score)
}

func TestWhaleRead(t *testing.T) {
	accumulating := domain.OnChainSnapshot{WhaleTxCount: 30, ExchangeInflow: 100, ExchangeOutflow: 400}
	movement, score := whaleRead(accumulating)
	assert.Equal(t, WhaleAccumulation, movement)
	assert.Equal(t, 60.0, score)

	distributing := domain.OnChainSnapshot{WhaleTxCount: 80, ExchangeInflow: 400, ExchangeOutflow: 100}
	movement, score = whaleRead(distributing)
	assert.Equal(t, WhaleDistribution, movement)
	assert.Equal(t, 100.0, score, "50+ whale transactions saturate the intensity scale")

	quiet := domain.OnChainSnapshot{WhaleTxCount: 0}
	movement, score = whaleRead(quiet)
	assert.Equal(t, WhaleNeutral, movement)
	assert.Zero(t, score)
}

func TestMacroRead(t *testing.T) {
	phase, score := macroRead(domain.SentimentSnapshot{FearGreedIndex: 80, NewsScore: 70})
	assert.Equal(t, MacroExpansion, phase)
	assert.InDelta(t, 77.0, score, 1e-9)

	phase, _ = macroRead(domain.SentimentSnapshot{FearGreedIndex: 20, NewsScore: 30})
	assert.Equal(t, MacroContraction, phase)

	phase, _ = macroRead(domain.SentimentSnapshot{FearGreedIndex: 50, NewsScore: 50})
	assert.Equal(t, MacroTransition, phase)
}

func TestSubScoresStayBounded(t *testing.T) {
	extremes := []domain.OnChainSnapshot{
		{WhaleTxCount: 1 << 40, ExchangeInflow: 1e18, ExchangeOutflow: 0},
		{WhaleTxCount: -5, ExchangeInflow: 0, ExchangeOutflow: 0},
	}
	for _, onChain := range extremes {
		_, score := whaleRead(onChain)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
	}

	for _, size := range []int64{-1, 0, 1, 1 << 40} {
		_, score := mempoolRead(size, 500, 500000)
		assert.GreaterOrEqual(t, score, 0.0)
		assert.LessOrEqual(t, score, 100.0)
	}
}
