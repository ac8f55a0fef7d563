package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/signalguard/internal/domain"
)

func testSnapshot() domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Symbol:       "BTC",
		Price:        96800,
		Volume24h:    30_000_000_000,
		MarketCap:    1_900_000_000_000,
		BidDepth:     2_000_000,
		AskDepth:     2_000_000,
		ObservedAt:   time.Now(),
		PriceHistory: ramp(95000, 200, 10),
	}
}

func TestAnalyzeHealthyInputs(t *testing.T) {
	a := New(DefaultConfig())
	onChain := &domain.OnChainSnapshot{
		MempoolSize:     250250,
		WhaleTxCount:    30,
		ExchangeInflow:  100,
		ExchangeOutflow: 400,
		ObservedAt:      time.Now(),
	}
	sentiment := &domain.SentimentSnapshot{FearGreedIndex: 80, NewsScore: 70, ObservedAt: time.Now()}

	analysis := a.Analyze(testSnapshot(), onChain, sentiment)

	assert.Equal(t, "BTC", analysis.Symbol)
	assert.Equal(t, domain.WaveContinuation, analysis.WavePattern)
	assert.Equal(t, domain.DirectionUp, analysis.Trajectory.Forward.Direction)
	assert.Empty(t, analysis.Errors)
	assert.Empty(t, analysis.Corrections)

	assert.GreaterOrEqual(t, analysis.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, analysis.ConfidenceScore, 100.0)
	assert.Greater(t, analysis.ConfidenceScore, 70.0, "clean aligned inputs should score high")

	assert.Equal(t, WhaleAccumulation, analysis.WhaleMovement)
	assert.Equal(t, MacroExpansion, analysis.MacroCyclePhase)
	assert.NotEmpty(t, analysis.Reasoning)
	assert.NotEmpty(t, analysis.Justification)
}

func TestAnalyzeMissingOptionalSnapshotsDegrades(t *testing.T) {
	a := New(DefaultConfig())

	analysis := a.Analyze(testSnapshot(), nil, nil)

	assert.Equal(t, MempoolNormal, analysis.MempoolPattern)
	assert.Equal(t, 50.0, analysis.MempoolScore)
	assert.Equal(t, WhaleNeutral, analysis.WhaleMovement)
	assert.Equal(t, MacroTransition, analysis.MacroCyclePhase)
	require.Len(t, analysis.Errors, 2)
}

func TestAnalyzeInsufficientHistoryIsUncertainNotFatal(t *testing.T) {
	a := New(DefaultConfig())
	snapshot := testSnapshot()
	snapshot.PriceHistory = []float64{96800}

	analysis := a.Analyze(snapshot, nil, nil)

	assert.Equal(t, domain.WaveUncertain, analysis.WavePattern)
	assert.Equal(t, domain.DirectionSideways, analysis.Trajectory.Forward.Direction)
	assert.NotEmpty(t, analysis.Errors)
	assert.GreaterOrEqual(t, analysis.ConfidenceScore, 0.0)
	assert.LessOrEqual(t, analysis.ConfidenceScore, 100.0)
}

func TestAnalyzeConfidenceAlwaysBounded(t *testing.T) {
	a := New(DefaultConfig())
	snapshots := []domain.MarketSnapshot{
		testSnapshot(),
		{Symbol: "BTC"},
		{Symbol: "BTC", BidDepth: -5, AskDepth: 1e18, PriceHistory: ramp(1, 1e9, 50)},
	}
	for _, snapshot := range snapshots {
		analysis := a.Analyze(snapshot, nil, nil)
		assert.GreaterOrEqual(t, analysis.ConfidenceScore, 0.0)
		assert.LessOrEqual(t, analysis.ConfidenceScore, 100.0)
	}
}

func TestAnalyzeDoesNotAliasHistory(t *testing.T) {
	a := New(DefaultConfig())
	snapshot := testSnapshot()
	original := append([]float64(nil), snapshot.PriceHistory...)

	_ = a.Analyze(snapshot, nil, nil)

	assert.Equal(t, original, snapshot.PriceHistory, "analysis must not mutate its input")
}
