package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradeforge/signalguard/internal/analyzer"
	"github.com/tradeforge/signalguard/internal/cache"
	"github.com/tradeforge/signalguard/internal/correction"
	"github.com/tradeforge/signalguard/internal/domain"
	"github.com/tradeforge/signalguard/internal/fallback"
	"github.com/tradeforge/signalguard/internal/guardrail"
	"github.com/tradeforge/signalguard/internal/persistence"
	"github.com/tradeforge/signalguard/internal/quality"
	"github.com/tradeforge/signalguard/internal/risk"
	"github.com/tradeforge/signalguard/internal/sanity"
	"github.com/tradeforge/signalguard/internal/sources"
	"github.com/tradeforge/signalguard/internal/triangulate"
)

type fixedSnapshots struct {
	snap domain.MarketSnapshot
	err  error
}

func (f *fixedSnapshots) Snapshot(context.Context, string) (domain.MarketSnapshot, error) {
	return f.snap, f.err
}

type recordingAuditor struct {
	mu   sync.Mutex
	recs []persistence.AuditRecord
	err  error
}

func (r *recordingAuditor) Record(_ context.Context, rec persistence.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return r.err
}

func risingHistory(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 95000 + 50*float64(i)
	}
	return out
}

func healthyAdapters() []sources.QuoteAdapter {
	return []sources.QuoteAdapter{
		&sources.StaticQuoteAdapter{SourceName: "kraken", Price: 95000, Volume24h: 20e9},
		&sources.StaticQuoteAdapter{SourceName: "coinbase", Price: 95900, Volume24h: 21e9},
		&sources.StaticQuoteAdapter{SourceName: "binance", Price: 96800, Volume24h: 22e9},
	}
}

func testDeps(adapters []sources.QuoteAdapter) Deps {
	return Deps{
		Triangulator: triangulate.New(adapters, triangulate.DefaultConfig()),
		Sanity:       sanity.New(sanity.DefaultConfig()),
		Quality:      quality.New(quality.DefaultConfig()),
		Analyzer:     analyzer.New(analyzer.DefaultConfig()),
		Corrector:    correction.New(),
		Guardrail:    guardrail.New(guardrail.DefaultConfig()),
		Risk:         risk.New(risk.DefaultConfig()),
		Snapshots: &fixedSnapshots{snap: domain.MarketSnapshot{
			Symbol:       "BTC",
			Price:        95900,
			Volume24h:    21e9,
			BidDepth:     5e6,
			AskDepth:     4.8e6,
			ObservedAt:   time.Now(),
			PriceHistory: risingHistory(30),
		}},
		Profile: RiskProfile{AccountBalance: 10000, RiskTolerancePct: 50},
	}
}

func TestRunCycleHealthyProducesPlan(t *testing.T) {
	eng := New(testDeps(healthyAdapters()))

	report, err := eng.RunCycle(context.Background(), "BTC", false)
	require.NoError(t, err)

	assert.NotEmpty(t, report.OperationID)
	assert.Equal(t, 95900.0, report.Triangulation.MedianPrice)
	assert.Equal(t, domain.RecommendProceed, report.Quality.Recommendation)
	assert.True(t, report.Guardrail.Passed)
	assert.False(t, report.FallbackUsed)
	assert.Equal(t, "kraken", report.SourceUsed)

	require.NotNil(t, report.Plan)
	assert.Equal(t, domain.PositionLong, report.Plan.PositionType)
	assert.Less(t, report.Plan.StopLoss, report.Plan.EntryPrice)
	assert.GreaterOrEqual(t, report.Plan.RiskReward, 2.0)
}

func TestRunCycleDegradedQualityBlocksAndSkipsPlan(t *testing.T) {
	adapters := []sources.QuoteAdapter{
		&sources.StaticQuoteAdapter{SourceName: "kraken", Price: 95900, Volume24h: 21e9},
		&sources.StaticQuoteAdapter{SourceName: "coinbase", Err: errors.New("upstream 500")},
		&sources.StaticQuoteAdapter{SourceName: "binance", Err: errors.New("upstream 500")},
	}
	eng := New(testDeps(adapters))

	report, err := eng.RunCycle(context.Background(), "BTC", false)
	require.NoError(t, err)

	// One of three sources leaves the score below the proceed threshold.
	assert.Equal(t, domain.RecommendRetry, report.Quality.Recommendation)
	assert.False(t, report.Guardrail.Passed)
	assert.Equal(t, domain.ActionBlock, report.Guardrail.Action)
	assert.Nil(t, report.Plan)
}

func TestRunCycleFallsBackWhenTriangulationStarves(t *testing.T) {
	adapters := []sources.QuoteAdapter{
		&sources.StaticQuoteAdapter{SourceName: "kraken", Err: errors.New("down")},
	}
	deps := testDeps(adapters)
	deps.Fallback = fallback.New([]sources.QuoteAdapter{
		&sources.StaticQuoteAdapter{SourceName: "kraken", Err: errors.New("down")},
		&sources.StaticQuoteAdapter{SourceName: "coinbase", Price: 95900, Volume24h: 21e9},
	}, fallback.Config{Timeout: time.Second, MaxRetries: 1, BackoffBase: time.Millisecond, BackoffCap: time.Millisecond})
	eng := New(deps)

	report, err := eng.RunCycle(context.Background(), "BTC", false)
	require.NoError(t, err)

	assert.True(t, report.FallbackUsed)
	assert.Equal(t, "coinbase", report.SourceUsed)
	assert.Equal(t, 95900.0, report.Triangulation.MedianPrice)
	require.Len(t, report.Sources, 2)
	assert.Equal(t, domain.SourceStatus{Name: "kraken", Status: domain.StatusFailure}, report.Sources[0])
	assert.Equal(t, domain.SourceStatus{Name: "coinbase", Status: domain.StatusSuccess}, report.Sources[1])
}

func TestRunCycleFallbackDoesNotMaskSourceOutage(t *testing.T) {
	adapters := []sources.QuoteAdapter{
		&sources.StaticQuoteAdapter{SourceName: "kraken", Err: errors.New("down")},
		&sources.StaticQuoteAdapter{SourceName: "coinbase", Err: errors.New("down")},
		&sources.StaticQuoteAdapter{SourceName: "binance", Err: errors.New("down")},
	}
	deps := testDeps(adapters)
	deps.Fallback = fallback.New([]sources.QuoteAdapter{
		&sources.StaticQuoteAdapter{SourceName: "okx", Price: 95900, Volume24h: 21e9},
	}, fallback.Config{Timeout: time.Second, MaxRetries: 0, BackoffBase: time.Millisecond, BackoffCap: time.Millisecond})
	eng := New(deps)

	report, err := eng.RunCycle(context.Background(), "BTC", false)
	require.NoError(t, err)

	// Three dead sources out of four stay visible to the scorer: the cycle
	// completes on the fallback quote but never reads as fully healthy.
	require.Len(t, report.Sources, 4)
	failures := 0
	for _, s := range report.Sources {
		if s.Status == domain.StatusFailure {
			failures++
		}
	}
	assert.Equal(t, 3, failures)
	assert.Less(t, report.Quality.Score, 70.0)
	assert.NotEqual(t, domain.RecommendProceed, report.Quality.Recommendation)
	assert.False(t, report.Guardrail.Passed)
	assert.Nil(t, report.Plan)
}

func TestRunCycleFallbackRecoversConfiguredSourceStatus(t *testing.T) {
	adapters := []sources.QuoteAdapter{
		&sources.StaticQuoteAdapter{SourceName: "kraken", Err: errors.New("down")},
	}
	deps := testDeps(adapters)
	deps.Fallback = fallback.New([]sources.QuoteAdapter{
		&sources.StaticQuoteAdapter{SourceName: "kraken", Price: 95900, Volume24h: 21e9},
	}, fallback.Config{Timeout: time.Second, MaxRetries: 0, BackoffBase: time.Millisecond, BackoffCap: time.Millisecond})
	eng := New(deps)

	report, err := eng.RunCycle(context.Background(), "BTC", false)
	require.NoError(t, err)

	// A configured source that recovers during the fallback walk is not
	// listed twice.
	require.Len(t, report.Sources, 1)
	assert.Equal(t, domain.SourceStatus{Name: "kraken", Status: domain.StatusSuccess}, report.Sources[0])
	assert.False(t, report.FallbackUsed)
}

func TestRunCycleAllSourcesDownFails(t *testing.T) {
	adapters := []sources.QuoteAdapter{
		&sources.StaticQuoteAdapter{SourceName: "kraken", Err: errors.New("down")},
	}
	deps := testDeps(adapters)
	deps.Fallback = fallback.New([]sources.QuoteAdapter{
		&sources.StaticQuoteAdapter{SourceName: "kraken", Err: errors.New("down")},
	}, fallback.Config{Timeout: time.Second, MaxRetries: 0, BackoffBase: time.Millisecond, BackoffCap: time.Millisecond})
	eng := New(deps)

	_, err := eng.RunCycle(context.Background(), "BTC", false)
	assert.ErrorIs(t, err, fallback.ErrAllSourcesExhausted)
}

func TestRunCycleServesFromCacheUntilForced(t *testing.T) {
	deps := testDeps(healthyAdapters())
	mem := cache.NewMemoryCache()
	t.Cleanup(func() { mem.Close() })
	deps.Cache = mem
	deps.CacheTTL = time.Minute
	eng := New(deps)

	first, err := eng.RunCycle(context.Background(), "BTC", false)
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := eng.RunCycle(context.Background(), "BTC", false)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.OperationID, second.OperationID)

	forced, err := eng.RunCycle(context.Background(), "BTC", true)
	require.NoError(t, err)
	assert.False(t, forced.FromCache)
	assert.NotEqual(t, first.OperationID, forced.OperationID)
}

func TestRunCycleWritesAudit(t *testing.T) {
	deps := testDeps(healthyAdapters())
	auditor := &recordingAuditor{}
	deps.Audit = auditor
	eng := New(deps)

	report, err := eng.RunCycle(context.Background(), "BTC", false)
	require.NoError(t, err)

	auditor.mu.Lock()
	defer auditor.mu.Unlock()
	require.Len(t, auditor.recs, 1)
	rec := auditor.recs[0]
	assert.Equal(t, report.OperationID, rec.OperationID)
	assert.Equal(t, "PROCEED", rec.Recommendation)
	assert.Equal(t, 95900.0, rec.Price)
}

func TestRunCycleAuditFailureIsNotFatal(t *testing.T) {
	deps := testDeps(healthyAdapters())
	deps.Audit = &recordingAuditor{err: errors.New("db down")}
	eng := New(deps)

	_, err := eng.RunCycle(context.Background(), "BTC", false)
	assert.NoError(t, err)
}

func TestRunCycleConcurrentCallersShareOneExecution(t *testing.T) {
	adapters := []sources.QuoteAdapter{
		&sources.StaticQuoteAdapter{SourceName: "kraken", Price: 95000, Volume24h: 20e9, Delay: 50 * time.Millisecond},
		&sources.StaticQuoteAdapter{SourceName: "coinbase", Price: 95900, Volume24h: 21e9, Delay: 50 * time.Millisecond},
		&sources.StaticQuoteAdapter{SourceName: "binance", Price: 96800, Volume24h: 22e9, Delay: 50 * time.Millisecond},
	}
	eng := New(testDeps(adapters))

	const callers = 8
	reports := make([]*CycleReport, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			reports[i], errs[i] = eng.RunCycle(context.Background(), "BTC", false)
		}(i)
	}
	wg.Wait()

	ids := make(map[string]bool)
	for i, r := range reports {
		require.NoError(t, errs[i])
		ids[r.OperationID] = true
	}
	// All joined callers got the same cycle. Concurrency still allows a
	// second flight to start after the first completes, never eight.
	assert.LessOrEqual(t, len(ids), 2)
}

func TestRunCycleFullSnapshotsRaiseConfidence(t *testing.T) {
	base := testDeps(healthyAdapters())
	bare := New(base)
	bareReport, err := bare.RunCycle(context.Background(), "BTC", false)
	require.NoError(t, err)

	rich := testDeps(healthyAdapters())
	rich.OnChain = &sources.StaticOnChainAdapter{
		SourceName: "glassnode",
		Snapshot: domain.OnChainSnapshot{
			MempoolSize:     120000,
			WhaleTxCount:    40,
			ExchangeInflow:  900,
			ExchangeOutflow: 1400,
		},
	}
	rich.Sentiment = &sources.StaticSentimentAdapter{
		SourceName: "alternative.me",
		Snapshot:   domain.SentimentSnapshot{FearGreedIndex: 72, NewsScore: 65},
	}
	eng := New(rich)

	report, err := eng.RunCycle(context.Background(), "BTC", false)
	require.NoError(t, err)

	// Healthy on-chain and sentiment reads replace the neutral defaults the
	// bare cycle falls back to.
	assert.Greater(t, report.Analysis.ConfidenceScore, bareReport.Analysis.ConfidenceScore)
	assert.Empty(t, report.Analysis.Errors)
	assert.Equal(t, domain.RecommendProceed, report.Quality.Recommendation)
}

func TestRunCycleSynthesizesSnapshotWhenProviderFails(t *testing.T) {
	deps := testDeps(healthyAdapters())
	deps.Snapshots = &fixedSnapshots{err: errors.New("history store down")}
	eng := New(deps)

	report, err := eng.RunCycle(context.Background(), "BTC", false)
	require.NoError(t, err)

	// Cycle completes on the triangulated price alone; with no history the
	// trajectory is uncertain and no plan is sized.
	assert.Equal(t, domain.RecommendProceed, report.Quality.Recommendation)
	assert.Nil(t, report.Plan)
}
