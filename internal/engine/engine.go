// Package engine runs the full validation cycle: triangulate prices, sanity
// check, score quality, analyze market state, self-correct the reasoning,
// enforce guardrails, and size the trade when everything passes.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/tradeforge/signalguard/internal/analyzer"
	"github.com/tradeforge/signalguard/internal/cache"
	"github.com/tradeforge/signalguard/internal/correction"
	"github.com/tradeforge/signalguard/internal/domain"
	"github.com/tradeforge/signalguard/internal/fallback"
	"github.com/tradeforge/signalguard/internal/guardrail"
	"github.com/tradeforge/signalguard/internal/metrics"
	"github.com/tradeforge/signalguard/internal/persistence"
	"github.com/tradeforge/signalguard/internal/quality"
	"github.com/tradeforge/signalguard/internal/risk"
	"github.com/tradeforge/signalguard/internal/sanity"
	"github.com/tradeforge/signalguard/internal/sources"
	"github.com/tradeforge/signalguard/internal/triangulate"
)

// SnapshotProvider supplies the market snapshot (price history, book depth)
// the analyzer reads. Optional; without one the engine synthesizes a minimal
// snapshot from the triangulated price.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error)
}

// Auditor persists completed cycles. *persistence.AuditRepo satisfies it.
type Auditor interface {
	Record(ctx context.Context, rec persistence.AuditRecord) error
}

// RiskProfile is the account the risk calculator sizes against.
type RiskProfile struct {
	AccountBalance   float64
	RiskTolerancePct float64
}

// CycleReport is the complete outcome of one validation cycle.
type CycleReport struct {
	OperationID   string                     `json:"operation_id"`
	Symbol        string                     `json:"symbol"`
	Triangulation domain.TriangulationResult `json:"triangulation"`
	Sources       []domain.SourceStatus      `json:"sources"`
	SourceUsed    string                     `json:"source_used"`
	FallbackUsed  bool                       `json:"fallback_used"`
	Sanity        domain.SanityCheckResult   `json:"sanity"`
	Quality       domain.QualityAssessment   `json:"quality"`
	Analysis      domain.MarketStateAnalysis `json:"analysis"`
	Corrections   []domain.Correction        `json:"corrections"`
	Guardrail     domain.GuardrailResult     `json:"guardrail"`
	Plan          *domain.RiskPlan           `json:"plan,omitempty"`
	FromCache     bool                       `json:"from_cache"`
	StartedAt     time.Time                  `json:"started_at"`
	CompletedAt   time.Time                  `json:"completed_at"`
}

// Deps wires the engine. Triangulator, Sanity, Quality, Analyzer, Corrector,
// Guardrail, and Risk are required; the rest are optional.
type Deps struct {
	Triangulator *triangulate.Triangulator
	Fallback     *fallback.Fetcher
	Sanity       *sanity.Checker
	Quality      *quality.Scorer
	Analyzer     *analyzer.Analyzer
	Corrector    *correction.Validator
	Guardrail    *guardrail.Enforcer
	Risk         *risk.Calculator

	OnChain   sources.OnChainAdapter
	Sentiment sources.SentimentAdapter
	Snapshots SnapshotProvider
	Cache     cache.Cache
	CacheTTL  time.Duration
	Metrics   *metrics.Metrics
	Audit     Auditor
	Profile   RiskProfile
}

// Engine coordinates one validation cycle per call. Safe for concurrent use;
// concurrent cycles for the same symbol share one execution.
type Engine struct {
	deps  Deps
	group singleflight.Group
}

// New creates an Engine.
func New(deps Deps) *Engine {
	return &Engine{deps: deps}
}

// RunCycle executes (or joins) a validation cycle for symbol. force bypasses
// the cache read; the result is still written back. The returned report is
// shared between joined callers and must not be mutated.
func (e *Engine) RunCycle(ctx context.Context, symbol string, force bool) (*CycleReport, error) {
	if !force {
		if report, ok := e.cachedReport(ctx, symbol); ok {
			return report, nil
		}
	} else {
		e.recordCache("bypass")
	}

	v, err, _ := e.group.Do("cycle:"+symbol, func() (interface{}, error) {
		return e.runCycle(ctx, symbol)
	})
	if err != nil {
		return nil, err
	}
	return v.(*CycleReport), nil
}

func (e *Engine) runCycle(ctx context.Context, symbol string) (*CycleReport, error) {
	started := time.Now()
	report := &CycleReport{
		OperationID: uuid.NewString(),
		Symbol:      symbol,
		StartedAt:   started.UTC(),
	}

	tri, statuses, err := e.deps.Triangulator.Triangulate(ctx, symbol)
	if errors.Is(err, triangulate.ErrInsufficientSources) && e.deps.Fallback != nil {
		var fbErr error
		tri, statuses, fbErr = e.fallbackTriangulation(ctx, symbol, statuses, report)
		if fbErr != nil {
			return nil, fbErr
		}
	} else if err != nil {
		return nil, err
	} else {
		report.SourceUsed = primarySource(statuses)
	}
	report.Triangulation = tri
	report.Sources = statuses
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordTriangulation(tri.Divergence.MaxDivergencePct)
	}

	onChain := e.fetchOnChain(ctx, symbol)
	sentiment := e.fetchSentiment(ctx, symbol)
	snapshot := e.snapshot(ctx, symbol, tri)

	report.Sanity = e.deps.Sanity.Check(tri, onChain, snapshot.Volume24h)
	report.Quality = e.deps.Quality.Score(statuses, report.Sanity)
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordQuality(report.Quality.Score, string(report.Quality.Recommendation))
	}

	analysis := e.deps.Analyzer.Analyze(snapshot, onChain, sentiment)
	corrected, corrections := e.deps.Corrector.CorrectErrors(analysis)
	report.Analysis = corrected
	report.Corrections = corrections
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordCorrections(len(corrections))
	}

	report.Guardrail = e.deps.Guardrail.Enforce(guardrail.Operation{
		Symbol:       symbol,
		SourcesUsed:  successfulSources(statuses),
		Price:        tri.MedianPrice,
		QualityScore: report.Quality.Score,
		Timestamp:    tri.ObservedAt,
	})
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordGuardrail(report.Guardrail.Action.String())
	}

	if report.Guardrail.Passed && report.Quality.Recommendation == domain.RecommendProceed {
		report.Plan = e.buildPlan(symbol, tri.MedianPrice, snapshot, corrected)
	}

	report.CompletedAt = time.Now().UTC()
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordCycle(time.Since(started).Seconds())
	}

	e.audit(ctx, report)
	e.storeReport(ctx, report)

	log.Info().
		Str("operation_id", report.OperationID).
		Str("symbol", symbol).
		Float64("quality_score", report.Quality.Score).
		Str("recommendation", string(report.Quality.Recommendation)).
		Str("guardrail_action", report.Guardrail.Action.String()).
		Bool("fallback_used", report.FallbackUsed).
		Msg("Validation cycle complete")
	return report, nil
}

// fallbackTriangulation serves a single-source cycle when triangulation has
// nothing to work with. The lone quote becomes the median with no divergence
// data. Configured sources keep their FAILURE statuses so the quality score
// reflects configured capacity, not just the source that finally answered.
func (e *Engine) fallbackTriangulation(ctx context.Context, symbol string, statuses []domain.SourceStatus, report *CycleReport) (domain.TriangulationResult, []domain.SourceStatus, error) {
	res, err := e.deps.Fallback.FetchQuote(ctx, symbol)
	if err != nil {
		return domain.TriangulationResult{}, nil, err
	}
	report.SourceUsed = res.SourceUsed
	report.FallbackUsed = res.FallbackUsed
	if e.deps.Metrics != nil && res.FallbackUsed {
		e.deps.Metrics.RecordFallback()
	}
	log.Warn().
		Str("symbol", symbol).
		Str("source", res.SourceUsed).
		Strs("attempts", res.Attempts).
		Msg("Triangulation degraded to single-source fallback")

	quote := res.Data
	tri := domain.TriangulationResult{
		MedianPrice:    quote.Price,
		PerSourcePrice: map[string]float64{quote.SourceID: quote.Price},
		ObservedAt:     quote.ObservedAt,
	}
	return tri, mergeFallbackStatus(statuses, quote.SourceID), nil
}

// mergeFallbackStatus flips the serving source to SUCCESS in place when it is
// one of the configured adapters, or appends it when the fallback chain
// reached a source triangulation never consults.
func mergeFallbackStatus(statuses []domain.SourceStatus, source string) []domain.SourceStatus {
	merged := append([]domain.SourceStatus(nil), statuses...)
	for i := range merged {
		if merged[i].Name == source {
			merged[i].Status = domain.StatusSuccess
			return merged
		}
	}
	return append(merged, domain.SourceStatus{Name: source, Status: domain.StatusSuccess})
}

func (e *Engine) fetchOnChain(ctx context.Context, symbol string) *domain.OnChainSnapshot {
	if e.deps.OnChain == nil {
		return nil
	}
	snap, err := e.deps.OnChain.FetchOnChain(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("On-chain snapshot unavailable")
		return nil
	}
	return &snap
}

func (e *Engine) fetchSentiment(ctx context.Context, symbol string) *domain.SentimentSnapshot {
	if e.deps.Sentiment == nil {
		return nil
	}
	snap, err := e.deps.Sentiment.FetchSentiment(ctx, symbol)
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Sentiment snapshot unavailable")
		return nil
	}
	return &snap
}

func (e *Engine) snapshot(ctx context.Context, symbol string, tri domain.TriangulationResult) domain.MarketSnapshot {
	if e.deps.Snapshots != nil {
		snap, err := e.deps.Snapshots.Snapshot(ctx, symbol)
		if err == nil {
			if snap.Price == 0 {
				snap.Price = tri.MedianPrice
			}
			return snap
		}
		log.Warn().Err(err).Str("symbol", symbol).Msg("Market snapshot unavailable, synthesizing")
	}
	return domain.MarketSnapshot{
		Symbol:     symbol,
		Price:      tri.MedianPrice,
		ObservedAt: tri.ObservedAt,
	}
}

// buildPlan sizes a position from the corrected analysis. A sideways read or
// missing history yields no plan; plan errors are logged, not fatal.
func (e *Engine) buildPlan(symbol string, price float64, snapshot domain.MarketSnapshot, analysis domain.MarketStateAnalysis) *domain.RiskPlan {
	if e.deps.Profile.AccountBalance <= 0 {
		return nil
	}
	var position domain.PositionType
	switch analysis.Trajectory.Forward.Direction {
	case domain.DirectionUp:
		position = domain.PositionLong
	case domain.DirectionDown:
		position = domain.PositionShort
	default:
		return nil
	}

	atr := atrProxy(snapshot.PriceHistory)
	if atr <= 0 {
		return nil
	}

	plan, err := e.deps.Risk.Calculate(risk.Request{
		AccountBalance:   e.deps.Profile.AccountBalance,
		RiskTolerancePct: e.deps.Profile.RiskTolerancePct,
		EntryPrice:       price,
		PositionType:     position,
		ATR:              atr,
		CurrentPrice:     price,
	})
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Risk plan skipped")
		return nil
	}
	return &plan
}

// atrProxy estimates range from close-to-close moves when no OHLC feed is
// wired.
func atrProxy(history []float64) float64 {
	if len(history) < 2 {
		return 0
	}
	var sum float64
	for i := 1; i < len(history); i++ {
		sum += math.Abs(history[i] - history[i-1])
	}
	return sum / float64(len(history)-1)
}

func (e *Engine) cachedReport(ctx context.Context, symbol string) (*CycleReport, bool) {
	if e.deps.Cache == nil {
		return nil, false
	}
	raw, ok, err := e.deps.Cache.Get(ctx, cache.Key(symbol, domain.KindPrice))
	if err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Cache read failed")
		return nil, false
	}
	if !ok {
		e.recordCache("miss")
		return nil, false
	}
	var report CycleReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		log.Warn().Err(err).Str("symbol", symbol).Msg("Cached report unreadable, discarding")
		return nil, false
	}
	e.recordCache("hit")
	report.FromCache = true
	return &report, true
}

func (e *Engine) storeReport(ctx context.Context, report *CycleReport) {
	if e.deps.Cache == nil || e.deps.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		log.Warn().Err(err).Msg("Report not cacheable")
		return
	}
	if err := e.deps.Cache.Set(ctx, cache.Key(report.Symbol, domain.KindPrice), string(raw), e.deps.CacheTTL); err != nil {
		log.Warn().Err(err).Str("symbol", report.Symbol).Msg("Cache write failed")
	}
}

func (e *Engine) audit(ctx context.Context, report *CycleReport) {
	if e.deps.Audit == nil {
		return
	}
	rec := persistence.AuditRecord{
		OperationID:     report.OperationID,
		Symbol:          report.Symbol,
		Price:           report.Triangulation.MedianPrice,
		SourceUsed:      report.SourceUsed,
		FallbackUsed:    report.FallbackUsed,
		QualityScore:    report.Quality.Score,
		Recommendation:  string(report.Quality.Recommendation),
		GuardrailAction: report.Guardrail.Action.String(),
		Confidence:      report.Analysis.ConfidenceScore,
		Corrections:     len(report.Corrections),
		CreatedAt:       report.CompletedAt,
	}
	if err := e.deps.Audit.Record(ctx, rec); err != nil {
		log.Warn().Err(err).Str("operation_id", report.OperationID).Msg("Audit write failed")
	}
}

func (e *Engine) recordCache(result string) {
	if e.deps.Metrics != nil {
		e.deps.Metrics.RecordCache(result)
	}
}

func successfulSources(statuses []domain.SourceStatus) []string {
	var out []string
	for _, s := range statuses {
		if s.Status == domain.StatusSuccess {
			out = append(out, s.Name)
		}
	}
	return out
}

// primarySource names the first source that delivered this cycle.
func primarySource(statuses []domain.SourceStatus) string {
	for _, s := range statuses {
		if s.Status == domain.StatusSuccess {
			return s.Name
		}
	}
	return ""
}
