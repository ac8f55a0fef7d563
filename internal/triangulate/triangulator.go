// Package triangulate combines quotes from every configured price source
// into one consensus price plus a disagreement report. Fan-out settles all
// adapters; a single hung or failing provider never blocks the rest.
package triangulate

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradeforge/signalguard/internal/domain"
	"github.com/tradeforge/signalguard/internal/sources"
)

// ErrInsufficientSources means zero adapters produced a usable price. Callers
// typically fall back to cached data or report HALT.
var ErrInsufficientSources = errors.New("insufficient sources: no provider returned a price")

// Config tunes consensus computation.
type Config struct {
	// DivergenceTolerancePct flags a source as divergent when its deviation
	// from the median exceeds this percentage.
	DivergenceTolerancePct float64 `yaml:"divergence_tolerance_pct" default:"1.0"`
	// AdapterTimeout bounds each individual fetch.
	AdapterTimeout time.Duration `yaml:"adapter_timeout" default:"5s"`
	// OverallTimeout bounds the whole fan-out; late responses are discarded.
	OverallTimeout time.Duration `yaml:"overall_timeout" default:"10s"`
}

// DefaultConfig returns the production consensus settings.
func DefaultConfig() Config {
	return Config{
		DivergenceTolerancePct: 1.0,
		AdapterTimeout:         5 * time.Second,
		OverallTimeout:         10 * time.Second,
	}
}

// Triangulator fans out to all price adapters and reduces the settled set.
type Triangulator struct {
	adapters []sources.QuoteAdapter
	cfg      Config
}

// New creates a Triangulator over the given adapters.
func New(adapters []sources.QuoteAdapter, cfg Config) *Triangulator {
	return &Triangulator{adapters: adapters, cfg: cfg}
}

// outcome is one settled adapter call, success or failure.
type outcome struct {
	source string
	quote  domain.PriceQuote
	err    error
}

// Triangulate queries every adapter concurrently and computes the median of
// the successful prices. The result depends only on the set of settled
// values, not on arrival order. Statuses always covers every configured
// adapter, in adapter order.
func (t *Triangulator) Triangulate(ctx context.Context, symbol string) (domain.TriangulationResult, []domain.SourceStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, t.cfg.OverallTimeout)
	defer cancel()

	results := make(chan outcome, len(t.adapters))
	for _, adapter := range t.adapters {
		go func(a sources.QuoteAdapter) {
			fetchCtx, fetchCancel := context.WithTimeout(ctx, t.cfg.AdapterTimeout)
			defer fetchCancel()

			quote, err := a.FetchQuote(fetchCtx, symbol)
			results <- outcome{source: a.Name(), quote: quote, err: err}
		}(adapter)
	}

	// Settle all: collect until every adapter reported or the overall
	// deadline passed. The buffered channel lets stragglers finish and be
	// garbage collected without blocking.
	settled := make(map[string]outcome, len(t.adapters))
	for range t.adapters {
		select {
		case out := <-results:
			settled[out.source] = out
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}

	statuses := make([]domain.SourceStatus, 0, len(t.adapters))
	perSource := make(map[string]float64)
	prices := make([]float64, 0, len(t.adapters))
	for _, adapter := range t.adapters {
		out, ok := settled[adapter.Name()]
		if !ok || out.err != nil {
			if ok {
				log.Debug().Str("source", adapter.Name()).
					Str("category", string(sources.Categorize(out.err))).
					Msg("source excluded from triangulation")
			}
			statuses = append(statuses, domain.SourceStatus{Name: adapter.Name(), Status: domain.StatusFailure})
			continue
		}
		statuses = append(statuses, domain.SourceStatus{Name: adapter.Name(), Status: domain.StatusSuccess})
		perSource[adapter.Name()] = out.quote.Price
		prices = append(prices, out.quote.Price)
	}

	if len(prices) == 0 {
		return domain.TriangulationResult{}, statuses, ErrInsufficientSources
	}

	median := medianOf(prices)
	divergence := divergenceOf(perSource, median, t.cfg.DivergenceTolerancePct)

	return domain.TriangulationResult{
		MedianPrice:    median,
		PerSourcePrice: perSource,
		Divergence:     divergence,
		ObservedAt:     time.Now(),
	}, statuses, nil
}

// medianOf returns the median; for an even count, the mean of the two
// central values. The input slice is not modified.
func medianOf(prices []float64) float64 {
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// divergenceOf computes each source's percentage deviation from the median
// and flags those beyond tolerance. Sources are reported sorted so output is
// deterministic across map iteration orders.
func divergenceOf(perSource map[string]float64, median, tolerancePct float64) domain.DivergenceReport {
	report := domain.DivergenceReport{DivergentSources: []string{}}
	if median == 0 {
		return report
	}

	for source, price := range perSource {
		deviation := math.Abs(price-median) / median * 100
		if deviation > report.MaxDivergencePct {
			report.MaxDivergencePct = deviation
		}
		if deviation > tolerancePct {
			report.HasDivergence = true
			report.DivergentSources = append(report.DivergentSources, source)
		}
	}
	sort.Strings(report.DivergentSources)
	return report
}
