package sources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/tradeforge/signalguard/internal/domain"
)

// HardeningConfig tunes the breaker and limiter wrapped around one provider.
type HardeningConfig struct {
	RPS                 float64       // steady-state requests per second
	Burst               int           // limiter burst capacity
	ConsecutiveFailures uint32        // failures before the breaker opens
	OpenTimeout         time.Duration // how long the breaker stays open
}

// DefaultHardeningConfig matches the per-provider limits used in production.
func DefaultHardeningConfig() HardeningConfig {
	return HardeningConfig{
		RPS:                 5,
		Burst:               10,
		ConsecutiveFailures: 5,
		OpenTimeout:         30 * time.Second,
	}
}

// HardenedQuoteAdapter decorates a QuoteAdapter with a circuit breaker and a
// token-bucket rate limiter. Limiter denial surfaces as rateLimit, an open
// breaker as apiError; both are ordinary source-level failures to the
// aggregation layer.
type HardenedQuoteAdapter struct {
	inner   QuoteAdapter
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// Harden wraps adapter with breaker + limiter protection.
func Harden(adapter QuoteAdapter, cfg HardeningConfig) *HardenedQuoteAdapter {
	settings := gobreaker.Settings{
		Name:    adapter.Name(),
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("source", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	}

	return &HardenedQuoteAdapter{
		inner:   adapter,
		breaker: gobreaker.NewCircuitBreaker(settings),
		limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
	}
}

func (h *HardenedQuoteAdapter) Name() string { return h.inner.Name() }

func (h *HardenedQuoteAdapter) FetchQuote(ctx context.Context, symbol string) (domain.PriceQuote, error) {
	if !h.limiter.Allow() {
		return domain.PriceQuote{}, NewCategorizedError(h.Name(), ErrRateLimit,
			fmt.Errorf("local rate limit exceeded"))
	}

	result, err := h.breaker.Execute(func() (interface{}, error) {
		return h.inner.FetchQuote(ctx, symbol)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.PriceQuote{}, NewCategorizedError(h.Name(), ErrAPIError,
				fmt.Errorf("circuit open: %w", err))
		}
		return domain.PriceQuote{}, err
	}
	return result.(domain.PriceQuote), nil
}
