// Package fallback walks an ordered provider chain and returns the first
// snapshot that arrives, recording the attempt trail. It backs the pipeline
// whenever triangulation cannot reach quorum.
package fallback

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradeforge/signalguard/internal/domain"
	"github.com/tradeforge/signalguard/internal/sources"
)

// ErrAllSourcesExhausted means every provider in the chain, including
// retries, failed.
var ErrAllSourcesExhausted = errors.New("all sources exhausted: no provider returned data")

// Config tunes per-provider attempts.
type Config struct {
	Timeout     time.Duration `yaml:"timeout" default:"5s"`    // per attempt
	MaxRetries  int           `yaml:"max_retries" default:"1"` // retries after the first attempt
	BackoffBase time.Duration `yaml:"backoff_base" default:"500ms"`
	BackoffCap  time.Duration `yaml:"backoff_cap" default:"5s"`
}

// DefaultConfig returns one retry with exponential backoff capped at 5s.
func DefaultConfig() Config {
	return Config{
		Timeout:     5 * time.Second,
		MaxRetries:  1,
		BackoffBase: 500 * time.Millisecond,
		BackoffCap:  5 * time.Second,
	}
}

// Fetcher tries providers strictly in priority order.
type Fetcher struct {
	providers []sources.QuoteAdapter
	cfg       Config
	sleep     func(context.Context, time.Duration) error
}

// New creates a Fetcher. The provider slice order is the priority order; the
// first element is primary.
func New(providers []sources.QuoteAdapter, cfg Config) *Fetcher {
	return &Fetcher{providers: providers, cfg: cfg, sleep: sleepCtx}
}

// FetchQuote walks the chain and returns the first successful quote together
// with the attempt trail. FallbackUsed is true whenever the serving provider
// is not the primary.
func (f *Fetcher) FetchQuote(ctx context.Context, symbol string) (domain.FallbackResult[domain.PriceQuote], error) {
	result := domain.FallbackResult[domain.PriceQuote]{Attempts: []string{}}

	for idx, provider := range f.providers {
		for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
			if attempt > 0 {
				backoff := f.cfg.BackoffBase << (attempt - 1)
				if backoff > f.cfg.BackoffCap {
					backoff = f.cfg.BackoffCap
				}
				if err := f.sleep(ctx, backoff); err != nil {
					return result, err
				}
			}

			result.Attempts = append(result.Attempts, provider.Name())

			fetchCtx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
			quote, err := provider.FetchQuote(fetchCtx, symbol)
			cancel()

			if err != nil {
				log.Debug().Str("provider", provider.Name()).Int("attempt", attempt+1).
					Str("category", string(sources.Categorize(err))).
					Msg("fallback attempt failed")
				continue
			}

			result.Data = quote
			result.SourceUsed = provider.Name()
			result.FallbackUsed = idx > 0
			if result.FallbackUsed {
				log.Warn().Str("provider", provider.Name()).Str("symbol", symbol).
					Strs("attempts", result.Attempts).
					Msg("primary source unavailable, served from fallback")
			}
			return result, nil
		}
	}

	return result, ErrAllSourcesExhausted
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
