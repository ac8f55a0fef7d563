// Package sources defines the adapter contract every external data provider
// is reduced to, plus the error taxonomy the pipeline keys on. Raw provider
// clients live behind these interfaces; the consensus core only ever sees a
// typed snapshot or a categorized failure.
package sources

import (
	"context"
	"errors"
	"fmt"

	"github.com/tradeforge/signalguard/internal/domain"
)

// ErrorCategory buckets adapter failures so aggregation can treat them
// uniformly regardless of provider.
type ErrorCategory string

const (
	ErrNetwork           ErrorCategory = "network"
	ErrTimeout           ErrorCategory = "timeout"
	ErrRateLimit         ErrorCategory = "rateLimit"
	ErrAPIError          ErrorCategory = "apiError"
	ErrUnsupportedSymbol ErrorCategory = "unsupportedSymbol"
	ErrUnknown           ErrorCategory = "unknown"
)

// CategorizedError is the only error type adapters are allowed to surface.
type CategorizedError struct {
	Source   string
	Category ErrorCategory
	Err      error
}

func (e *CategorizedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Source, e.Category, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Category)
}

func (e *CategorizedError) Unwrap() error { return e.Err }

// NewCategorizedError wraps err for source with the given category.
func NewCategorizedError(source string, category ErrorCategory, err error) *CategorizedError {
	return &CategorizedError{Source: source, Category: category, Err: err}
}

// Categorize returns the category of err, or ErrUnknown when err is not a
// CategorizedError. Context deadline errors map to timeout.
func Categorize(err error) ErrorCategory {
	var ce *CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return ErrUnknown
}

// QuoteAdapter fetches one price observation from one provider. The call
// must respect ctx's deadline and never block past it.
type QuoteAdapter interface {
	Name() string
	FetchQuote(ctx context.Context, symbol string) (domain.PriceQuote, error)
}

// OnChainAdapter fetches one on-chain metrics snapshot.
type OnChainAdapter interface {
	Name() string
	FetchOnChain(ctx context.Context, symbol string) (domain.OnChainSnapshot, error)
}

// SentimentAdapter fetches one sentiment snapshot.
type SentimentAdapter interface {
	Name() string
	FetchSentiment(ctx context.Context, symbol string) (domain.SentimentSnapshot, error)
}
