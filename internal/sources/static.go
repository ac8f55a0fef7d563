package sources

import (
	"context"
	"time"

	"github.com/tradeforge/signalguard/internal/domain"
)

// StaticQuoteAdapter returns a fixed quote or error. Used in dry runs and as
// a test double wherever a QuoteAdapter is needed.
type StaticQuoteAdapter struct {
	SourceName string
	Price      float64
	Volume24h  float64
	Err        error
	Delay      time.Duration
}

func (s *StaticQuoteAdapter) Name() string { return s.SourceName }

func (s *StaticQuoteAdapter) FetchQuote(ctx context.Context, _ string) (domain.PriceQuote, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return domain.PriceQuote{}, NewCategorizedError(s.SourceName, ErrTimeout, ctx.Err())
		}
	}
	if s.Err != nil {
		return domain.PriceQuote{}, s.Err
	}
	return domain.PriceQuote{
		SourceID:   s.SourceName,
		Price:      s.Price,
		Volume24h:  s.Volume24h,
		ObservedAt: time.Now(),
	}, nil
}

// StaticOnChainAdapter returns a fixed on-chain snapshot or error.
type StaticOnChainAdapter struct {
	SourceName string
	Snapshot   domain.OnChainSnapshot
	Err        error
}

func (s *StaticOnChainAdapter) Name() string { return s.SourceName }

func (s *StaticOnChainAdapter) FetchOnChain(_ context.Context, _ string) (domain.OnChainSnapshot, error) {
	if s.Err != nil {
		return domain.OnChainSnapshot{}, s.Err
	}
	snap := s.Snapshot
	snap.SourceID = s.SourceName
	if snap.ObservedAt.IsZero() {
		snap.ObservedAt = time.Now()
	}
	return snap, nil
}

// StaticSentimentAdapter returns a fixed sentiment snapshot or error.
type StaticSentimentAdapter struct {
	SourceName string
	Snapshot   domain.SentimentSnapshot
	Err        error
}

func (s *StaticSentimentAdapter) Name() string { return s.SourceName }

func (s *StaticSentimentAdapter) FetchSentiment(_ context.Context, _ string) (domain.SentimentSnapshot, error) {
	if s.Err != nil {
		return domain.SentimentSnapshot{}, s.Err
	}
	snap := s.Snapshot
	snap.SourceID = s.SourceName
	if snap.ObservedAt.IsZero() {
		snap.ObservedAt = time.Now()
	}
	return snap, nil
}
