// Package domain holds the immutable value objects exchanged between the
// consensus pipeline stages. Every struct here is produced by one stage and
// consumed read-only by the next; nothing in this package mutates in place.
package domain

import (
	"time"
)

// DataKind identifies which category of snapshot a source produces.
type DataKind string

const (
	KindPrice     DataKind = "price"
	KindOnChain   DataKind = "onchain"
	KindSentiment DataKind = "sentiment"
)

// PriceQuote is a single price observation from one source.
type PriceQuote struct {
	SourceID   string    `json:"source_id"`
	Price      float64   `json:"price"`      // > 0
	Volume24h  float64   `json:"volume_24h"` // >= 0
	ObservedAt time.Time `json:"observed_at"`
}

// OnChainSnapshot carries network-level metrics for one observation window.
type OnChainSnapshot struct {
	SourceID        string    `json:"source_id"`
	MempoolSize     int64     `json:"mempool_size"`
	WhaleTxCount    int64     `json:"whale_tx_count"`
	ExchangeInflow  float64   `json:"exchange_inflow"`
	ExchangeOutflow float64   `json:"exchange_outflow"`
	ActiveAddresses int64     `json:"active_addresses"`
	ObservedAt      time.Time `json:"observed_at"`
}

// SentimentSnapshot carries aggregate market-sentiment metrics.
type SentimentSnapshot struct {
	SourceID       string    `json:"source_id"`
	FearGreedIndex float64   `json:"fear_greed_index"` // 0-100
	SocialVolume   float64   `json:"social_volume"`
	NewsScore      float64   `json:"news_score"` // 0-100
	ObservedAt     time.Time `json:"observed_at"`
}

// MarketSnapshot is the consolidated per-cycle view handed to the analyzer.
type MarketSnapshot struct {
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	Volume24h    float64   `json:"volume_24h"`
	MarketCap    float64   `json:"market_cap"`
	BidDepth     float64   `json:"bid_depth"`
	AskDepth     float64   `json:"ask_depth"`
	ObservedAt   time.Time `json:"observed_at"`
	PriceHistory []float64 `json:"price_history"` // time-ordered, oldest first
}

// DivergenceReport describes per-source disagreement with the median.
type DivergenceReport struct {
	MaxDivergencePct float64  `json:"max_divergence_pct"`
	HasDivergence    bool     `json:"has_divergence"`
	DivergentSources []string `json:"divergent_sources"`
}

// TriangulationResult is the consensus view of one refresh cycle. It is
// created once per cycle and superseded, never mutated.
type TriangulationResult struct {
	MedianPrice    float64            `json:"median_price"`
	PerSourcePrice map[string]float64 `json:"per_source_price"`
	Divergence     DivergenceReport   `json:"divergence"`
	ObservedAt     time.Time          `json:"observed_at"`
}

// Discrepancy is one cross-source inconsistency found during sanity checking.
type Discrepancy struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Description string   `json:"description"`
}

// Canonical sanity check names. Consumers key off these.
const (
	CheckMempoolValid     = "mempoolValid"
	CheckWhaleCountValid  = "whaleCountValid"
	CheckPriceAgreement   = "priceAgreement"
	CheckVolumeReasonable = "volumeReasonable"
	CheckDataFresh        = "dataFresh"
)

// SanityCheckResult reports the five cross-source plausibility checks.
type SanityCheckResult struct {
	Passed        bool            `json:"passed"`
	Checks        map[string]bool `json:"checks"`
	Discrepancies []Discrepancy   `json:"discrepancies"`
}

// SourceStatus records whether one configured source delivered data this cycle.
type SourceStatus struct {
	Name   string `json:"name"`
	Status string `json:"status"` // SUCCESS or FAILURE
}

const (
	StatusSuccess = "SUCCESS"
	StatusFailure = "FAILURE"
)

// Recommendation is the quality scorer's verdict for the current cycle.
type Recommendation string

const (
	RecommendProceed Recommendation = "PROCEED"
	RecommendRetry   Recommendation = "RETRY"
	RecommendHalt    Recommendation = "HALT"
)

// QualityAssessment is the 0-100 data-quality verdict for one cycle.
// Derived per cycle, never persisted beyond it (the audit log keeps its own
// flattened record).
type QualityAssessment struct {
	Score          float64        `json:"score"` // 0-100
	Sources        []SourceStatus `json:"sources"`
	Discrepancies  []Discrepancy  `json:"discrepancies"`
	Recommendation Recommendation `json:"recommendation"`
}

// FallbackResult records which provider finally served a snapshot and the
// attempt trail that led there.
type FallbackResult[T any] struct {
	Data         T        `json:"data"`
	SourceUsed   string   `json:"source_used"`
	FallbackUsed bool     `json:"fallback_used"`
	Attempts     []string `json:"attempts"`
}
