package analyzer

import (
	"github.com/tradeforge/signalguard/internal/domain"
)

// Mempool pattern labels.
const (
	MempoolQuiet     = "QUIET"
	MempoolNormal    = "NORMAL"
	MempoolCongested = "CONGESTED"
)

// Whale movement labels.
const (
	WhaleAccumulation = "ACCUMULATION"
	WhaleDistribution = "DISTRIBUTION"
	WhaleNeutral      = "NEUTRAL"
)

// Macro cycle phase labels.
const (
	MacroExpansion   = "EXPANSION"
	MacroContraction = "CONTRACTION"
	MacroTransition  = "TRANSITION"
)

// liquidityProfile scores order-book balance. Imbalance is (bid-ask)/(bid+ask)
// in [-1,1]; the harmonic score is the harmonic mean of the two depths over
// their arithmetic mean, scaled to [0,100] — 100 for a perfectly balanced
// book, approaching 0 as one side empties.
func liquidityProfile(bidDepth, askDepth float64) domain.LiquidityProfile {
	profile := domain.LiquidityProfile{
		BidDepth: bidDepth,
		AskDepth: askDepth,
	}
	if bidDepth < 0 {
		profile.BidDepth = 0
	}
	if askDepth < 0 {
		profile.AskDepth = 0
	}

	total := profile.BidDepth + profile.AskDepth
	if total == 0 {
		return profile
	}

	profile.Imbalance = (profile.BidDepth - profile.AskDepth) / total
	profile.HarmonicScore = clamp01h(4 * profile.BidDepth * profile.AskDepth / (total * total) * 100)
	return profile
}

// mempoolRead classifies congestion inside the configured envelope and
// scores it: mid-envelope is healthiest (100), either edge degrades toward 0.
func mempoolRead(mempoolSize, envelopeMin, envelopeMax int64) (string, float64) {
	if envelopeMax <= envelopeMin || mempoolSize < 0 {
		return MempoolNormal, 50
	}

	switch {
	case mempoolSize < envelopeMin:
		return MempoolQuiet, clamp01h(float64(mempoolSize) / float64(envelopeMin) * 50)
	case mempoolSize > envelopeMax:
		over := float64(mempoolSize-envelopeMax) / float64(envelopeMax)
		return MempoolCongested, clamp01h(50 - over*50)
	default:
		// Distance from the nearer edge, scaled so mid-envelope = 100.
		span := float64(envelopeMax - envelopeMin)
		fromMin := float64(mempoolSize - envelopeMin)
		fromMax := float64(envelopeMax - mempoolSize)
		nearer := fromMin
		if fromMax < nearer {
			nearer = fromMax
		}
		return MempoolNormal, clamp01h(50 + nearer/span*100)
	}
}

// whaleRead classifies large-holder behavior from exchange flows and scores
// its intensity by transaction count. Net outflow from exchanges reads as
// accumulation.
func whaleRead(onChain domain.OnChainSnapshot) (string, float64) {
	netFlow := onChain.ExchangeOutflow - onChain.ExchangeInflow
	gross := onChain.ExchangeOutflow + onChain.ExchangeInflow

	movement := WhaleNeutral
	if gross > 0 {
		switch ratio := netFlow / gross; {
		case ratio > 0.2:
			movement = WhaleAccumulation
		case ratio < -0.2:
			movement = WhaleDistribution
		}
	}

	// Intensity: 50 whale transactions saturate the scale.
	count := onChain.WhaleTxCount
	if count < 0 {
		count = 0
	}
	score := clamp01h(float64(count) * 2)
	return movement, score
}

// macroRead derives a coarse cycle phase from sentiment. Fear-greed and news
// tone blend 70/30; extremes mark expansion or contraction, the middle is a
// transition zone.
func macroRead(sentiment domain.SentimentSnapshot) (string, float64) {
	blended := clamp01h(sentiment.FearGreedIndex*0.7 + sentiment.NewsScore*0.3)

	switch {
	case blended >= 60:
		return MacroExpansion, blended
	case blended <= 40:
		return MacroContraction, blended
	default:
		return MacroTransition, blended
	}
}
