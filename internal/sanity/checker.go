// Package sanity cross-checks one cycle's consensus data against plausibility
// envelopes. It never fails hard: implausible data comes back as discrepancy
// entries the quality scorer folds into its verdict.
package sanity

import (
	"fmt"
	"time"

	"github.com/tradeforge/signalguard/internal/domain"
)

// Config holds the plausibility envelopes the five checks run against. The
// historical envelopes come from configuration, not live statistics, so the
// checker stays a pure function of its inputs.
type Config struct {
	MempoolMin         int64         `yaml:"mempool_min" default:"500"`
	MempoolMax         int64         `yaml:"mempool_max" default:"500000"`
	WhaleCountMax      int64         `yaml:"whale_count_max" default:"500"`
	VolumeAvg24h       float64       `yaml:"volume_avg_24h" default:"25000000000"`
	VolumeMaxMultiple  float64       `yaml:"volume_max_multiple" default:"10"`
	FreshnessThreshold time.Duration `yaml:"freshness_threshold" default:"10m"`
}

// DefaultConfig returns envelopes sized for the tracked asset.
func DefaultConfig() Config {
	return Config{
		MempoolMin:         500,
		MempoolMax:         500000,
		WhaleCountMax:      500,
		VolumeAvg24h:       25_000_000_000,
		VolumeMaxMultiple:  10,
		FreshnessThreshold: 10 * time.Minute,
	}
}

// Checker evaluates the five cross-source checks.
type Checker struct {
	cfg Config
	now func() time.Time
}

// New creates a Checker with the given envelopes.
func New(cfg Config) *Checker {
	return &Checker{cfg: cfg, now: time.Now}
}

// Check runs all five checks. onChain may be nil: missing on-chain data
// degrades the relevant checks to INFO discrepancies instead of failing them.
// volume24h is the consensus 24h volume for the cycle.
func (c *Checker) Check(tri domain.TriangulationResult, onChain *domain.OnChainSnapshot, volume24h float64) domain.SanityCheckResult {
	result := domain.SanityCheckResult{
		Checks:        make(map[string]bool, 5),
		Discrepancies: []domain.Discrepancy{},
	}

	// Mempool and whale envelopes need on-chain data.
	if onChain == nil {
		result.Checks[domain.CheckMempoolValid] = true
		result.Checks[domain.CheckWhaleCountValid] = true
		result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
			Type:        "missing_onchain",
			Severity:    domain.SeverityInfo,
			Description: "on-chain snapshot unavailable, mempool and whale checks skipped",
		})
	} else {
		mempoolOK := onChain.MempoolSize >= c.cfg.MempoolMin && onChain.MempoolSize <= c.cfg.MempoolMax
		result.Checks[domain.CheckMempoolValid] = mempoolOK
		if !mempoolOK {
			result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
				Type:     "mempool_implausible",
				Severity: domain.SeverityWarning,
				Description: fmt.Sprintf("mempool size %d outside envelope [%d, %d]",
					onChain.MempoolSize, c.cfg.MempoolMin, c.cfg.MempoolMax),
			})
		}

		whaleOK := onChain.WhaleTxCount >= 0 && onChain.WhaleTxCount <= c.cfg.WhaleCountMax
		result.Checks[domain.CheckWhaleCountValid] = whaleOK
		if !whaleOK {
			severity := domain.SeverityWarning
			if onChain.WhaleTxCount < 0 {
				severity = domain.SeverityError // impossible value, not just unusual
			}
			result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
				Type:     "whale_count_implausible",
				Severity: severity,
				Description: fmt.Sprintf("whale transaction count %d outside envelope [0, %d]",
					onChain.WhaleTxCount, c.cfg.WhaleCountMax),
			})
		}
	}

	// Price agreement comes straight from the triangulation divergence flag.
	agreement := !tri.Divergence.HasDivergence
	result.Checks[domain.CheckPriceAgreement] = agreement
	if !agreement {
		result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
			Type:     "price_divergence",
			Severity: domain.SeverityWarning,
			Description: fmt.Sprintf("sources %v diverge up to %.2f%% from median",
				tri.Divergence.DivergentSources, tri.Divergence.MaxDivergencePct),
		})
	}

	volumeOK := volume24h >= 0 && volume24h <= c.cfg.VolumeAvg24h*c.cfg.VolumeMaxMultiple
	result.Checks[domain.CheckVolumeReasonable] = volumeOK
	if !volumeOK {
		severity := domain.SeverityWarning
		if volume24h < 0 {
			severity = domain.SeverityError
		}
		result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
			Type:     "volume_implausible",
			Severity: severity,
			Description: fmt.Sprintf("24h volume %.0f outside plausible range [0, %.0f]",
				volume24h, c.cfg.VolumeAvg24h*c.cfg.VolumeMaxMultiple),
		})
	}

	age := c.now().Sub(tri.ObservedAt)
	fresh := age <= c.cfg.FreshnessThreshold
	result.Checks[domain.CheckDataFresh] = fresh
	if !fresh {
		result.Discrepancies = append(result.Discrepancies, domain.Discrepancy{
			Type:     "stale_data",
			Severity: domain.SeverityWarning,
			Description: fmt.Sprintf("consensus data is %s old, freshness threshold is %s",
				age.Round(time.Second), c.cfg.FreshnessThreshold),
		})
	}

	result.Passed = true
	for _, ok := range result.Checks {
		if !ok {
			result.Passed = false
			break
		}
	}
	return result
}
