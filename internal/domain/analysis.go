package domain

// WavePattern classifies the structural read of recent price action.
type WavePattern string

const (
	WaveContinuation WavePattern = "CONTINUATION"
	WaveBreak        WavePattern = "BREAK"
	WaveUncertain    WavePattern = "UNCERTAIN"
)

// Direction is a coarse trend direction.
type Direction string

const (
	DirectionUp       Direction = "UP"
	DirectionDown     Direction = "DOWN"
	DirectionSideways Direction = "SIDEWAYS"
)

// TrendRead is one directional read of a price series.
type TrendRead struct {
	Direction   Direction `json:"direction"`
	Strength    float64   `json:"strength"`    // 0-100
	Probability float64   `json:"probability"` // 0-100
	KeyLevels   []float64 `json:"key_levels"`
}

// Trajectory pairs the forward read with a time-reversed read of the same
// series. Alignment is 100 when the reversed series confirms the same
// structural trend.
type Trajectory struct {
	Forward   TrendRead `json:"forward"`
	Reverse   TrendRead `json:"reverse"`
	Alignment float64   `json:"alignment"` // 0-100
}

// LiquidityProfile summarizes order-book depth balance.
type LiquidityProfile struct {
	BidDepth      float64 `json:"bid_depth"`      // >= 0
	AskDepth      float64 `json:"ask_depth"`      // >= 0
	Imbalance     float64 `json:"imbalance"`      // -1..1, positive = bid heavy
	HarmonicScore float64 `json:"harmonic_score"` // 0-100
}

// Correction records one field the self-correction validator fixed.
type Correction struct {
	Field     string  `json:"field"`
	Original  float64 `json:"original"`
	Corrected float64 `json:"corrected"`
	Reason    string  `json:"reason"`
}

// MarketStateAnalysis is the analyzer's full derived view of one snapshot.
// Only the self-correction validator produces modified copies of it; the
// analyzer's original is never touched after creation.
type MarketStateAnalysis struct {
	Symbol          string           `json:"symbol"`
	WavePattern     WavePattern      `json:"wave_pattern"`
	ConfidenceScore float64          `json:"confidence_score"` // 0-100
	Trajectory      Trajectory       `json:"trajectory"`
	Liquidity       LiquidityProfile `json:"liquidity"`
	MempoolPattern  string           `json:"mempool_pattern"`
	MempoolScore    float64          `json:"mempool_score"` // 0-100
	WhaleMovement   string           `json:"whale_movement"`
	WhaleScore      float64          `json:"whale_score"` // 0-100
	MacroCyclePhase string           `json:"macro_cycle_phase"`
	MacroScore      float64          `json:"macro_score"` // 0-100
	Reasoning       string           `json:"reasoning"`
	Justification   string           `json:"justification"`
	Errors          []string         `json:"errors,omitempty"`
	Corrections     []Correction     `json:"corrections,omitempty"`
}

// Clone returns a deep copy so correction passes never alias the original's
// slices.
func (a MarketStateAnalysis) Clone() MarketStateAnalysis {
	out := a
	out.Trajectory.Forward.KeyLevels = append([]float64(nil), a.Trajectory.Forward.KeyLevels...)
	out.Trajectory.Reverse.KeyLevels = append([]float64(nil), a.Trajectory.Reverse.KeyLevels...)
	out.Errors = append([]string(nil), a.Errors...)
	out.Corrections = append([]Correction(nil), a.Corrections...)
	return out
}
