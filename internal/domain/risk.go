package domain

// PositionType is the trade direction a risk plan is computed for.
type PositionType string

const (
	PositionLong  PositionType = "LONG"
	PositionShort PositionType = "SHORT"
	// PositionNone is the no-trade sentinel. Risk plans are meaningless for
	// it and the calculator rejects it outright.
	PositionNone PositionType = "NO_TRADE"
)

// TakeProfit is one rung of the take-profit ladder.
type TakeProfit struct {
	Price         float64 `json:"price"`          // > 0
	AllocationPct float64 `json:"allocation_pct"` // ladder sums to exactly 100
}

// RiskPlan is a bounded-risk trade plan for a validated entry price.
// For LONG: StopLoss < entry < TP1 < TP2 < TP3; mirrored for SHORT.
type RiskPlan struct {
	PositionType  PositionType `json:"position_type"`
	EntryPrice    float64      `json:"entry_price"`
	PositionSize  float64      `json:"position_size"` // > 0, in asset units
	StopLoss      float64      `json:"stop_loss"`     // > 0
	TakeProfit1   TakeProfit   `json:"take_profit_1"`
	TakeProfit2   TakeProfit   `json:"take_profit_2"`
	TakeProfit3   TakeProfit   `json:"take_profit_3"`
	MaxLossAmount float64      `json:"max_loss_amount"`
	MaxLossPct    float64      `json:"max_loss_pct"`
	RiskReward    float64      `json:"risk_reward"` // >= configured floor
}
