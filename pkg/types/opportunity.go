package types

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// StrategyAction enumerates the directional actions an opportunity can take.
type StrategyAction string

const (
	BuyYesSellYes StrategyAction = "BUY_YES_SELL_YES"
	BuyNoSellNo   StrategyAction = "BUY_NO_SELL_NO"
	BuyYesSellNo  StrategyAction = "BUY_YES_SELL_NO"
	BuyNoSellYes  StrategyAction = "BUY_NO_SELL_YES"
)

// OpportunityStatus is the lifecycle state of a detected opportunity.
// Opportunities are append-only; a re-detection produces a new row.
type OpportunityStatus string

const (
	OpportunityActive   OpportunityStatus = "ACTIVE"
	OpportunityExpired  OpportunityStatus = "EXPIRED"
	OpportunityExecuted OpportunityStatus = "EXECUTED"
	OpportunityMissed   OpportunityStatus = "MISSED"
)

// Strategy is the directional trade the detector selected.
type Strategy struct {
	Action         StrategyAction  `json:"action"`
	BuyVenue       Venue           `json:"buyVenue"`
	BuyExternalID  string          `json:"buyExternalId"`
	BuyPrice       decimal.Decimal `json:"buyPrice"`
	SellVenue      Venue           `json:"sellVenue"`
	SellExternalID string          `json:"sellExternalId"`
	SellPrice      decimal.Decimal `json:"sellPrice"`
	Size           decimal.Decimal `json:"size"`
}

// ProfitAnalysis is the fee- and slippage-aware economics of a strategy.
// All per-share figures are in price units ([0,1] dollars per share).
type ProfitAnalysis struct {
	GrossSpread       decimal.Decimal `json:"grossSpread"`
	TotalFees         decimal.Decimal `json:"totalFees"`
	EstimatedSlippage decimal.Decimal `json:"estimatedSlippage"`
	NetProfit         decimal.Decimal `json:"netProfit"`
	ROI               decimal.Decimal `json:"roi"`
	AnnualizedROI     decimal.Decimal `json:"annualizedRoi"`
	MaxExecutableSize decimal.Decimal `json:"maxExecutableSize"`
}

// Confidence scores the trustworthiness of a detection. All components and
// the overall are floats in [0,1]; overall = 0.35*freshness + 0.30*liquidity
// + 0.35*matchQuality.
type Confidence struct {
	Overall      float64 `json:"overall"`
	Freshness    float64 `json:"freshness"`
	Liquidity    float64 `json:"liquidity"`
	MatchQuality float64 `json:"matchQuality"`
	DataAgeMS    int64   `json:"dataAgeMs"`
}

// ExecutionStep is one leg of the execution plan.
type ExecutionStep struct {
	Seq         int             `json:"seq"`
	Side        string          `json:"side"` // "BUY" or "SELL"
	Venue       Venue           `json:"venue"`
	ExternalID  string          `json:"externalId"`
	Price       decimal.Decimal `json:"price"`
	Size        decimal.Decimal `json:"size"`
	Slippage    decimal.Decimal `json:"slippage"`
	Fee         decimal.Decimal `json:"fee"`
	NetCost     decimal.Decimal `json:"netCost"`
	Instruction string          `json:"instruction"`
	VenueURL    string          `json:"venueUrl"`
}

// ArbitrageOpportunity is a detected arbitrage instance for a confirmed
// match at a specific moment.
type ArbitrageOpportunity struct {
	ID              string            `json:"id"`
	MatchKey        string            `json:"matchKey"`
	Strategy        Strategy          `json:"strategy"`
	Profit          ProfitAnalysis    `json:"profit"`
	Confidence      Confidence        `json:"confidence"`
	Plan            []ExecutionStep   `json:"plan"`
	Status          OpportunityStatus `json:"status"`
	DetectedAt      time.Time         `json:"detectedAt"`
	SourceDataAgeMS int64             `json:"sourceDataAgeMs"`
	TargetDataAgeMS int64             `json:"targetDataAgeMs"`
}

// PartialFillScenario is a derived what-if for executing a fraction of the
// maximum size. Not persisted; recomputed on demand.
type PartialFillScenario struct {
	FillPct        int             `json:"fillPct"`
	FilledQty      decimal.Decimal `json:"filledQty"`
	AdjustedProfit decimal.Decimal `json:"adjustedProfit"`
	Risk           string          `json:"risk"` // LOW, MEDIUM, HIGH
	Recommendation string          `json:"recommendation"`
}

// PartialFills derives the standard 25/50/75/100% fill scenarios.
func (o *ArbitrageOpportunity) PartialFills() []PartialFillScenario {
	pcts := []int{25, 50, 75, 100}
	scenarios := make([]PartialFillScenario, 0, len(pcts))
	hundred := decimal.NewFromInt(100)

	for _, pct := range pcts {
		frac := decimal.NewFromInt(int64(pct)).Div(hundred)
		risk := "HIGH"
		switch {
		case pct >= 75:
			risk = "LOW"
		case pct >= 50:
			risk = "MEDIUM"
		}
		scenarios = append(scenarios, PartialFillScenario{
			FillPct:        pct,
			FilledQty:      o.Profit.MaxExecutableSize.Mul(frac),
			AdjustedProfit: o.Profit.NetProfit.Mul(frac),
			Risk:           risk,
			Recommendation: fillRecommendation(pct),
		})
	}

	return scenarios
}

func fillRecommendation(pct int) string {
	switch {
	case pct >= 100:
		return "Full size; expect to consume the quoted depth on both legs."
	case pct >= 75:
		return "Near-full size; both legs should fill inside the quoted band."
	case pct >= 50:
		return "Half size; conservative when one leg's depth looks thin."
	default:
		return "Probe size; use to validate fills before committing more."
	}
}

// String returns a compact human-readable summary.
func (o *ArbitrageOpportunity) String() string {
	return fmt.Sprintf(
		"Opportunity[%s] %s buy=%s@%s sell=%s@%s size=%s net=$%s conf=%.2f",
		shortID(o.ID),
		o.Strategy.Action,
		o.Strategy.BuyVenue, o.Strategy.BuyPrice.StringFixed(4),
		o.Strategy.SellVenue, o.Strategy.SellPrice.StringFixed(4),
		o.Profit.MaxExecutableSize.StringFixed(2),
		o.Profit.NetProfit.StringFixed(2),
		o.Confidence.Overall,
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
