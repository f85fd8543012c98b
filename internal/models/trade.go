// Package models defines the core domain types for the trading journal.
package models

// Direction indicates whether a trade is a buy or a sell.
type Direction string

const (
	Long  Direction = "Long"
	Short Direction = "Short"
)

// Status is the lifecycle state of a trade record.
//
// Planned trades carry only the pre-trade plan. Closed trades additionally
// carry execution results. Open is a reachable transitional state reserved
// for live trade tracking; no operation currently sets it.
type Status string

const (
	StatusPlanned Status = "Planned"
	StatusOpen    Status = "Open"
	StatusClosed  Status = "Closed"
)

// Outcome is the user-recorded result of a closed trade.
type Outcome string

const (
	OutcomeWin  Outcome = "Win"
	OutcomeLoss Outcome = "Loss"
	OutcomeBE   Outcome = "BE"
)

// StrategyType identifies the trading model a plan was built on.
type StrategyType string

const (
	StrategySupplyDemand StrategyType = "SupplyDemand"
	StrategyICT          StrategyType = "ICT"
	StrategyOther        StrategyType = "Other"
)

// StrategySetup holds the strategy-conditional plan fields. Which fields are
// meaningful depends on the strategy: SupplyDemand uses ZoneType and
// Confirmation, ICT uses PDArray, LiquidityTarget and Confirmation, Other
// uses none. Construct via SupplyDemandSetup/ICTSetup so only the fields
// belonging to the chosen strategy are populated.
type StrategySetup struct {
	ZoneType        string `json:"zoneType,omitempty" bson:"zoneType,omitempty"`
	Confirmation    string `json:"confirmation,omitempty" bson:"confirmation,omitempty"`
	PDArray         string `json:"pdArray,omitempty" bson:"pdArray,omitempty"`
	LiquidityTarget string `json:"liquidityTarget,omitempty" bson:"liquidityTarget,omitempty"`
}

// SupplyDemandSetup builds the setup fields for a supply & demand plan.
func SupplyDemandSetup(zoneType, confirmation string) StrategySetup {
	return StrategySetup{ZoneType: zoneType, Confirmation: confirmation}
}

// ICTSetup builds the setup fields for an ICT plan.
func ICTSetup(pdArray, liquidityTarget, confirmation string) StrategySetup {
	return StrategySetup{PDArray: pdArray, LiquidityTarget: liquidityTarget, Confirmation: confirmation}
}

// Conforms reports whether the populated setup fields match the given
// strategy's shape.
func (s StrategySetup) Conforms(strategy StrategyType) bool {
	switch strategy {
	case StrategySupplyDemand:
		return s.PDArray == "" && s.LiquidityTarget == ""
	case StrategyICT:
		return s.ZoneType == ""
	default:
		return s == StrategySetup{}
	}
}

// Trade is the central journal entity. Field names follow the flat camelCase
// wire format of the JSON backup files, so exports from older clients import
// cleanly. Timestamps are epoch milliseconds.
type Trade struct {
	ID        string `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string `json:"userId" bson:"userId"`
	CreatedAt int64  `json:"createdAt,omitempty" bson:"createdAt,omitempty"`

	// Core info.
	Date       int64        `json:"date" bson:"date"`
	Instrument string       `json:"instrument" bson:"instrument"`
	Direction  Direction    `json:"direction" bson:"direction"`
	Status     Status       `json:"status" bson:"status"`
	Strategy   StrategyType `json:"strategy" bson:"strategy"`

	// Pre-trade plan.
	PlannedEntry float64 `json:"plannedEntry" bson:"plannedEntry"`
	PlannedSL    float64 `json:"plannedSL" bson:"plannedSL"`
	PlannedTP    float64 `json:"plannedTP" bson:"plannedTP"`
	PlannedRR    float64 `json:"plannedRR" bson:"plannedRR"`
	RiskAmount   float64 `json:"riskAmount" bson:"riskAmount"`
	PositionSize float64 `json:"positionSize" bson:"positionSize"`
	EntryReason  string  `json:"entryReason" bson:"entryReason"`

	StrategySetup `bson:",inline"`

	// Timing metrics. TimeToEntry is derived (minutes, one decimal) and only
	// present when both inputs are.
	ZoneCreationTime *int64   `json:"zoneCreationTime,omitempty" bson:"zoneCreationTime,omitempty"`
	EntryTime        *int64   `json:"entryTime,omitempty" bson:"entryTime,omitempty"`
	TimeToEntry      *float64 `json:"timeToEntry,omitempty" bson:"timeToEntry,omitempty"`

	// Psychology and context.
	PreTradeEmotion string `json:"preTradeEmotion,omitempty" bson:"preTradeEmotion,omitempty"`
	SleepScore      *int   `json:"sleepScore,omitempty" bson:"sleepScore,omitempty"`
	TradeType       string `json:"tradeType,omitempty" bson:"tradeType,omitempty"`
	MarketCondition string `json:"marketCondition,omitempty" bson:"marketCondition,omitempty"`
	Session         string `json:"session,omitempty" bson:"session,omitempty"`
	Notes           string `json:"notes,omitempty" bson:"notes,omitempty"`

	// Execution results, written only when the trade is closed.
	ActualEntry           *float64 `json:"actualEntry,omitempty" bson:"actualEntry,omitempty"`
	ExitPrice             *float64 `json:"exitPrice,omitempty" bson:"exitPrice,omitempty"`
	PnL                   *float64 `json:"pnl,omitempty" bson:"pnl,omitempty"`
	ActualRR              *float64 `json:"actualRR,omitempty" bson:"actualRR,omitempty"`
	Outcome               Outcome  `json:"outcome,omitempty" bson:"outcome,omitempty"`
	ExitReason            string   `json:"exitReason,omitempty" bson:"exitReason,omitempty"`
	PostTradeEmotion      string   `json:"postTradeEmotion,omitempty" bson:"postTradeEmotion,omitempty"`
	LessonsLearned        string   `json:"lessonsLearned,omitempty" bson:"lessonsLearned,omitempty"`
	MaxAdverseExcursion   *float64 `json:"maxAdverseExcursion,omitempty" bson:"maxAdverseExcursion,omitempty"`
	MaxFavorableExcursion *float64 `json:"maxFavorableExcursion,omitempty" bson:"maxFavorableExcursion,omitempty"`
	ClosedReason          string   `json:"closedReason,omitempty" bson:"closedReason,omitempty"`

	// Media. Each is an external chart link or a bucket URL under temp/ or
	// setups/.
	BeforeImageURL       string `json:"beforeImageUrl,omitempty" bson:"beforeImageUrl,omitempty"`
	ConfirmationImageURL string `json:"confirmationImageUrl,omitempty" bson:"confirmationImageUrl,omitempty"`
	AfterImageURL        string `json:"afterImageUrl,omitempty" bson:"afterImageUrl,omitempty"`

	// Free-form labels, insertion order preserved.
	Tags []string `json:"tags,omitempty" bson:"tags,omitempty"`
}

// ClosedLike reports whether the trade counts toward performance analytics:
// either explicitly Closed or carrying a recorded outcome.
func (t *Trade) ClosedLike() bool {
	return t.Status == StatusClosed || t.Outcome != ""
}

// PnLValue returns the recorded PnL, or 0 when none has been recorded.
func (t *Trade) PnLValue() float64 {
	if t.PnL == nil {
		return 0
	}
	return *t.PnL
}

// ActualRRValue returns the realized R-multiple, or 0 when none is recorded.
func (t *Trade) ActualRRValue() float64 {
	if t.ActualRR == nil {
		return 0
	}
	return *t.ActualRR
}

// Float64Ptr returns a pointer to v. Convenience for optional trade fields.
func Float64Ptr(v float64) *float64 { return &v }

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }
