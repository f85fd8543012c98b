// Package metrics computes derived trade statistics. All functions are pure:
// they operate on in-memory trade slices and perform no I/O.
package metrics

import (
	"math"
	"sort"

	"fxjournal/internal/models"
)

// Summary aggregates performance statistics over closed trades.
type Summary struct {
	TotalTrades  int           `json:"totalTrades"`
	Wins         int           `json:"wins"`
	Losses       int           `json:"losses"`
	WinRate      float64       `json:"winRate"`
	GrossProfit  float64       `json:"grossProfit"`
	GrossLoss    float64       `json:"grossLoss"`
	ProfitFactor float64       `json:"profitFactor"`
	NetPnL       float64       `json:"netPnL"`
	AvgWin       float64       `json:"avgWin"`
	AvgLoss      float64       `json:"avgLoss"`
	MaxDrawdown  float64       `json:"maxDrawdown"`
	EquityCurve  []EquityPoint `json:"equityCurve"`
}

// EquityPoint is one step of the cumulative equity curve.
type EquityPoint struct {
	Date   int64   `json:"date"`
	Equity float64 `json:"equity"`
}

// ComputeRR returns the planned risk/reward multiple for the given price
// levels, rounded to two decimals. Returns 0 when any input is absent (zero
// or NaN) or the risk distance is zero.
func ComputeRR(entry, stopLoss, takeProfit float64) float64 {
	if !present(entry) || !present(stopLoss) || !present(takeProfit) {
		return 0
	}
	risk := math.Abs(entry - stopLoss)
	if risk == 0 {
		return 0
	}
	return round2(math.Abs(takeProfit-entry) / risk)
}

// ComputeTimeToEntry returns the minutes between zone creation and entry,
// rounded to one decimal. Nil unless both inputs are present.
func ComputeTimeToEntry(zoneCreationTime, entryTime *int64) *float64 {
	if zoneCreationTime == nil || entryTime == nil {
		return nil
	}
	minutes := round1(float64(*entryTime-*zoneCreationTime) / 60000.0)
	return &minutes
}

// ComputeSummary derives the performance summary from the closed-like subset
// of trades (status Closed, or any outcome recorded). Returns a zeroed
// summary when no trade qualifies.
func ComputeSummary(trades []models.Trade) Summary {
	closed := ClosedLike(trades)
	if len(closed) == 0 {
		return Summary{EquityCurve: []EquityPoint{}}
	}

	var wins, losses int
	var grossProfit, grossLoss float64
	for i := range closed {
		switch closed[i].Outcome {
		case models.OutcomeWin:
			wins++
		case models.OutcomeLoss:
			losses++
		}
		pnl := closed[i].PnLValue()
		if pnl > 0 {
			grossProfit += pnl
		} else {
			grossLoss += -pnl
		}
	}

	// When grossLoss is zero the raw gross profit is reported instead of a
	// ratio. Inherited behavior: consumers depend on the numeric value.
	profitFactor := grossProfit
	if grossLoss != 0 {
		profitFactor = round2(grossProfit / grossLoss)
	}

	sort.SliceStable(closed, func(i, j int) bool { return closed[i].Date < closed[j].Date })

	var peak, maxDrawdown, equity float64
	curve := make([]EquityPoint, 0, len(closed))
	for i := range closed {
		equity += closed[i].PnLValue()
		if equity > peak {
			peak = equity
		}
		if dd := peak - equity; dd > maxDrawdown {
			maxDrawdown = dd
		}
		curve = append(curve, EquityPoint{Date: closed[i].Date, Equity: equity})
	}

	return Summary{
		TotalTrades:  len(closed),
		Wins:         wins,
		Losses:       losses,
		WinRate:      round1(float64(wins) / float64(len(closed)) * 100),
		GrossProfit:  grossProfit,
		GrossLoss:    grossLoss,
		ProfitFactor: profitFactor,
		NetPnL:       round2(grossProfit - grossLoss),
		AvgWin:       round2(grossProfit / float64(max(wins, 1))),
		AvgLoss:      round2(grossLoss / float64(max(losses, 1))),
		MaxDrawdown:  round2(maxDrawdown),
		EquityCurve:  curve,
	}
}

// ClosedLike filters trades to those counting toward analytics. The input
// slice is not modified.
func ClosedLike(trades []models.Trade) []models.Trade {
	out := make([]models.Trade, 0, len(trades))
	for i := range trades {
		if trades[i].ClosedLike() {
			out = append(out, trades[i])
		}
	}
	return out
}

func present(v float64) bool {
	return v != 0 && !math.IsNaN(v)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
