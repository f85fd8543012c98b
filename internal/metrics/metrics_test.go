package metrics

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fxjournal/internal/models"
)

func closedTrade(date int64, pnl float64, outcome models.Outcome) models.Trade {
	return models.Trade{
		UserID:     "u1",
		Date:       date,
		Instrument: "EURUSD",
		Direction:  models.Long,
		Status:     models.StatusClosed,
		PnL:        models.Float64Ptr(pnl),
		Outcome:    outcome,
	}
}

func TestComputeRR(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		entry, sl, tp    float64
		want             float64
	}{
		{"reward three times risk", 1.0000, 0.9980, 1.0060, 3.0},
		{"short setup", 1.2000, 1.2050, 1.1850, 3.0},
		{"plan scenario", 1.2000, 1.1950, 1.2150, 3.0},
		{"zero risk distance", 1.5, 1.5, 2.0, 0},
		{"missing entry", 0, 1.0, 1.2, 0},
		{"missing stop", 1.0, 0, 1.2, 0},
		{"missing target", 1.0, 0.9, 0, 0},
		{"rounded to two decimals", 1.0, 0.9970, 1.0100, 3.33},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ComputeRR(tt.entry, tt.sl, tt.tp))
		})
	}
}

func TestComputeRRNaNInput(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 0.0, ComputeRR(math.NaN(), 0.9980, 1.0060))
}

func TestComputeTimeToEntry(t *testing.T) {
	t.Parallel()

	zone := int64(1_700_000_000_000)
	entry := zone + 93*60*1000 + 30*1000 // 93.5 minutes later

	got := ComputeTimeToEntry(&zone, &entry)
	if assert.NotNil(t, got) {
		assert.Equal(t, 93.5, *got)
	}

	assert.Nil(t, ComputeTimeToEntry(nil, &entry))
	assert.Nil(t, ComputeTimeToEntry(&zone, nil))
	assert.Nil(t, ComputeTimeToEntry(nil, nil))
}

func TestComputeSummaryEmpty(t *testing.T) {
	t.Parallel()

	sum := ComputeSummary(nil)
	assert.Zero(t, sum.TotalTrades)
	assert.Zero(t, sum.WinRate)
	assert.Zero(t, sum.MaxDrawdown)
	assert.Empty(t, sum.EquityCurve)

	// Planned trades without outcomes do not count either.
	sum = ComputeSummary([]models.Trade{{Status: models.StatusPlanned, Date: 1}})
	assert.Zero(t, sum.TotalTrades)
}

func TestComputeSummary(t *testing.T) {
	t.Parallel()

	trades := []models.Trade{
		closedTrade(3, -50, models.OutcomeLoss),
		closedTrade(1, 100, models.OutcomeWin),
		closedTrade(2, 200, models.OutcomeWin),
		closedTrade(4, 0, models.OutcomeBE),
	}

	sum := ComputeSummary(trades)
	assert.Equal(t, 4, sum.TotalTrades)
	assert.Equal(t, 2, sum.Wins)
	assert.Equal(t, 1, sum.Losses)
	assert.Equal(t, 50.0, sum.WinRate)
	assert.Equal(t, 300.0, sum.GrossProfit)
	assert.Equal(t, 50.0, sum.GrossLoss)
	assert.Equal(t, 6.0, sum.ProfitFactor)
	assert.Equal(t, 250.0, sum.NetPnL)
	assert.Equal(t, 150.0, sum.AvgWin)
	assert.Equal(t, 50.0, sum.AvgLoss)

	// Equity ran 100 -> 300 -> 250 -> 250; worst peak-to-trough is 50.
	assert.Equal(t, 50.0, sum.MaxDrawdown)
	if assert.Len(t, sum.EquityCurve, 4) {
		assert.Equal(t, 100.0, sum.EquityCurve[0].Equity)
		assert.Equal(t, 250.0, sum.EquityCurve[3].Equity)
	}
}

func TestComputeSummaryProfitFactorNoLosses(t *testing.T) {
	t.Parallel()

	trades := []models.Trade{
		closedTrade(1, 120, models.OutcomeWin),
		closedTrade(2, 80, models.OutcomeWin),
	}

	// With zero gross loss the raw gross profit is reported, not a ratio.
	sum := ComputeSummary(trades)
	assert.Equal(t, 200.0, sum.ProfitFactor)
}

func TestComputeSummaryCountsOutcomeWithoutClosedStatus(t *testing.T) {
	t.Parallel()

	trades := []models.Trade{{
		Date:    1,
		Status:  models.StatusPlanned,
		Outcome: models.OutcomeWin,
		PnL:     models.Float64Ptr(75),
	}}

	sum := ComputeSummary(trades)
	assert.Equal(t, 1, sum.TotalTrades)
	assert.Equal(t, 75.0, sum.NetPnL)
}

func TestBucketDaily(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 14, 15, 0, 0, 0, time.UTC) // a Friday
	trades := []models.Trade{
		closedTrade(now.AddDate(0, 0, -2).UnixMilli(), 40, models.OutcomeWin),
		closedTrade(now.AddDate(0, 0, -1).UnixMilli(), -10, models.OutcomeLoss),
		closedTrade(now.AddDate(0, 0, -30).UnixMilli(), 999, models.OutcomeWin), // outside window
	}

	points := bucketAt(trades, TimeframeDaily, now)
	if assert.Len(t, points, 7) {
		assert.Equal(t, "Sat", points[0].Label)
		assert.Equal(t, "Fri", points[6].Label)
		assert.Equal(t, 0.0, points[3].PnL)  // Tuesday, nothing yet
		assert.Equal(t, 40.0, points[4].PnL) // Wednesday win lands
		assert.Equal(t, 30.0, points[5].PnL) // Thursday loss cuts into it
		assert.Equal(t, 30.0, points[6].PnL)
	}
}

func TestBucketWeeklyIsPerTradeCapped(t *testing.T) {
	t.Parallel()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := make([]models.Trade, 0, 60)
	for i := 0; i < 60; i++ {
		trades = append(trades, closedTrade(base.AddDate(0, 0, i).UnixMilli(), 1, models.OutcomeWin))
	}

	points := bucketAt(trades, TimeframeWeekly, base.AddDate(0, 0, 90))
	if assert.Len(t, points, weeklyPointCap) {
		// Cumulative totals survive the cap: the first kept point already
		// includes the 10 dropped trades.
		assert.Equal(t, 11.0, points[0].PnL)
		assert.Equal(t, 60.0, points[len(points)-1].PnL)
	}
}

func TestBucketMonthly(t *testing.T) {
	t.Parallel()

	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC).UnixMilli()
	feb := time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC).UnixMilli()
	trades := []models.Trade{
		closedTrade(jan, 100, models.OutcomeWin),
		closedTrade(feb, -30, models.OutcomeLoss),
		closedTrade(jan+86400000, 50, models.OutcomeWin),
	}

	points := bucketAt(trades, TimeframeMonthly, time.Now())
	if assert.Len(t, points, 2) {
		assert.Equal(t, "Jan 2025", points[0].Label)
		assert.Equal(t, 150.0, points[0].PnL)
		assert.Equal(t, "Feb 2025", points[1].Label)
		assert.Equal(t, 120.0, points[1].PnL)
	}
}
