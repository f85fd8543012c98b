package metrics

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"fxjournal/internal/models"
)

// Property: the equity-curve drawdown scan never reports a negative value,
// and reports exactly zero when every PnL in date order is non-negative.
func TestProperty_MaxDrawdownNonNegative(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	pnlsGen := gen.SliceOf(gen.Float64Range(-1000, 1000))

	properties.Property("max drawdown is never negative", prop.ForAll(
		func(pnls []float64) bool {
			sum := ComputeSummary(tradesFromPnLs(pnls))
			return sum.MaxDrawdown >= 0
		},
		pnlsGen,
	))

	properties.Property("max drawdown is zero without losing trades", prop.ForAll(
		func(pnls []float64) bool {
			for i := range pnls {
				if pnls[i] < 0 {
					pnls[i] = -pnls[i]
				}
			}
			sum := ComputeSummary(tradesFromPnLs(pnls))
			return sum.MaxDrawdown == 0
		},
		pnlsGen,
	))

	properties.TestingRun(t)
}

func tradesFromPnLs(pnls []float64) []models.Trade {
	trades := make([]models.Trade, 0, len(pnls))
	for i, pnl := range pnls {
		outcome := models.OutcomeWin
		if pnl < 0 {
			outcome = models.OutcomeLoss
		}
		trades = append(trades, closedTrade(int64(i+1)*86400000, pnl, outcome))
	}
	return trades
}
