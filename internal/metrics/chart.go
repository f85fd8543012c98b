package metrics

import (
	"sort"
	"time"

	"fxjournal/internal/models"
)

// Timeframe selects the chart bucketing mode.
type Timeframe string

const (
	TimeframeDaily   Timeframe = "Daily"
	TimeframeWeekly  Timeframe = "Weekly"
	TimeframeMonthly Timeframe = "Monthly"
)

// weeklyPointCap bounds the Weekly chart to the most recent points.
const weeklyPointCap = 50

// ChartPoint is one plotted point of a cumulative PnL chart.
type ChartPoint struct {
	Label string  `json:"name"`
	PnL   float64 `json:"pnl"`
}

// BucketByTimeframe turns closed trades into cumulative-PnL chart points.
//
// Daily covers exactly the last 7 calendar days ending today, one bucket per
// day even when empty. Weekly plots one point per closed trade in date order,
// capped at the most recent 50; no calendar-week grouping happens despite the
// name (inherited behavior). Monthly groups by calendar month in first-seen
// order.
func BucketByTimeframe(trades []models.Trade, timeframe Timeframe) []ChartPoint {
	return bucketAt(trades, timeframe, time.Now())
}

func bucketAt(trades []models.Trade, timeframe Timeframe, now time.Time) []ChartPoint {
	closed := ClosedLike(trades)

	switch timeframe {
	case TimeframeDaily:
		return bucketDaily(closed, now)
	case TimeframeMonthly:
		return bucketMonthly(closed)
	default:
		return bucketPerTrade(closed)
	}
}

func bucketDaily(closed []models.Trade, now time.Time) []ChartPoint {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	points := make([]ChartPoint, 0, 7)
	var running float64
	for offset := -6; offset <= 0; offset++ {
		day := today.AddDate(0, 0, offset)
		next := day.AddDate(0, 0, 1)
		for i := range closed {
			ts := time.UnixMilli(closed[i].Date).In(now.Location())
			if !ts.Before(day) && ts.Before(next) {
				running += closed[i].PnLValue()
			}
		}
		points = append(points, ChartPoint{Label: day.Weekday().String()[:3], PnL: round2(running)})
	}
	return points
}

func bucketPerTrade(closed []models.Trade) []ChartPoint {
	sort.SliceStable(closed, func(i, j int) bool { return closed[i].Date < closed[j].Date })

	points := make([]ChartPoint, 0, len(closed))
	var running float64
	for i := range closed {
		running += closed[i].PnLValue()
		label := time.UnixMilli(closed[i].Date).Format("Jan 2")
		points = append(points, ChartPoint{Label: label, PnL: round2(running)})
	}
	if len(points) > weeklyPointCap {
		points = points[len(points)-weeklyPointCap:]
	}
	return points
}

func bucketMonthly(closed []models.Trade) []ChartPoint {
	totals := make(map[string]float64)
	order := make([]string, 0)
	for i := range closed {
		key := time.UnixMilli(closed[i].Date).Format("Jan 2006")
		if _, seen := totals[key]; !seen {
			order = append(order, key)
		}
		totals[key] += closed[i].PnLValue()
	}

	points := make([]ChartPoint, 0, len(order))
	var running float64
	for _, key := range order {
		running += totals[key]
		points = append(points, ChartPoint{Label: key, PnL: round2(running)})
	}
	return points
}
