// Package leaderboard aggregates recent closed trades across all users into
// a ranked community scoreboard.
package leaderboard

import (
	"context"
	"math"
	"sort"

	"fxjournal/internal/models"
	"fxjournal/internal/store"
)

// Entry is one ranked row of the leaderboard.
type Entry struct {
	Rank        int     `json:"rank"`
	UserID      string  `json:"userId"`
	DisplayName string  `json:"displayName"`
	PhotoURL    string  `json:"photoURL,omitempty"`
	TotalTrades int     `json:"totalTrades"`
	WinRate     float64 `json:"winRate"` // percent, one decimal
	TotalPnL    float64 `json:"totalPnL"`
	TotalR      float64 `json:"totalR"` // summed R-multiples, two decimals
}

// placeholderName stands in for users who closed trades before completing a
// profile.
const placeholderName = "Anonymous Trader"

// Aggregator builds the leaderboard from the store.
type Aggregator struct {
	store       store.TradeStore
	minTrades   int
	recentLimit int
}

// NewAggregator builds an aggregator. minTrades excludes users with too few
// closed trades to rank meaningfully; recentLimit bounds the scan.
func NewAggregator(s store.TradeStore, minTrades, recentLimit int) *Aggregator {
	return &Aggregator{store: s, minTrades: minTrades, recentLimit: recentLimit}
}

// Build returns entries ranked by total R descending. Users below the
// minimum trade count are excluded entirely.
func (a *Aggregator) Build(ctx context.Context) ([]Entry, error) {
	trades, err := a.store.RecentClosedTrades(ctx, a.recentLimit)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		trades   int
		wins     int
		totalPnL float64
		totalR   float64
	}
	buckets := map[string]*bucket{}
	for i := range trades {
		t := &trades[i]
		b := buckets[t.UserID]
		if b == nil {
			b = &bucket{}
			buckets[t.UserID] = b
		}
		b.trades++
		if t.Outcome == models.OutcomeWin {
			b.wins++
		}
		b.totalPnL += t.PnLValue()
		b.totalR += t.ActualRRValue()
	}

	uids := make([]string, 0, len(buckets))
	for uid, b := range buckets {
		if b.trades >= a.minTrades {
			uids = append(uids, uid)
		}
	}

	profiles, err := a.store.GetProfiles(ctx, uids)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(uids))
	for _, uid := range uids {
		b := buckets[uid]
		name := placeholderName
		photo := ""
		if p, ok := profiles[uid]; ok {
			if p.DisplayName != "" {
				name = p.DisplayName
			}
			photo = p.PhotoURL
		}
		entries = append(entries, Entry{
			UserID:      uid,
			DisplayName: name,
			PhotoURL:    photo,
			TotalTrades: b.trades,
			WinRate:     round1(float64(b.wins) / float64(b.trades) * 100),
			TotalPnL:    round2(b.totalPnL),
			TotalR:      round2(b.totalR),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalR > entries[j].TotalR
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
