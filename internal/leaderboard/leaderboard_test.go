package leaderboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxjournal/internal/models"
	"fxjournal/internal/store"
)

// stubStore serves canned closed trades and profiles.
type stubStore struct {
	store.TradeStore
	closed   []models.Trade
	profiles map[string]models.UserProfile
	gotLimit int
}

func (s *stubStore) RecentClosedTrades(_ context.Context, limit int) ([]models.Trade, error) {
	s.gotLimit = limit
	return s.closed, nil
}

func (s *stubStore) GetProfiles(_ context.Context, uids []string) (map[string]models.UserProfile, error) {
	out := map[string]models.UserProfile{}
	for _, uid := range uids {
		if p, ok := s.profiles[uid]; ok {
			out[uid] = p
		}
	}
	return out, nil
}

func closedTrade(userID string, outcome models.Outcome, actualRR float64) models.Trade {
	return models.Trade{
		UserID:   userID,
		Status:   models.StatusClosed,
		Outcome:  outcome,
		ActualRR: models.Float64Ptr(actualRR),
	}
}

func TestBuildRanksByTotalR(t *testing.T) {
	s := &stubStore{
		closed: []models.Trade{
			// alice: 3 trades, 2 wins, totalR 4.5
			closedTrade("alice", models.OutcomeWin, 3.0),
			closedTrade("alice", models.OutcomeWin, 2.5),
			closedTrade("alice", models.OutcomeLoss, -1.0),
			// bob: 3 trades, 1 win, totalR 6.0
			closedTrade("bob", models.OutcomeWin, 8.0),
			closedTrade("bob", models.OutcomeLoss, -1.0),
			closedTrade("bob", models.OutcomeLoss, -1.0),
		},
		profiles: map[string]models.UserProfile{
			"alice": {UID: "alice", DisplayName: "Alice", PhotoURL: "https://img/a.png"},
			"bob":   {UID: "bob", DisplayName: "Bob"},
		},
	}

	entries, err := NewAggregator(s, 3, 500).Build(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 500, s.gotLimit)

	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "Bob", entries[0].DisplayName)
	assert.Equal(t, 6.0, entries[0].TotalR)
	assert.InDelta(t, 33.3, entries[0].WinRate, 0.001)

	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "Alice", entries[1].DisplayName)
	assert.Equal(t, 4.5, entries[1].TotalR)
	assert.InDelta(t, 66.7, entries[1].WinRate, 0.001)
}

func TestBuildExcludesBelowMinimum(t *testing.T) {
	s := &stubStore{
		closed: []models.Trade{
			closedTrade("alice", models.OutcomeWin, 2.0),
			closedTrade("alice", models.OutcomeWin, 2.0),
			closedTrade("alice", models.OutcomeWin, 2.0),
			// carol closed only two trades, below the floor
			closedTrade("carol", models.OutcomeWin, 10.0),
			closedTrade("carol", models.OutcomeWin, 10.0),
		},
		profiles: map[string]models.UserProfile{
			"alice": {UID: "alice", DisplayName: "Alice"},
			"carol": {UID: "carol", DisplayName: "Carol"},
		},
	}

	entries, err := NewAggregator(s, 3, 500).Build(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Alice", entries[0].DisplayName)
}

func TestBuildMissingProfileGetsPlaceholder(t *testing.T) {
	s := &stubStore{
		closed: []models.Trade{
			closedTrade("ghost", models.OutcomeWin, 1.0),
			closedTrade("ghost", models.OutcomeLoss, -1.0),
			closedTrade("ghost", models.OutcomeWin, 1.5),
		},
		profiles: map[string]models.UserProfile{},
	}

	entries, err := NewAggregator(s, 3, 500).Build(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, placeholderName, entries[0].DisplayName)
	assert.Equal(t, 1.5, entries[0].TotalR)
}
