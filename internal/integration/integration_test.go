// Package integration exercises the full stack: service, store, promoter
// and leaderboard wired together the way the server wires them.
package integration

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxjournal/internal/assets"
	"fxjournal/internal/journal"
	"fxjournal/internal/leaderboard"
	"fxjournal/internal/metrics"
	"fxjournal/internal/models"
	"fxjournal/internal/store"
)

// memBlob is an in-memory blob store shared by the whole scenario.
type memBlob struct {
	objects map[string]struct{}
}

func (m *memBlob) PresignPut(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://bucket.example/presigned/" + key, nil
}

func (m *memBlob) Copy(_ context.Context, srcKey, dstKey string) error {
	if _, ok := m.objects[srcKey]; !ok {
		return errors.New("no such object: " + srcKey)
	}
	m.objects[dstKey] = struct{}{}
	return nil
}

func (m *memBlob) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

func (m *memBlob) BaseURL() string { return "https://img.example.com" }

type env struct {
	store   *store.SQLiteStore
	blob    *memBlob
	service *journal.Service
	board   *leaderboard.Aggregator
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	blob := &memBlob{objects: map[string]struct{}{}}
	promoter := assets.NewPromoter(blob, zerolog.Nop())
	return &env{
		store:   st,
		blob:    blob,
		service: journal.NewService(st, promoter, zerolog.Nop()),
		board:   leaderboard.NewAggregator(st, 3, 500),
	}
}

func plan(date int64, instrument string) journal.PlanInput {
	return journal.PlanInput{
		Date:         date,
		Instrument:   instrument,
		Direction:    models.Long,
		Strategy:     models.StrategySupplyDemand,
		Setup:        models.SupplyDemandSetup("demand", "engulfing"),
		PlannedEntry: 1.2000,
		PlannedSL:    1.1950,
		PlannedTP:    1.2150,
		RiskAmount:   50,
		PositionSize: 1.0,
		EntryReason:  "retest",
	}
}

func TestFullTradeLifecycleWithImages(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	actor := journal.Principal{UID: "u1", Role: models.RoleUser}

	// Staged upload, then a plan referencing it.
	e.blob.objects["temp/before.png"] = struct{}{}
	in := plan(1700000000000, "EURUSD")
	in.BeforeImageURL = "https://img.example.com/temp/before.png"

	id, err := e.service.CreatePlan(ctx, actor, "", in)
	require.NoError(t, err)

	// Promotion happened before the record write.
	assert.Contains(t, e.blob.objects, "setups/before.png")
	assert.NotContains(t, e.blob.objects, "temp/before.png")

	trade, err := e.service.GetTrade(ctx, actor, "", id)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/setups/before.png", trade.BeforeImageURL)
	assert.Equal(t, 3.0, trade.PlannedRR)

	// Close with an after-image upload.
	e.blob.objects["temp/after.png"] = struct{}{}
	err = e.service.CloseTrade(ctx, actor, "", id, journal.CloseInput{
		ExitPrice:     1.2150,
		PnL:           150,
		Outcome:       models.OutcomeWin,
		AfterImageURL: "https://img.example.com/temp/after.png",
	})
	require.NoError(t, err)
	assert.Contains(t, e.blob.objects, "setups/after.png")

	result, err := e.service.ListTrades(ctx, actor, "")
	require.NoError(t, err)
	require.Len(t, result.Trades, 1)
	assert.Equal(t, models.StatusClosed, result.Trades[0].Status)

	summary := metrics.ComputeSummary(result.Trades)
	assert.Equal(t, 1, summary.TotalTrades)
	assert.Equal(t, 100.0, summary.WinRate)
	assert.Equal(t, 150.0, summary.NetPnL)
}

func TestEditReplacingImageCleansUpOldOne(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	actor := journal.Principal{UID: "u1", Role: models.RoleUser}

	e.blob.objects["temp/v1.png"] = struct{}{}
	in := plan(1700000000000, "EURUSD")
	in.BeforeImageURL = "https://img.example.com/temp/v1.png"
	id, err := e.service.CreatePlan(ctx, actor, "", in)
	require.NoError(t, err)
	require.Contains(t, e.blob.objects, "setups/v1.png")

	e.blob.objects["temp/v2.png"] = struct{}{}
	newURL := "https://img.example.com/temp/v2.png"
	err = e.service.EditPlan(ctx, actor, "", id, journal.EditInput{BeforeImageURL: &newURL})
	require.NoError(t, err)

	trade, err := e.service.GetTrade(ctx, actor, "", id)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/setups/v2.png", trade.BeforeImageURL)

	// Superseded permanent image removed after the write.
	assert.NotContains(t, e.blob.objects, "setups/v1.png")
	assert.Contains(t, e.blob.objects, "setups/v2.png")
}

func TestLeaderboardAcrossUsers(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	users := []struct {
		uid    string
		trades int
		pnl    float64
		rr     float64
	}{
		{"alice", 3, 100, 2.0},
		{"bob", 4, 50, 1.0},
		{"carol", 2, 500, 10.0}, // too few trades to rank
	}
	for _, u := range users {
		actor := journal.Principal{UID: u.uid, Role: models.RoleUser}
		require.NoError(t, e.service.UpsertProfile(ctx, &models.UserProfile{UID: u.uid, DisplayName: u.uid}))
		for i := 0; i < u.trades; i++ {
			id, err := e.service.CreatePlan(ctx, actor, "", plan(1700000000000+int64(i)*3600000, "EURUSD"))
			require.NoError(t, err)
			require.NoError(t, e.service.CloseTrade(ctx, actor, "", id, journal.CloseInput{
				ExitPrice: 1.2150,
				PnL:       u.pnl,
				ActualRR:  models.Float64Ptr(u.rr),
				Outcome:   models.OutcomeWin,
			}))
		}
	}

	entries, err := e.board.Build(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].UserID)
	assert.Equal(t, 6.0, entries[0].TotalR)
	assert.Equal(t, "bob", entries[1].UserID)
	assert.Equal(t, 4.0, entries[1].TotalR)
}

func TestBackupRoundTripAcrossStores(t *testing.T) {
	// Export from one database, import into a fresh one.
	src := newEnv(t)
	dst := newEnv(t)
	ctx := context.Background()
	actor := journal.Principal{UID: "u1", Role: models.RoleUser}

	for i := 0; i < 3; i++ {
		_, err := src.service.CreatePlan(ctx, actor, "", plan(1700000000000+int64(i)*86400000, "EURUSD"))
		require.NoError(t, err)
	}
	backup, err := src.service.Export(ctx, actor, "")
	require.NoError(t, err)

	result, err := dst.service.Import(ctx, actor, "", backup)
	require.NoError(t, err)
	// Exported records carry ids, so they arrive as merge-writes.
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 3, result.Updated)
	assert.Equal(t, 0, result.Errors)

	list, err := dst.service.ListTrades(ctx, actor, "")
	require.NoError(t, err)
	assert.Len(t, list.Trades, 3)
}
