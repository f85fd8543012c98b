// Package store provides trade and profile persistence. Each trade lives in
// a per-user partition; a bounded cross-partition query feeds the
// leaderboard. Implementations are injected into services so tests can run
// against the embedded backend.
package store

import (
	"context"

	"fxjournal/internal/models"
)

// Patch is a partial-field merge for a trade update. Keys are the wire field
// names (camelCase); all patched fields land in a single document write, so
// either all of them apply or none do.
type Patch map[string]interface{}

// BulkResult reports the outcome of a bulk upsert. Records missing required
// identity fields are skipped silently and appear in no counter.
type BulkResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Errors  int `json:"errors"`
}

// TradeStore is the persistence boundary for trades and user profiles.
type TradeStore interface {
	// CreateTrade assigns a fresh id and creation timestamp, persists the
	// trade in its owner's partition and returns the id.
	CreateTrade(ctx context.Context, trade *models.Trade) (string, error)

	// GetTrade returns the trade, or nil (and no error) when absent.
	GetTrade(ctx context.Context, userID, id string) (*models.Trade, error)

	// ListTrades returns the owner's trades ordered by date descending. An
	// empty slice, never nil, when none exist.
	ListTrades(ctx context.Context, userID string) ([]models.Trade, error)

	// UpdateTrade merges the patch into an existing trade. Returns a
	// NotFoundError when the id does not exist in the owner's partition.
	UpdateTrade(ctx context.Context, userID, id string, patch Patch) error

	// BulkUpsertTrades restores a batch into the owner's partition. Items
	// carrying an id are merge-written at that id (counted as updated),
	// items without one are inserted fresh (counted as created). Per-item
	// failures increment Errors and do not abort the batch.
	BulkUpsertTrades(ctx context.Context, userID string, trades []models.Trade) (BulkResult, error)

	// RecentClosedTrades returns the most recent closed trades across all
	// user partitions, date descending, bounded by limit.
	RecentClosedTrades(ctx context.Context, limit int) ([]models.Trade, error)

	// UpsertProfile creates the profile on first sign-in and refreshes
	// profile fields and last-login afterwards. Role is set once and never
	// overwritten.
	UpsertProfile(ctx context.Context, profile *models.UserProfile) error

	// GetProfile returns the profile, or nil when absent.
	GetProfile(ctx context.Context, uid string) (*models.UserProfile, error)

	// GetProfiles returns the profiles for the given uids, keyed by uid.
	// Missing uids are simply absent from the map.
	GetProfiles(ctx context.Context, uids []string) (map[string]models.UserProfile, error)

	Close() error
}
