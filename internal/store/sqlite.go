package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "fxjournal/internal/errors"
	"fxjournal/internal/models"
)

// SQLiteStore implements TradeStore on an embedded SQLite database. Rows hold
// the full wire-format JSON document plus extracted columns for the fields
// queries order and filter on; merge patches are applied to the document in
// Go. Used for local single-user mode and as the test backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (and initializes) a SQLite-backed store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, apperrors.NewStoreError("open", dbPath, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, apperrors.NewStoreError("initSchema", dbPath, err)
	}
	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Trade documents, one row per trade, partitioned by user_id
	CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		date INTEGER NOT NULL,
		status TEXT NOT NULL,
		doc TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trades_user_date ON trades(user_id, date DESC);
	CREATE INDEX IF NOT EXISTS idx_trades_status_date ON trades(status, date DESC);

	-- User profiles
	CREATE TABLE IF NOT EXISTS users (
		uid TEXT PRIMARY KEY,
		email TEXT,
		display_name TEXT,
		photo_url TEXT,
		role TEXT NOT NULL DEFAULT 'user',
		created_at INTEGER NOT NULL,
		last_login INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateTrade(ctx context.Context, trade *models.Trade) (string, error) {
	trade.ID = NewID()
	trade.CreatedAt = time.Now().UnixMilli()

	doc, err := json.Marshal(trade)
	if err != nil {
		return "", apperrors.NewStoreError("create", trade.ID, err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO trades (id, user_id, date, status, doc, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		trade.ID, trade.UserID, trade.Date, string(trade.Status), string(doc), trade.CreatedAt,
	)
	if err != nil {
		return "", apperrors.NewStoreError("create", trade.ID, err)
	}
	return trade.ID, nil
}

func (s *SQLiteStore) GetTrade(ctx context.Context, userID, id string) (*models.Trade, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM trades WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get", id, err)
	}

	var trade models.Trade
	if err := json.Unmarshal([]byte(doc), &trade); err != nil {
		return nil, apperrors.NewStoreError("get", id, err)
	}
	return &trade, nil
}

func (s *SQLiteStore) ListTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM trades WHERE user_id = ? ORDER BY date DESC`, userID,
	)
	if err != nil {
		return nil, apperrors.NewStoreError("list", userID, err)
	}
	defer rows.Close()

	return scanTrades(rows, userID)
}

func (s *SQLiteStore) UpdateTrade(ctx context.Context, userID, id string, patch Patch) error {
	if len(patch) == 0 {
		return nil
	}
	delete(patch, "userId")
	delete(patch, "id")

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewStoreError("update", id, err)
	}
	defer tx.Rollback()

	var doc string
	err = tx.QueryRowContext(ctx,
		`SELECT doc FROM trades WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&doc)
	if err == sql.ErrNoRows {
		return apperrors.NewNotFoundError("trade", id)
	}
	if err != nil {
		return apperrors.NewStoreError("update", id, err)
	}

	merged, date, status, err := mergeDocument(doc, patch)
	if err != nil {
		return apperrors.NewStoreError("update", id, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE trades SET doc = ?, date = ?, status = ? WHERE id = ? AND user_id = ?`,
		merged, date, status, id, userID,
	); err != nil {
		return apperrors.NewStoreError("update", id, err)
	}
	if err := tx.Commit(); err != nil {
		return apperrors.NewStoreError("update", id, err)
	}
	return nil
}

func (s *SQLiteStore) BulkUpsertTrades(ctx context.Context, userID string, trades []models.Trade) (BulkResult, error) {
	var result BulkResult
	for i := range trades {
		t := trades[i]
		if t.Date == 0 || t.Instrument == "" {
			continue
		}
		t.UserID = userID

		if t.ID == "" {
			t.ID = NewID()
			if t.CreatedAt == 0 {
				t.CreatedAt = time.Now().UnixMilli()
			}
			doc, err := json.Marshal(&t)
			if err != nil {
				result.Errors++
				continue
			}
			if _, err := s.db.ExecContext(ctx,
				`INSERT INTO trades (id, user_id, date, status, doc, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
				t.ID, t.UserID, t.Date, string(t.Status), string(doc), t.CreatedAt,
			); err != nil {
				result.Errors++
				continue
			}
			result.Created++
			continue
		}

		if err := s.mergeWrite(ctx, userID, &t); err != nil {
			result.Errors++
			continue
		}
		result.Updated++
	}
	return result, nil
}

// mergeWrite writes a full trade document at its id, merging over any
// existing row and inserting otherwise.
func (s *SQLiteStore) mergeWrite(ctx context.Context, userID string, t *models.Trade) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	incoming, err := json.Marshal(t)
	if err != nil {
		return err
	}

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT doc FROM trades WHERE id = ? AND user_id = ?`, t.ID, userID,
	).Scan(&existing)
	switch {
	case err == sql.ErrNoRows:
		createdAt := t.CreatedAt
		if createdAt == 0 {
			createdAt = time.Now().UnixMilli()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trades (id, user_id, date, status, doc, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			t.ID, userID, t.Date, string(t.Status), string(incoming), createdAt,
		); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		var patch Patch
		if err := json.Unmarshal(incoming, &patch); err != nil {
			return err
		}
		merged, date, status, err := mergeDocument(existing, patch)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE trades SET doc = ?, date = ?, status = ? WHERE id = ? AND user_id = ?`,
			merged, date, status, t.ID, userID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) RecentClosedTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc FROM trades WHERE status = ? ORDER BY date DESC LIMIT ?`,
		string(models.StatusClosed), limit,
	)
	if err != nil {
		return nil, apperrors.NewStoreError("recentClosed", "", err)
	}
	defer rows.Close()

	return scanTrades(rows, "")
}

func (s *SQLiteStore) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	now := time.Now().UnixMilli()
	// Role is set on first insert only; later sign-ins refresh the rest.
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (uid, email, display_name, photo_url, role, created_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			photo_url = excluded.photo_url,
			last_login = excluded.last_login`,
		profile.UID, profile.Email, profile.DisplayName, profile.PhotoURL,
		string(models.RoleUser), now, now,
	)
	if err != nil {
		return apperrors.NewStoreError("upsertProfile", profile.UID, err)
	}
	return nil
}

func (s *SQLiteStore) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	var p models.UserProfile
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT uid, email, display_name, photo_url, role, created_at, last_login FROM users WHERE uid = ?`,
		uid,
	).Scan(&p.UID, &p.Email, &p.DisplayName, &p.PhotoURL, &role, &p.CreatedAt, &p.LastLogin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError("getProfile", uid, err)
	}
	p.Role = models.Role(role)
	return &p, nil
}

func (s *SQLiteStore) GetProfiles(ctx context.Context, uids []string) (map[string]models.UserProfile, error) {
	profiles := make(map[string]models.UserProfile, len(uids))
	for _, uid := range uids {
		p, err := s.GetProfile(ctx, uid)
		if err != nil {
			return nil, err
		}
		if p != nil {
			profiles[uid] = *p
		}
	}
	return profiles, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// mergeDocument applies a patch onto a stored JSON document and returns the
// merged document plus the re-extracted queryable columns.
func mergeDocument(doc string, patch Patch) (merged string, date int64, status string, err error) {
	var fields map[string]interface{}
	if err = json.Unmarshal([]byte(doc), &fields); err != nil {
		return "", 0, "", err
	}
	for k, v := range patch {
		fields[k] = v
	}

	out, err := json.Marshal(fields)
	if err != nil {
		return "", 0, "", err
	}

	var t models.Trade
	if err = json.Unmarshal(out, &t); err != nil {
		return "", 0, "", err
	}
	return string(out), t.Date, string(t.Status), nil
}

func scanTrades(rows *sql.Rows, key string) ([]models.Trade, error) {
	trades := []models.Trade{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, apperrors.NewStoreError("scan", key, err)
		}
		var t models.Trade
		if err := json.Unmarshal([]byte(doc), &t); err != nil {
			return nil, apperrors.NewStoreError("scan", key, err)
		}
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("scan", key, err)
	}
	return trades, nil
}
