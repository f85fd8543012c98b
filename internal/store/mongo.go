package store

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "fxjournal/internal/errors"
	"fxjournal/internal/models"
)

const (
	tradesCollection = "trades"
	usersCollection  = "users"
)

// MongoStore implements TradeStore on MongoDB. Partitioning is logical: every
// trade document carries its owner's userId and every per-user query filters
// on it; RecentClosedTrades is the one cross-partition scan.
type MongoStore struct {
	client   *mongo.Client
	trades   *mongo.Collection
	profiles *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, apperrors.NewStoreError("connect", "", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, apperrors.NewStoreError("ping", "", err)
	}

	db := client.Database(database)
	return &MongoStore{
		client:   client,
		trades:   db.Collection(tradesCollection),
		profiles: db.Collection(usersCollection),
	}, nil
}

func (s *MongoStore) CreateTrade(ctx context.Context, trade *models.Trade) (string, error) {
	trade.ID = NewID()
	trade.CreatedAt = time.Now().UnixMilli()

	if _, err := s.trades.InsertOne(ctx, trade); err != nil {
		return "", apperrors.NewStoreError("create", trade.ID, err)
	}
	return trade.ID, nil
}

func (s *MongoStore) GetTrade(ctx context.Context, userID, id string) (*models.Trade, error) {
	var trade models.Trade
	err := s.trades.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&trade)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get", id, err)
	}
	return &trade, nil
}

func (s *MongoStore) ListTrades(ctx context.Context, userID string) ([]models.Trade, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cur, err := s.trades.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, apperrors.NewStoreError("list", userID, err)
	}
	defer cur.Close(ctx)

	trades := []models.Trade{}
	if err := cur.All(ctx, &trades); err != nil {
		return nil, apperrors.NewStoreError("list", userID, err)
	}
	return trades, nil
}

func (s *MongoStore) UpdateTrade(ctx context.Context, userID, id string, patch Patch) error {
	if len(patch) == 0 {
		return nil
	}
	// Ownership is part of the filter: a patch can never move a trade out of
	// its owner's partition.
	delete(patch, "userId")
	delete(patch, "id")

	res, err := s.trades.UpdateOne(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M(patch)},
	)
	if err != nil {
		return apperrors.NewStoreError("update", id, err)
	}
	if res.MatchedCount == 0 {
		return apperrors.NewNotFoundError("trade", id)
	}
	return nil
}

func (s *MongoStore) BulkUpsertTrades(ctx context.Context, userID string, trades []models.Trade) (BulkResult, error) {
	var result BulkResult
	for i := range trades {
		t := trades[i]
		if t.Date == 0 || t.Instrument == "" {
			continue // silently skipped, counted nowhere
		}
		t.UserID = userID

		if t.ID == "" {
			t.ID = NewID()
			if t.CreatedAt == 0 {
				t.CreatedAt = time.Now().UnixMilli()
			}
			if _, err := s.trades.InsertOne(ctx, &t); err != nil {
				result.Errors++
				continue
			}
			result.Created++
			continue
		}

		doc, err := tradeDocument(&t)
		if err != nil {
			result.Errors++
			continue
		}
		opts := options.Update().SetUpsert(true)
		if _, err := s.trades.UpdateOne(ctx, bson.M{"_id": t.ID, "userId": userID}, bson.M{"$set": doc}, opts); err != nil {
			result.Errors++
			continue
		}
		result.Updated++
	}
	return result, nil
}

func (s *MongoStore) RecentClosedTrades(ctx context.Context, limit int) ([]models.Trade, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := s.trades.Find(ctx, bson.M{"status": models.StatusClosed}, opts)
	if err != nil {
		return nil, apperrors.NewStoreError("recentClosed", "", err)
	}
	defer cur.Close(ctx)

	trades := []models.Trade{}
	if err := cur.All(ctx, &trades); err != nil {
		return nil, apperrors.NewStoreError("recentClosed", "", err)
	}
	return trades, nil
}

func (s *MongoStore) UpsertProfile(ctx context.Context, profile *models.UserProfile) error {
	now := time.Now().UnixMilli()
	update := bson.M{
		"$set": bson.M{
			"email":       profile.Email,
			"displayName": profile.DisplayName,
			"photoURL":    profile.PhotoURL,
			"lastLogin":   now,
		},
		"$setOnInsert": bson.M{
			"role":      models.RoleUser,
			"createdAt": now,
		},
	}
	opts := options.Update().SetUpsert(true)
	if _, err := s.profiles.UpdateOne(ctx, bson.M{"_id": profile.UID}, update, opts); err != nil {
		return apperrors.NewStoreError("upsertProfile", profile.UID, err)
	}
	return nil
}

func (s *MongoStore) GetProfile(ctx context.Context, uid string) (*models.UserProfile, error) {
	var profile models.UserProfile
	err := s.profiles.FindOne(ctx, bson.M{"_id": uid}).Decode(&profile)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStoreError("getProfile", uid, err)
	}
	return &profile, nil
}

func (s *MongoStore) GetProfiles(ctx context.Context, uids []string) (map[string]models.UserProfile, error) {
	cur, err := s.profiles.Find(ctx, bson.M{"_id": bson.M{"$in": uids}})
	if err != nil {
		return nil, apperrors.NewStoreError("getProfiles", "", err)
	}
	defer cur.Close(ctx)

	profiles := make(map[string]models.UserProfile, len(uids))
	for cur.Next(ctx) {
		var p models.UserProfile
		if err := cur.Decode(&p); err != nil {
			return nil, apperrors.NewStoreError("getProfiles", "", err)
		}
		profiles[p.UID] = p
	}
	if err := cur.Err(); err != nil {
		return nil, apperrors.NewStoreError("getProfiles", "", err)
	}
	return profiles, nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// tradeDocument flattens a trade into its wire-format field map, without the
// identity fields that live in the filter.
func tradeDocument(t *models.Trade) (bson.M, error) {
	raw, err := bson.Marshal(t)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	delete(doc, "_id")
	return doc, nil
}
