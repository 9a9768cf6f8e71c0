package lockRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type lockDoc struct {
	Key       string    `bson:"_id"`
	Token     string    `bson:"token"`
	ExpiresAt time.Time `bson:"expiresAt"`
	CreatedAt time.Time `bson:"createdAt"`
}

// MongoLocker stores advisory locks as documents keyed by _id; a duplicate key
// on insert means the lock is held.
type MongoLocker struct {
	coll *mongo.Collection
}

func NewMongoLocker(db *mongo.Database) *MongoLocker {
	l := &MongoLocker{coll: db.Collection("locks")}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := l.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	}); err != nil {
		fmt.Printf("failed to create lock ttl index: %v\n", err)
	}
	return l
}

func (l *MongoLocker) TryLock(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	now := time.Now()
	// The TTL monitor runs about once a minute, so expired locks are cleared eagerly.
	if _, err := l.coll.DeleteOne(ctx, bson.M{"_id": key, "expiresAt": bson.M{"$lte": now}}); err != nil {
		return false, fmt.Errorf("failed to clear expired lock %s: %w", key, err)
	}
	_, err := l.coll.InsertOne(ctx, lockDoc{Key: key, Token: token, ExpiresAt: now.Add(ttl), CreatedAt: now})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert lock %s: %w", key, err)
	}
	return true, nil
}

func (l *MongoLocker) Refresh(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	res, err := l.coll.UpdateOne(ctx,
		bson.M{"_id": key, "token": token},
		bson.M{"$set": bson.M{"expiresAt": time.Now().Add(ttl)}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to refresh lock %s: %w", key, err)
	}
	return res.MatchedCount == 1, nil
}

func (l *MongoLocker) Unlock(ctx context.Context, key, token string) error {
	if _, err := l.coll.DeleteOne(ctx, bson.M{"_id": key, "token": token}); err != nil {
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	return nil
}
