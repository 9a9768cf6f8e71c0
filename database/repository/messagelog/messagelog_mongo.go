package messageLogRepo

import (
	"context"
	"fmt"
	"time"

	"salondesk/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoMessageLogRepo implements MessageLogRepository using MongoDB.
type MongoMessageLogRepo struct {
	coll *mongo.Collection
}

func NewMongoMessageLogRepo(db *mongo.Database) MessageLogRepository {
	repo := &MongoMessageLogRepo{coll: db.Collection("message_logs")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create message log indexes: %v\n", err)
	}
	return repo
}

func (r *MongoMessageLogRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "waMessageId", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
				"waMessageId": bson.M{"$exists": true},
			}),
		},
		{Keys: bson.D{{Key: "salonId", Value: 1}, {Key: "phone", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoMessageLogRepo) Insert(ctx context.Context, entry *models.MessageLog) error {
	if _, err := r.coll.InsertOne(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert message log: %w", err)
	}
	return nil
}

func (r *MongoMessageLogRepo) ExistsByWAMessageID(ctx context.Context, waMessageID string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"waMessageId": waMessageID}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to look up message %s: %w", waMessageID, err)
	}
	return n > 0, nil
}

func (r *MongoMessageLogRepo) UpdateStatus(ctx context.Context, waMessageID string, status models.DeliveryStatus, errMsg string, at time.Time) error {
	set := bson.M{"status": status, "updatedAt": at}
	if errMsg != "" {
		set["errorMessage"] = errMsg
	}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"waMessageId": waMessageID}, bson.M{"$set": set}); err != nil {
		return fmt.Errorf("failed to update message status: %w", err)
	}
	return nil
}

func (r *MongoMessageLogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to purge message logs: %w", err)
	}
	return res.DeletedCount, nil
}
