package conversationRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"salondesk/models"
	"salondesk/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoConversationRepo implements ConversationRepository using MongoDB.
type MongoConversationRepo struct {
	coll *mongo.Collection
}

func NewMongoConversationRepo(db *mongo.Database) ConversationRepository {
	repo := &MongoConversationRepo{coll: db.Collection("conversations")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create conversation indexes: %v\n", err)
	}
	return repo
}

// ensureIndexes makes (salon, phone) unique among active sessions.
func (r *MongoConversationRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{
			Keys:    bson.D{{Key: "salonId", Value: 1}, {Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{"isActive": true}),
		},
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "lastActivityAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoConversationRepo) FindActive(ctx context.Context, salonID, phone string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.coll.FindOne(ctx, bson.M{"salonId": salonID, "phone": phone, "isActive": true}).Decode(&conv)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NotFound("no active conversation for %s", phone)
		}
		return nil, fmt.Errorf("failed to fetch conversation: %w", err)
	}
	return &conv, nil
}

func (r *MongoConversationRepo) Create(ctx context.Context, conv *models.Conversation) error {
	if _, err := r.coll.InsertOne(ctx, conv); err != nil {
		return fmt.Errorf("failed to insert conversation: %w", err)
	}
	return nil
}

func (r *MongoConversationRepo) Save(ctx context.Context, conv *models.Conversation) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"id": conv.ID}, conv)
	if err != nil {
		return fmt.Errorf("failed to save conversation %s: %w", conv.ID, err)
	}
	if res.MatchedCount == 0 {
		return utils.NotFound("conversation %s not found", conv.ID)
	}
	return nil
}

func (r *MongoConversationRepo) Deactivate(ctx context.Context, id string) error {
	if _, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"isActive": false}}); err != nil {
		return fmt.Errorf("failed to deactivate conversation %s: %w", id, err)
	}
	return nil
}

func (r *MongoConversationRepo) ListActiveIdleSince(ctx context.Context, cutoff time.Time, limit int64) ([]models.Conversation, error) {
	opts := options.Find().
		SetProjection(bson.M{"messages": 0}).
		SetSort(bson.D{{Key: "lastActivityAt", Value: 1}}).
		SetLimit(limit)
	cursor, err := r.coll.Find(ctx, bson.M{"isActive": true, "lastActivityAt": bson.M{"$lt": cutoff}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list idle conversations: %w", err)
	}
	var out []models.Conversation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return out, nil
}

func (r *MongoConversationRepo) ListByPhone(ctx context.Context, salonID, phone string, limit int64) ([]models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	cursor, err := r.coll.Find(ctx, bson.M{"salonId": salonID, "phone": phone}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	var out []models.Conversation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return out, nil
}
