package customerRepo

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

// MongoCustomerRepo implements CustomerRepository using MongoDB.
type MongoCustomerRepo struct {
	coll *mongo.Collection
}

func NewMongoCustomerRepo(db *mongo.Database) CustomerRepository {
	repo := &MongoCustomerRepo{coll: db.Collection("customers")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create customer indexes: %v\n", err)
	}
	return repo
}

func (r *MongoCustomerRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "salonId", Value: 1}, {Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoCustomerRepo) findOne(ctx context.Context, filter bson.M, what string) (*models.Customer, error) {
	var c models.Customer
	if err := r.coll.FindOne(ctx, filter).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NotFound("customer %s not found", what)
		}
		return nil, fmt.Errorf("failed to fetch customer %s: %w", what, err)
	}
	return &c, nil
}

func (r *MongoCustomerRepo) GetByID(ctx context.Context, salonID, id string) (*models.Customer, error) {
	return r.findOne(ctx, bson.M{"id": id, "salonId": salonID}, id)
}

func (r *MongoCustomerRepo) FindByPhone(ctx context.Context, salonID, phone string) (*models.Customer, error) {
	return r.findOne(ctx, bson.M{"salonId": salonID, "phone": phone}, phone)
}

// FindOrCreate upserts with $setOnInsert so concurrent first messages from one
// phone converge on a single customer document.
func (r *MongoCustomerRepo) FindOrCreate(ctx context.Context, candidate *models.Customer) (*models.Customer, bool, error) {
	filter := bson.M{"salonId": candidate.SalonID, "phone": candidate.Phone}
	update := bson.M{"$setOnInsert": candidate}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var c models.Customer
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&c)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		// Lost the upsert race; the winner's document is now readable.
		existing, findErr := r.FindByPhone(ctx, candidate.SalonID, candidate.Phone)
		return existing, false, findErr
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert customer: %w", err)
	}
	return &c, c.ID == candidate.ID, nil
}

func (r *MongoCustomerRepo) RecordVisit(ctx context.Context, salonID, id string, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "salonId": salonID},
		bson.M{"$inc": bson.M{"totalVisits": 1}, "$set": bson.M{"lastVisit": at, "updatedAt": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	if res.MatchedCount == 0 {
		return utils.NotFound("customer %s not found", id)
	}
	return nil
}
