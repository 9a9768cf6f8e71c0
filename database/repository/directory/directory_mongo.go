package directoryRepo

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

// MongoDirectoryRepo implements DirectoryRepository using MongoDB.
type MongoDirectoryRepo struct {
	salons   *mongo.Collection
	staff    *mongo.Collection
	services *mongo.Collection
	offers   *mongo.Collection
}

// NewMongoDirectoryRepo creates a DirectoryRepository backed by db.
func NewMongoDirectoryRepo(db *mongo.Database) DirectoryRepository {
	repo := &MongoDirectoryRepo{
		salons:   db.Collection("salons"),
		staff:    db.Collection("staff"),
		services: db.Collection("services"),
		offers:   db.Collection("offers"),
	}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create directory indexes: %v\n", err)
	}
	return repo
}

func (r *MongoDirectoryRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := r.salons.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "whatsapp.phoneNumberId", Value: 1}}, Options: options.Index().SetSparse(true)},
	}); err != nil {
		return fmt.Errorf("salons: %w", err)
	}
	if _, err := r.staff.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "salonId", Value: 1}, {Key: "isActive", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("staff: %w", err)
	}
	if _, err := r.services.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "salonId", Value: 1}, {Key: "isActive", Value: 1}, {Key: "category", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("services: %w", err)
	}
	if _, err := r.offers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "salonId", Value: 1}, {Key: "isActive", Value: 1}, {Key: "validTo", Value: 1}},
	}); err != nil {
		return fmt.Errorf("offers: %w", err)
	}
	return nil
}

func (r *MongoDirectoryRepo) GetVenue(ctx context.Context, salonID string) (*models.Venue, error) {
	var venue models.Venue
	if err := r.salons.FindOne(ctx, bson.M{"id": salonID}).Decode(&venue); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NotFound("salon %s not found", salonID)
		}
		return nil, fmt.Errorf("failed to fetch salon %s: %w", salonID, err)
	}
	return &venue, nil
}

func (r *MongoDirectoryRepo) FindVenueByPhoneNumberID(ctx context.Context, phoneNumberID string) (*models.Venue, error) {
	var venue models.Venue
	filter := bson.M{"whatsapp.phoneNumberId": phoneNumberID, "isActive": true}
	if err := r.salons.FindOne(ctx, filter).Decode(&venue); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NotFound("no salon bound to phone number id %s", phoneNumberID)
		}
		return nil, fmt.Errorf("failed to fetch salon by phone number id: %w", err)
	}
	return &venue, nil
}

func (r *MongoDirectoryRepo) UpdateVenueSettings(ctx context.Context, salonID string, settings models.VenueSettings) (*models.Venue, error) {
	set := bson.M{"updatedAt": time.Now()}
	if settings.WorkingHours != nil {
		set["workingHours"] = settings.WorkingHours
	}
	if settings.SlotDuration != nil {
		set["slotDuration"] = *settings.SlotDuration
	}
	if settings.BufferTime != nil {
		set["bufferTime"] = *settings.BufferTime
	}
	if settings.Holidays != nil {
		set["holidays"] = settings.Holidays
	}
	if settings.Payment != nil {
		set["payment"] = *settings.Payment
	}
	if settings.Reminders != nil {
		set["reminders"] = settings.Reminders
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var venue models.Venue
	if err := r.salons.FindOneAndUpdate(ctx, bson.M{"id": salonID}, bson.M{"$set": set}, opts).Decode(&venue); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NotFound("salon %s not found", salonID)
		}
		return nil, fmt.Errorf("failed to update salon settings: %w", err)
	}
	return &venue, nil
}

func (r *MongoDirectoryRepo) ListActiveStaff(ctx context.Context, salonID, serviceID string) ([]models.Staff, error) {
	filter := bson.M{"salonId": salonID, "isActive": true}
	if serviceID != "" {
		filter["services"] = serviceID
	}
	cursor, err := r.staff.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	var staff []models.Staff
	if err := cursor.All(ctx, &staff); err != nil {
		return nil, fmt.Errorf("failed to decode staff: %w", err)
	}
	return staff, nil
}

func (r *MongoDirectoryRepo) GetStaff(ctx context.Context, salonID, staffID string) (*models.Staff, error) {
	var s models.Staff
	if err := r.staff.FindOne(ctx, bson.M{"id": staffID, "salonId": salonID}).Decode(&s); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NotFound("staff %s not found", staffID)
		}
		return nil, fmt.Errorf("failed to fetch staff %s: %w", staffID, err)
	}
	return &s, nil
}

func (r *MongoDirectoryRepo) ListActiveServices(ctx context.Context, salonID, category string) ([]models.Service, error) {
	filter := bson.M{"salonId": salonID, "isActive": true}
	if category != "" {
		filter["category"] = category
	}
	cursor, err := r.services.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	var services []models.Service
	if err := cursor.All(ctx, &services); err != nil {
		return nil, fmt.Errorf("failed to decode services: %w", err)
	}
	return services, nil
}

func (r *MongoDirectoryRepo) GetService(ctx context.Context, salonID, serviceID string) (*models.Service, error) {
	var svc models.Service
	if err := r.services.FindOne(ctx, bson.M{"id": serviceID, "salonId": salonID}).Decode(&svc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NotFound("service %s not found", serviceID)
		}
		return nil, fmt.Errorf("failed to fetch service %s: %w", serviceID, err)
	}
	return &svc, nil
}

func (r *MongoDirectoryRepo) ListActiveOffers(ctx context.Context, salonID string, now time.Time) ([]models.Offer, error) {
	filter := bson.M{
		"salonId":   salonID,
		"isActive":  true,
		"validFrom": bson.M{"$lte": now},
		"validTo":   bson.M{"$gte": now},
	}
	cursor, err := r.offers.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	var offers []models.Offer
	if err := cursor.All(ctx, &offers); err != nil {
		return nil, fmt.Errorf("failed to decode offers: %w", err)
	}
	return offers, nil
}
