package appointmentRepo

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

// MongoAppointmentRepo implements AppointmentRepository using MongoDB.
type MongoAppointmentRepo struct {
	coll *mongo.Collection
}

func NewMongoAppointmentRepo(db *mongo.Database) AppointmentRepository {
	repo := &MongoAppointmentRepo{coll: db.Collection("appointments")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create appointment indexes: %v\n", err)
	}
	return repo
}

// ensureIndexes also adds a partial unique index on (staff, date, start) for
// blocking statuses, the storage-level backstop behind the slot claim.
func (r *MongoAppointmentRepo) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	blocking := []models.AppointmentStatus{
		models.StatusPending, models.StatusConfirmed, models.StatusInProgress, models.StatusCompleted,
	}
	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "salonId", Value: 1}, {Key: "date", Value: 1}, {Key: "staffId", Value: 1}}},
		{Keys: bson.D{{Key: "salonId", Value: 1}, {Key: "customerId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "date", Value: 1}}},
		{Keys: bson.D{{Key: "payment.linkId", Value: 1}}, Options: options.Index().SetSparse(true)},
		{
			Keys: bson.D{{Key: "staffId", Value: 1}, {Key: "date", Value: 1}, {Key: "startTime", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
				"status": bson.M{"$in": blocking},
			}),
		},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (r *MongoAppointmentRepo) Create(ctx context.Context, appt *models.Appointment) error {
	if _, err := r.coll.InsertOne(ctx, appt); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.SlotUnavailable("slot %s %s is already booked", appt.Date, appt.StartTime)
		}
		return fmt.Errorf("failed to insert appointment: %w", err)
	}
	return nil
}

func (r *MongoAppointmentRepo) GetByID(ctx context.Context, salonID, id string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := r.coll.FindOne(ctx, bson.M{"id": id, "salonId": salonID}).Decode(&appt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NotFound("appointment %s not found", id)
		}
		return nil, fmt.Errorf("failed to fetch appointment %s: %w", id, err)
	}
	return &appt, nil
}

func (r *MongoAppointmentRepo) find(ctx context.Context, filter bson.M) ([]models.Appointment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "startTime", Value: 1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	var out []models.Appointment
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return out, nil
}

func (r *MongoAppointmentRepo) ListBlocking(ctx context.Context, salonID, date string, staffIDs []string) ([]models.Appointment, error) {
	filter := bson.M{
		"salonId": salonID,
		"date":    date,
		"status":  bson.M{"$nin": []models.AppointmentStatus{models.StatusCancelled, models.StatusNoShow}},
	}
	if len(staffIDs) > 0 {
		filter["staffId"] = bson.M{"$in": staffIDs}
	}
	return r.find(ctx, filter)
}

func (r *MongoAppointmentRepo) ListForDate(ctx context.Context, salonID, date string) ([]models.Appointment, error) {
	return r.find(ctx, bson.M{"salonId": salonID, "date": date})
}

func (r *MongoAppointmentRepo) ListForCustomer(ctx context.Context, salonID, customerID string, f CustomerFilter) ([]models.Appointment, error) {
	filter := bson.M{"salonId": salonID, "customerId": customerID}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	if f.FromDate != "" {
		filter["date"] = bson.M{"$gte": f.FromDate}
	}
	return r.find(ctx, filter)
}

func (r *MongoAppointmentRepo) ListByStatusOnDates(ctx context.Context, statuses []models.AppointmentStatus, dates []string) ([]models.Appointment, error) {
	return r.find(ctx, bson.M{
		"status": bson.M{"$in": statuses},
		"date":   bson.M{"$in": dates},
	})
}

func (r *MongoAppointmentRepo) UpdateStatus(ctx context.Context, salonID, id string, u StatusUpdate) error {
	set := bson.M{"status": u.To, "updatedAt": u.At}
	if u.CancelReason != "" {
		set["cancelReason"] = u.CancelReason
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id, "salonId": salonID, "status": u.From}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.GetByID(ctx, salonID, id); err != nil {
			return err
		}
		return ErrStatusChanged
	}
	return nil
}

func (r *MongoAppointmentRepo) SetPayment(ctx context.Context, id string, payment models.AppointmentPayment) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{"payment": payment, "updatedAt": time.Now()}})
	if err != nil {
		return fmt.Errorf("failed to store payment: %w", err)
	}
	if res.MatchedCount == 0 {
		return utils.NotFound("appointment %s not found", id)
	}
	return nil
}

func (r *MongoAppointmentRepo) FindByPaymentLinkID(ctx context.Context, linkID string) (*models.Appointment, error) {
	var appt models.Appointment
	if err := r.coll.FindOne(ctx, bson.M{"payment.linkId": linkID}).Decode(&appt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, utils.NotFound("no appointment for payment link %s", linkID)
		}
		return nil, fmt.Errorf("failed to fetch appointment by payment link: %w", err)
	}
	return &appt, nil
}

func (r *MongoAppointmentRepo) MarkReminderSent(ctx context.Context, id string, minutesBefore int) (bool, error) {
	filter := bson.M{"id": id, "remindersSent": bson.M{"$ne": minutesBefore}}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$addToSet": bson.M{"remindersSent": minutesBefore}})
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder: %w", err)
	}
	return res.ModifiedCount == 1, nil
}
