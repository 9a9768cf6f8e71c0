package customerRepo

import (
	"context"
	"time"

	"salondesk/models"
)

// CustomerRepository persists salon customers, unique per (salon, phone).
type CustomerRepository interface {
	GetByID(ctx context.Context, salonID, id string) (*models.Customer, error)
	FindByPhone(ctx context.Context, salonID, phone string) (*models.Customer, error)
	// FindOrCreate returns the customer for phone, inserting candidate when absent.
	// created is true only for the caller whose insert won.
	FindOrCreate(ctx context.Context, candidate *models.Customer) (customer *models.Customer, created bool, err error)
	// RecordVisit increments the visit counter and sets the last visit time.
	RecordVisit(ctx context.Context, salonID, id string, at time.Time) error
}
