package booking

import (
	"context"
	"time"

	"salondesk/models"
)

// CreateRequest asks for a new appointment. StaffID is optional; when empty the
// first staff member free at StartTime is assigned.
type CreateRequest struct {
	SalonID       string
	CustomerID    string
	ServiceID     string
	Date          string
	StartTime     string
	StaffID       string
	Notes         string
	Channel       models.BookingChannel
	InitialStatus models.AppointmentStatus
}

// BookingService owns the appointment lifecycle.
type BookingService interface {
	Create(ctx context.Context, req CreateRequest) (*models.Appointment, error)
	Get(ctx context.Context, salonID, id string) (*models.Appointment, error)
	ListForDate(ctx context.Context, salonID, date string) ([]models.Appointment, error)
	ListUpcomingForCustomer(ctx context.Context, salonID, customerID, fromDate string) ([]models.Appointment, error)
	Transition(ctx context.Context, salonID, id string, target models.AppointmentStatus, reason string) (*models.Appointment, error)
	CancelForCustomer(ctx context.Context, salonID, customerID, id, reason string) (*models.Appointment, error)
	MarkNoShows(ctx context.Context, now time.Time, buffer time.Duration) (int, error)
}
