package appointmentRepo

import (
	"context"
	"errors"
	"time"

	"salondesk/models"
)

// ErrStatusChanged is returned by UpdateStatus when the stored status no longer
// matches the expected one.
var ErrStatusChanged = errors.New("appointment status changed concurrently")

// StatusUpdate describes a compare-and-set status change.
type StatusUpdate struct {
	From         models.AppointmentStatus
	To           models.AppointmentStatus
	CancelReason string
	At           time.Time
}

// CustomerFilter narrows ListForCustomer.
type CustomerFilter struct {
	Statuses []models.AppointmentStatus
	FromDate string // inclusive "YYYY-MM-DD", empty for no lower bound
}

// AppointmentRepository persists appointments. Appointments are never deleted.
type AppointmentRepository interface {
	Create(ctx context.Context, appt *models.Appointment) error
	GetByID(ctx context.Context, salonID, id string) (*models.Appointment, error)

	// ListBlocking returns the appointments on date that still occupy time
	// (everything except cancelled and no-show), limited to staffIDs when given.
	ListBlocking(ctx context.Context, salonID, date string, staffIDs []string) ([]models.Appointment, error)
	// ListForDate returns every appointment on date, ordered by start time.
	ListForDate(ctx context.Context, salonID, date string) ([]models.Appointment, error)
	ListForCustomer(ctx context.Context, salonID, customerID string, filter CustomerFilter) ([]models.Appointment, error)
	// ListByStatusOnDates scans all salons, used by the periodic sweeps.
	ListByStatusOnDates(ctx context.Context, statuses []models.AppointmentStatus, dates []string) ([]models.Appointment, error)

	// UpdateStatus moves an appointment from update.From to update.To only if it is
	// still in update.From; otherwise ErrStatusChanged.
	UpdateStatus(ctx context.Context, salonID, id string, update StatusUpdate) error
	SetPayment(ctx context.Context, id string, payment models.AppointmentPayment) error
	FindByPaymentLinkID(ctx context.Context, linkID string) (*models.Appointment, error)
	// MarkReminderSent records the reminder and reports whether it was not yet recorded.
	MarkReminderSent(ctx context.Context, id string, minutesBefore int) (bool, error)
}
