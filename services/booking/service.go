package booking

import (
	"context"
	"errors"
	"time"

	appointmentRepo "salondesk/database/repository/appointment"
	customerRepo "salondesk/database/repository/customer"
	lockRepo "salondesk/database/repository/lock"
	"salondesk/models"
	"salondesk/services/availability"
	"salondesk/services/events"
	"salondesk/utils"

	"go.uber.org/zap"
)

const (
	defaultLockTTL  = 10 * time.Second
	defaultLockWait = 3 * time.Second
)

// DefaultBookingService implements BookingService on top of the availability
// service, so a booking can only ever land on a slot the calculator would offer.
type DefaultBookingService struct {
	Availability availability.AvailabilityService
	Appointments appointmentRepo.AppointmentRepository
	Customers    customerRepo.CustomerRepository
	SlotLocks    lockRepo.Locker
	Events       events.Publisher
	Logger       *zap.Logger

	LockTTL  time.Duration
	LockWait time.Duration
	Now      func() time.Time
}

func NewBookingService(
	avail availability.AvailabilityService,
	appts appointmentRepo.AppointmentRepository,
	customers customerRepo.CustomerRepository,
	locks lockRepo.Locker,
	publisher events.Publisher,
	logger *zap.Logger,
) *DefaultBookingService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &DefaultBookingService{
		Availability: avail,
		Appointments: appts,
		Customers:    customers,
		SlotLocks:    locks,
		Events:       publisher,
		Logger:       logger,
		LockTTL:      defaultLockTTL,
		LockWait:     defaultLockWait,
		Now:          time.Now,
	}
}

func (s *DefaultBookingService) Get(ctx context.Context, salonID, id string) (*models.Appointment, error) {
	return s.Appointments.GetByID(ctx, salonID, id)
}

func (s *DefaultBookingService) ListForDate(ctx context.Context, salonID, date string) ([]models.Appointment, error) {
	if _, err := utils.ParseDate(date, time.Local); err != nil {
		return nil, utils.InvalidInput("%v", err)
	}
	return s.Appointments.ListForDate(ctx, salonID, date)
}

func (s *DefaultBookingService) ListUpcomingForCustomer(ctx context.Context, salonID, customerID, fromDate string) ([]models.Appointment, error) {
	return s.Appointments.ListForCustomer(ctx, salonID, customerID, appointmentRepo.CustomerFilter{
		Statuses: []models.AppointmentStatus{models.StatusPending, models.StatusConfirmed},
		FromDate: fromDate,
	})
}

// Transition moves the appointment along the lifecycle table. The store update
// is a compare-and-set on the current status, so the completion side effect
// runs at most once even under concurrent callers.
func (s *DefaultBookingService) Transition(ctx context.Context, salonID, id string, target models.AppointmentStatus, reason string) (*models.Appointment, error) {
	if !ValidStatus(target) {
		return nil, utils.InvalidInput("unknown status %q", target)
	}
	appt, err := s.Appointments.GetByID(ctx, salonID, id)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, appt, target, reason)
}

func (s *DefaultBookingService) transition(ctx context.Context, appt *models.Appointment, target models.AppointmentStatus, reason string) (*models.Appointment, error) {
	from := appt.Status
	if !CanTransition(from, target) {
		return nil, utils.InvalidTransition(string(from), string(target))
	}

	now := s.Now()
	update := appointmentRepo.StatusUpdate{From: from, To: target, At: now}
	if target == models.StatusCancelled {
		update.CancelReason = reason
	}
	if err := s.Appointments.UpdateStatus(ctx, appt.SalonID, appt.ID, update); err != nil {
		if errors.Is(err, appointmentRepo.ErrStatusChanged) {
			current, getErr := s.Appointments.GetByID(ctx, appt.SalonID, appt.ID)
			if getErr != nil {
				return nil, getErr
			}
			return nil, utils.InvalidTransition(string(current.Status), string(target))
		}
		return nil, err
	}

	appt.Status = target
	appt.UpdatedAt = now
	if update.CancelReason != "" {
		appt.CancelReason = update.CancelReason
	}

	if target == models.StatusCompleted {
		if err := s.Customers.RecordVisit(ctx, appt.SalonID, appt.CustomerID, now); err != nil {
			s.Logger.Error("failed to record customer visit",
				zap.String("appointmentID", appt.ID), zap.String("customerID", appt.CustomerID), zap.Error(err))
		}
	}

	s.Logger.Info("appointment status changed",
		zap.String("appointmentID", appt.ID),
		zap.String("from", string(from)),
		zap.String("to", string(target)))
	s.publish(ctx, events.AppointmentEvent(events.TypeAppointmentStatusChanged, appt, from, now))
	return appt, nil
}

// CancelForCustomer cancels one of the customer's own pending or confirmed appointments.
func (s *DefaultBookingService) CancelForCustomer(ctx context.Context, salonID, customerID, id, reason string) (*models.Appointment, error) {
	appt, err := s.Appointments.GetByID(ctx, salonID, id)
	if err != nil {
		return nil, err
	}
	if appt.CustomerID != customerID {
		return nil, utils.NotFound("appointment %s not found", id)
	}
	if appt.Status != models.StatusPending && appt.Status != models.StatusConfirmed {
		return nil, utils.InvalidTransition(string(appt.Status), string(models.StatusCancelled))
	}
	return s.transition(ctx, appt, models.StatusCancelled, reason)
}

func (s *DefaultBookingService) publish(ctx context.Context, ev events.Event) {
	if err := s.Events.Publish(ctx, ev); err != nil {
		s.Logger.Warn("failed to publish appointment event",
			zap.String("type", ev.Type), zap.String("appointmentID", ev.AppointmentID), zap.Error(err))
	}
}
