package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	lockRepo "salondesk/database/repository/lock"
	"salondesk/models"
	"salondesk/services/availability"
	"salondesk/services/events"
	"salondesk/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SlotLockKey names the claim taken while one staff member's day is re-verified
// and written.
func SlotLockKey(salonID, staffID, date string) string {
	return fmt.Sprintf("slot:%s:%s:%s", salonID, staffID, date)
}

func (r *CreateRequest) normalize() error {
	r.StartTime = strings.TrimSpace(r.StartTime)
	r.StaffID = strings.TrimSpace(r.StaffID)
	switch {
	case r.SalonID == "":
		return utils.InvalidInput("salon is required")
	case r.CustomerID == "":
		return utils.InvalidInput("customer is required")
	case r.ServiceID == "":
		return utils.InvalidInput("service is required")
	case r.Date == "" || r.StartTime == "":
		return utils.InvalidInput("date and start time are required")
	}
	minutes, err := utils.ParseClock(r.StartTime)
	if err != nil {
		return utils.InvalidInput("%v", err)
	}
	// Accept "9:00" and store the canonical "09:00".
	r.StartTime = utils.FormatClock(minutes)

	if r.InitialStatus == "" {
		r.InitialStatus = models.StatusPending
	}
	if r.InitialStatus != models.StatusPending && r.InitialStatus != models.StatusConfirmed {
		return utils.InvalidInput("appointments must start pending or confirmed, not %q", r.InitialStatus)
	}
	if r.Channel == "" {
		r.Channel = models.BookedViaDashboard
	}
	return nil
}

// Create re-derives the slot from current data and writes the appointment only
// if the requested start is still offered. Each attempt holds the slot claim for
// the staff member's day across the check and the insert.
func (s *DefaultBookingService) Create(ctx context.Context, req CreateRequest) (*models.Appointment, error) {
	if err := req.normalize(); err != nil {
		return nil, err
	}
	customer, err := s.Customers.GetByID(ctx, req.SalonID, req.CustomerID)
	if err != nil {
		return nil, err
	}

	candidates := []string{req.StaffID}
	if req.StaffID == "" {
		res, err := s.Availability.ComputeSlots(ctx, availability.Query{
			SalonID: req.SalonID, Date: req.Date, ServiceID: req.ServiceID,
		})
		if err != nil {
			return nil, err
		}
		candidates = candidates[:0]
		for _, slot := range res.Slots {
			if slot.StartTime == req.StartTime {
				candidates = append(candidates, slot.StaffID)
			}
		}
		if len(candidates) == 0 {
			return nil, slotGone(req)
		}
	}

	var lastErr error
	for _, staffID := range candidates {
		appt, err := s.claim(ctx, req, customer, staffID)
		if err == nil {
			return appt, nil
		}
		if !errors.Is(err, utils.ErrSlotUnavailable) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *DefaultBookingService) claim(ctx context.Context, req CreateRequest, customer *models.Customer, staffID string) (*models.Appointment, error) {
	release, err := lockRepo.Acquire(ctx, s.SlotLocks, SlotLockKey(req.SalonID, staffID, req.Date), s.LockTTL, s.LockWait)
	if err != nil {
		if errors.Is(err, lockRepo.ErrLockHeld) {
			return nil, utils.SlotUnavailable("another booking for this slot is in progress, please pick again")
		}
		return nil, err
	}
	defer release()

	res, err := s.Availability.ComputeSlots(ctx, availability.Query{
		SalonID: req.SalonID, Date: req.Date, ServiceID: req.ServiceID, StaffID: staffID,
	})
	if err != nil {
		return nil, err
	}
	var slot *models.Slot
	for i := range res.Slots {
		if res.Slots[i].StartTime == req.StartTime && res.Slots[i].StaffID == staffID {
			slot = &res.Slots[i]
			break
		}
	}
	if slot == nil {
		return nil, slotGone(req)
	}

	now := s.Now()
	appt := &models.Appointment{
		ID:          uuid.New().String(),
		SalonID:     req.SalonID,
		CustomerID:  customer.ID,
		ServiceID:   res.Service.ID,
		ServiceName: res.Service.Name,
		StaffID:     slot.StaffID,
		StaffName:   slot.StaffName,
		Date:        req.Date,
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		Duration:    res.Service.Duration,
		Price:       res.Service.Price,
		Status:      req.InitialStatus,
		Notes:       req.Notes,
		BookedVia:   req.Channel,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Appointments.Create(ctx, appt); err != nil {
		return nil, err
	}

	s.Logger.Info("appointment created",
		zap.String("appointmentID", appt.ID),
		zap.String("salonID", appt.SalonID),
		zap.String("staffID", appt.StaffID),
		zap.String("date", appt.Date),
		zap.String("start", appt.StartTime))
	s.publish(ctx, events.AppointmentEvent(events.TypeAppointmentCreated, appt, "", now))
	return appt, nil
}

func slotGone(req CreateRequest) error {
	return utils.SlotUnavailable("%s at %s is no longer available", req.Date, req.StartTime).
		WithDetails(map[string]any{"date": req.Date, "startTime": req.StartTime})
}
