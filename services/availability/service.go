package availability

import (
	"context"
	"fmt"

	appointmentRepo "salondesk/database/repository/appointment"
	directoryRepo "salondesk/database/repository/directory"
	"salondesk/models"
	"salondesk/utils"

	"go.uber.org/zap"
)

// Query selects the slots to compute. StaffID is optional.
type Query struct {
	SalonID   string
	Date      string
	ServiceID string
	StaffID   string
}

// Result is the ordered slot list plus the context a caller needs to present it.
type Result struct {
	Date    string          `json:"date"`
	Service *models.Service `json:"service,omitempty"`
	Slots   []models.Slot   `json:"slots"`
	// Reason is set when Slots is empty for a known cause.
	Reason string `json:"reason,omitempty"`
}

// AvailabilityService computes bookable slots from stored salon data.
type AvailabilityService interface {
	ComputeSlots(ctx context.Context, q Query) (*Result, error)
}

type DefaultAvailabilityService struct {
	Directory    directoryRepo.DirectoryRepository
	Appointments appointmentRepo.AppointmentRepository
	Logger       *zap.Logger
}

func NewAvailabilityService(dir directoryRepo.DirectoryRepository, appts appointmentRepo.AppointmentRepository, logger *zap.Logger) *DefaultAvailabilityService {
	return &DefaultAvailabilityService{Directory: dir, Appointments: appts, Logger: logger}
}

func (s *DefaultAvailabilityService) ComputeSlots(ctx context.Context, q Query) (*Result, error) {
	venue, err := s.Directory.GetVenue(ctx, q.SalonID)
	if err != nil {
		return nil, err
	}

	result := &Result{Date: q.Date, Slots: []models.Slot{}}
	reason, err := ClosedReason(venue, q.Date)
	if err != nil {
		return nil, err
	}
	if reason != "" {
		result.Reason = reason
		return result, nil
	}

	service, err := s.Directory.GetService(ctx, q.SalonID, q.ServiceID)
	if err != nil {
		return nil, err
	}
	if !service.IsActive {
		return nil, utils.NotFound("service %s not found", q.ServiceID)
	}
	result.Service = service

	staff, err := s.eligibleStaff(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(staff) == 0 {
		result.Reason = ReasonNoStaff
		return result, nil
	}

	staffIDs := make([]string, 0, len(staff))
	for _, st := range staff {
		staffIDs = append(staffIDs, st.ID)
	}
	appts, err := s.Appointments.ListBlocking(ctx, q.SalonID, q.Date, staffIDs)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	slots, err := ComputeSlots(Input{
		Venue:        *venue,
		Service:      *service,
		Staff:        staff,
		Appointments: appts,
		Date:         q.Date,
	})
	if err != nil {
		s.Logger.Error("slot computation failed",
			zap.String("salonID", q.SalonID), zap.String("date", q.Date), zap.Error(err))
		return nil, err
	}
	if slots != nil {
		result.Slots = slots
	}
	return result, nil
}

func (s *DefaultAvailabilityService) eligibleStaff(ctx context.Context, q Query) ([]models.Staff, error) {
	if q.StaffID == "" {
		return s.Directory.ListActiveStaff(ctx, q.SalonID, q.ServiceID)
	}
	member, err := s.Directory.GetStaff(ctx, q.SalonID, q.StaffID)
	if err != nil {
		return nil, err
	}
	if !member.IsActive {
		return nil, utils.NotFound("staff %s not found", q.StaffID)
	}
	if !member.Offers(q.ServiceID) {
		return nil, utils.InvalidInput("%s does not offer this service", member.Name)
	}
	return []models.Staff{*member}, nil
}
