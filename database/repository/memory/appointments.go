package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	appointmentRepo "salondesk/database/repository/appointment"
	"salondesk/models"
	"salondesk/utils"
)

// Appointments is an in-memory AppointmentRepository.
type Appointments struct {
	mu    sync.RWMutex
	items map[string]models.Appointment
}

var _ appointmentRepo.AppointmentRepository = (*Appointments)(nil)

func NewAppointments() *Appointments {
	return &Appointments{items: make(map[string]models.Appointment)}
}

func cloneAppointment(a models.Appointment) models.Appointment {
	if a.Payment != nil {
		p := *a.Payment
		a.Payment = &p
	}
	a.RemindersSent = append([]int(nil), a.RemindersSent...)
	return a
}

func sortAppointments(out []models.Appointment) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
}

// Create mirrors the partial unique index on (staff, date, start) for blocking statuses.
func (r *Appointments) Create(_ context.Context, appt *models.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.Status.Blocking() && a.StaffID == appt.StaffID && a.Date == appt.Date && a.StartTime == appt.StartTime {
			return utils.SlotUnavailable("slot %s %s is already booked", appt.Date, appt.StartTime)
		}
	}
	r.items[appt.ID] = cloneAppointment(*appt)
	return nil
}

func (r *Appointments) GetByID(_ context.Context, salonID, id string) (*models.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.items[id]
	if !ok || a.SalonID != salonID {
		return nil, utils.NotFound("appointment %s not found", id)
	}
	a = cloneAppointment(a)
	return &a, nil
}

func (r *Appointments) filter(keep func(models.Appointment) bool) []models.Appointment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Appointment
	for _, a := range r.items {
		if keep(a) {
			out = append(out, cloneAppointment(a))
		}
	}
	sortAppointments(out)
	return out
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func (r *Appointments) ListBlocking(_ context.Context, salonID, date string, staffIDs []string) ([]models.Appointment, error) {
	return r.filter(func(a models.Appointment) bool {
		return a.SalonID == salonID && a.Date == date && a.Status.Blocking() &&
			(len(staffIDs) == 0 || contains(staffIDs, a.StaffID))
	}), nil
}

func (r *Appointments) ListForDate(_ context.Context, salonID, date string) ([]models.Appointment, error) {
	return r.filter(func(a models.Appointment) bool {
		return a.SalonID == salonID && a.Date == date
	}), nil
}

func (r *Appointments) ListForCustomer(_ context.Context, salonID, customerID string, f appointmentRepo.CustomerFilter) ([]models.Appointment, error) {
	return r.filter(func(a models.Appointment) bool {
		if a.SalonID != salonID || a.CustomerID != customerID {
			return false
		}
		if len(f.Statuses) > 0 && !contains(f.Statuses, a.Status) {
			return false
		}
		return f.FromDate == "" || a.Date >= f.FromDate
	}), nil
}

func (r *Appointments) ListByStatusOnDates(_ context.Context, statuses []models.AppointmentStatus, dates []string) ([]models.Appointment, error) {
	return r.filter(func(a models.Appointment) bool {
		return contains(statuses, a.Status) && contains(dates, a.Date)
	}), nil
}

func (r *Appointments) UpdateStatus(_ context.Context, salonID, id string, u appointmentRepo.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || a.SalonID != salonID {
		return utils.NotFound("appointment %s not found", id)
	}
	if a.Status != u.From {
		return appointmentRepo.ErrStatusChanged
	}
	a.Status = u.To
	if u.CancelReason != "" {
		a.CancelReason = u.CancelReason
	}
	a.UpdatedAt = u.At
	r.items[id] = a
	return nil
}

func (r *Appointments) SetPayment(_ context.Context, id string, payment models.AppointmentPayment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return utils.NotFound("appointment %s not found", id)
	}
	a.Payment = &payment
	a.UpdatedAt = time.Now()
	r.items[id] = a
	return nil
}

func (r *Appointments) FindByPaymentLinkID(_ context.Context, linkID string) (*models.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.items {
		if a.Payment != nil && a.Payment.LinkID == linkID {
			a = cloneAppointment(a)
			return &a, nil
		}
	}
	return nil, utils.NotFound("no appointment for payment link %s", linkID)
}

func (r *Appointments) MarkReminderSent(_ context.Context, id string, minutesBefore int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return false, utils.NotFound("appointment %s not found", id)
	}
	if a.ReminderSent(minutesBefore) {
		return false, nil
	}
	a.RemindersSent = append(a.RemindersSent, minutesBefore)
	r.items[id] = a
	return true, nil
}
