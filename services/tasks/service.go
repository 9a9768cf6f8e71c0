package tasks

import (
	"context"
	"errors"
	"time"

	appointmentRepo "salondesk/database/repository/appointment"
	customerRepo "salondesk/database/repository/customer"
	directoryRepo "salondesk/database/repository/directory"
	messageLogRepo "salondesk/database/repository/messagelog"
	"salondesk/models"
	"salondesk/services/channel"
	"salondesk/utils"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// DefaultReminderSchedule is used for venues without their own: 24h and 2h before.
var DefaultReminderSchedule = []int{1440, 120}

// Enqueuer is the part of *asynq.Client the scan needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ReminderService finds due reminders and delivers them over WhatsApp.
type ReminderService struct {
	Directory    directoryRepo.DirectoryRepository
	Appointments appointmentRepo.AppointmentRepository
	Customers    customerRepo.CustomerRepository
	MessageLogs  messageLogRepo.MessageLogRepository
	Sender       channel.Sender
	Queue        Enqueuer
	// Window is how far past each offset an appointment start may fall and
	// still be picked up by one scan.
	Window          time.Duration
	DefaultSchedule []int
	Logger          *zap.Logger
}

var remindable = []models.AppointmentStatus{models.StatusPending, models.StatusConfirmed}

// ScanDue enqueues a send task for every reminder whose fire time falls in
// [now, now+Window). It returns how many tasks were newly enqueued.
func (s *ReminderService) ScanDue(ctx context.Context, now time.Time) (int, error) {
	window := s.Window
	if window <= 0 {
		window = 5 * time.Minute
	}
	maxLead := 0
	for _, m := range s.DefaultSchedule {
		maxLead = max(maxLead, m)
	}
	// Venue schedules can be longer than the default; cover two days past the longest.
	horizon := now.Add(time.Duration(maxLead)*time.Minute + window)
	var dates []string
	for d := now; !d.After(horizon.AddDate(0, 0, 1)); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format(utils.DateLayout))
	}

	appts, err := s.Appointments.ListByStatusOnDates(ctx, remindable, dates)
	if err != nil {
		return 0, err
	}

	venues := map[string]*models.Venue{}
	enqueued := 0
	for i := range appts {
		appt := &appts[i]
		venue, ok := venues[appt.SalonID]
		if !ok {
			venue, err = s.Directory.GetVenue(ctx, appt.SalonID)
			if err != nil {
				s.Logger.Warn("Reminder scan skipped salon", zap.String("salonId", appt.SalonID), zap.Error(err))
			}
			venues[appt.SalonID] = venue
		}
		if venue == nil || !venue.IsActive || !venue.WhatsApp.IsConnected {
			continue
		}

		start, err := appointmentStart(appt, now.Location())
		if err != nil {
			continue
		}
		for _, minutes := range s.schedule(venue) {
			if appt.ReminderSent(minutes) {
				continue
			}
			fireAt := start.Add(-time.Duration(minutes) * time.Minute)
			if fireAt.Before(now) || !fireAt.Before(now.Add(window)) {
				continue
			}
			ok, err := s.enqueue(ctx, ReminderPayload{SalonID: appt.SalonID, AppointmentID: appt.ID, MinutesBefore: minutes}, fireAt)
			if err != nil {
				s.Logger.Error("Failed to enqueue reminder", zap.String("appointmentId", appt.ID), zap.Error(err))
				continue
			}
			if ok {
				enqueued++
			}
		}
	}
	return enqueued, nil
}

func (s *ReminderService) schedule(venue *models.Venue) []int {
	if len(venue.Reminders) > 0 {
		return venue.Reminders
	}
	if len(s.DefaultSchedule) > 0 {
		return s.DefaultSchedule
	}
	return DefaultReminderSchedule
}

func (s *ReminderService) enqueue(ctx context.Context, p ReminderPayload, fireAt time.Time) (bool, error) {
	task, opts, err := NewReminderTask(p, fireAt)
	if err != nil {
		return false, err
	}
	if _, err := s.Queue.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Send delivers one reminder. It is a no-op for appointments that are no
// longer pending or confirmed, or whose reminder already went out.
func (s *ReminderService) Send(ctx context.Context, p ReminderPayload) error {
	appt, err := s.Appointments.GetByID(ctx, p.SalonID, p.AppointmentID)
	if err != nil {
		return err
	}
	if appt.Status != models.StatusPending && appt.Status != models.StatusConfirmed {
		return nil
	}
	venue, err := s.Directory.GetVenue(ctx, p.SalonID)
	if err != nil {
		return err
	}
	if !venue.WhatsApp.IsConnected {
		return nil
	}
	customer, err := s.Customers.GetByID(ctx, p.SalonID, appt.CustomerID)
	if err != nil {
		return err
	}

	claimed, err := s.Appointments.MarkReminderSent(ctx, appt.ID, p.MinutesBefore)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	text := BuildReminderMessage(appt, venue.Name, p.MinutesBefore)
	id, sendErr := s.Sender.Send(ctx, venue.WhatsApp, customer.Phone, models.Reply{Type: models.ReplyTypeText, Body: text})
	s.logOutbound(ctx, venue.ID, customer.Phone, id, text, sendErr)
	if sendErr != nil {
		s.Logger.Error("Failed to send reminder",
			zap.String("appointmentId", appt.ID), zap.Int("minutesBefore", p.MinutesBefore), zap.Error(sendErr))
		return sendErr
	}
	s.Logger.Info("Reminder sent", zap.String("appointmentId", appt.ID), zap.Int("minutesBefore", p.MinutesBefore))
	return nil
}

func (s *ReminderService) logOutbound(ctx context.Context, salonID, phone, waMessageID, text string, sendErr error) {
	if s.MessageLogs == nil {
		return
	}
	now := time.Now()
	entry := &models.MessageLog{
		ID:          uuid.NewString(),
		SalonID:     salonID,
		Direction:   models.DirectionOutbound,
		Phone:       phone,
		WAMessageID: waMessageID,
		Type:        "reminder",
		Content:     text,
		Status:      models.DeliverySent,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if sendErr != nil {
		entry.Status = models.DeliveryFailed
		entry.ErrorMessage = sendErr.Error()
	}
	if err := s.MessageLogs.Insert(ctx, entry); err != nil {
		s.Logger.Warn("Failed to log reminder", zap.Error(err))
	}
}

func appointmentStart(appt *models.Appointment, loc *time.Location) (time.Time, error) {
	minutes, err := utils.ParseClock(appt.StartTime)
	if err != nil {
		return time.Time{}, err
	}
	return utils.At(appt.Date, minutes, loc)
}
