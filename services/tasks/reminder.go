package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"salondesk/models"
	"salondesk/utils"

	"github.com/hibiken/asynq"
)

const (
	TypeReminderScan = "reminder:scan"
	TypeReminderSend = "reminder:send"
	TypeNoShowSweep  = "booking:no-show"
	TypeCleanup      = "maintenance:cleanup"
)

// ReminderPayload identifies one reminder of one appointment.
type ReminderPayload struct {
	SalonID       string `json:"salonId"`
	AppointmentID string `json:"appointmentId"`
	MinutesBefore int    `json:"minutesBefore"`
}

// ReminderTaskID is unique per appointment and offset so a reminder is
// enqueued at most once while the task is retained.
func ReminderTaskID(p ReminderPayload) string {
	return fmt.Sprintf("reminder:%s:%d", p.AppointmentID, p.MinutesBefore)
}

func NewReminderTask(payload ReminderPayload, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeReminderSend, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID(ReminderTaskID(payload)),
		asynq.MaxRetry(3),
		asynq.Retention(24 * time.Hour),
	}
	return task, opts, nil
}

// BuildReminderMessage renders the customer-facing reminder text.
func BuildReminderMessage(appt *models.Appointment, venueName string, minutesBefore int) string {
	var lead string
	switch {
	case minutesBefore >= 120:
		lead = fmt.Sprintf("%d hours", (minutesBefore+30)/60)
	case minutesBefore >= 60:
		lead = "1 hour"
	default:
		lead = fmt.Sprintf("%d minutes", minutesBefore)
	}

	date := appt.Date
	if d, err := utils.ParseDate(appt.Date, time.Local); err == nil {
		date = d.Format("02/01/2006")
	}

	return fmt.Sprintf("Reminder: your appointment at %s is in %s!\n\n"+
		"Service: %s\nDate: %s\nTime: %s\n\n"+
		"Please arrive on time. If you need to cancel, just reply to this message.",
		venueName, lead, appt.ServiceName, date, twelveHour(appt.StartTime))
}

func twelveHour(clock string) string {
	minutes, err := utils.ParseClock(clock)
	if err != nil {
		return clock
	}
	h, m := minutes/60, minutes%60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	if h%12 == 0 {
		return fmt.Sprintf("12:%02d %s", m, suffix)
	}
	return fmt.Sprintf("%d:%02d %s", h%12, m, suffix)
}
