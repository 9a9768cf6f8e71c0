package models

import "time"

type AppointmentStatus string

const (
	StatusPending    AppointmentStatus = "pending"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in-progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no-show"
)

// Blocking reports whether an appointment in this status still occupies its slot.
func (s AppointmentStatus) Blocking() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type BookingChannel string

const (
	BookedViaWhatsApp  BookingChannel = "whatsapp"
	BookedViaDashboard BookingChannel = "dashboard"
	BookedViaWalkIn    BookingChannel = "walkin"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// AppointmentPayment tracks the payment link issued for a booking.
type AppointmentPayment struct {
	Status  PaymentStatus `bson:"status" json:"status"`
	LinkID  string        `bson:"linkId,omitempty" json:"linkId,omitempty"`
	LinkURL string        `bson:"linkUrl,omitempty" json:"linkUrl,omitempty"`
	Amount  float64       `bson:"amount" json:"amount"`
	PaidAt  *time.Time    `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
}

type Appointment struct {
	ID            string              `bson:"id" json:"id"`
	SalonID       string              `bson:"salonId" json:"salonId"`
	CustomerID    string              `bson:"customerId" json:"customerId"`
	ServiceID     string              `bson:"serviceId" json:"serviceId"`
	ServiceName   string              `bson:"serviceName" json:"serviceName"`
	StaffID       string              `bson:"staffId" json:"staffId"`
	StaffName     string              `bson:"staffName" json:"staffName"`
	Date          string              `bson:"date" json:"date"`           // "YYYY-MM-DD"
	StartTime     string              `bson:"startTime" json:"startTime"` // "HH:MM"
	EndTime       string              `bson:"endTime" json:"endTime"`
	Duration      int                 `bson:"duration" json:"duration"`
	Price         float64             `bson:"price" json:"price"`
	Status        AppointmentStatus   `bson:"status" json:"status"`
	CancelReason  string              `bson:"cancelReason,omitempty" json:"cancelReason,omitempty"`
	Notes         string              `bson:"notes,omitempty" json:"notes,omitempty"`
	BookedVia     BookingChannel      `bson:"bookedVia" json:"bookedVia"`
	Payment       *AppointmentPayment `bson:"payment,omitempty" json:"payment,omitempty"`
	RemindersSent []int               `bson:"remindersSent,omitempty" json:"remindersSent,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// ReminderSent reports whether the reminder for minutesBefore already went out.
func (a *Appointment) ReminderSent(minutesBefore int) bool {
	for _, m := range a.RemindersSent {
		if m == minutesBefore {
			return true
		}
	}
	return false
}

// Slot is a bookable (start, end, staff) triple.
type Slot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	StaffID   string `json:"staffId"`
	StaffName string `json:"staffName"`
}
