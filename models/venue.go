package models

import (
	"strings"
	"time"
)

// Weekday is the lowercase English day name used in hour tables.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

// Weekdays lists days in display order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var goWeekdays = map[time.Weekday]Weekday{
	time.Sunday:    Sunday,
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
}

// WeekdayOf maps a time onto the hour-table day name.
func WeekdayOf(t time.Time) Weekday {
	return goWeekdays[t.Weekday()]
}

// WorkingHours is one row of the venue hour table.
type WorkingHours struct {
	Day       Weekday `bson:"day" json:"day"`
	IsOpen    bool    `bson:"isOpen" json:"isOpen"`
	OpenTime  string  `bson:"openTime" json:"openTime"`   // "HH:MM"
	CloseTime string  `bson:"closeTime" json:"closeTime"` // "HH:MM"
}

type Address struct {
	Street  string `bson:"street,omitempty" json:"street,omitempty"`
	City    string `bson:"city,omitempty" json:"city,omitempty"`
	State   string `bson:"state,omitempty" json:"state,omitempty"`
	Pincode string `bson:"pincode,omitempty" json:"pincode,omitempty"`
}

// String joins the non-empty address parts.
func (a Address) String() string {
	var parts []string
	for _, p := range []string{a.Street, a.City, a.State, a.Pincode} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

type PaymentMode string

const (
	PaymentOptional PaymentMode = "optional"
	PaymentRequired PaymentMode = "required"
)

// PaymentSettings controls whether bookings trigger a payment link.
type PaymentSettings struct {
	Enabled  bool        `bson:"enabled" json:"enabled"`
	Mode     PaymentMode `bson:"mode" json:"mode"`
	Currency string      `bson:"currency,omitempty" json:"currency,omitempty"`
}

// ChannelSettings holds the venue's WhatsApp Cloud API binding.
type ChannelSettings struct {
	PhoneNumberID string `bson:"phoneNumberId" json:"phoneNumberId"`
	AccessToken   string `bson:"accessToken" json:"-"`
	DisplayPhone  string `bson:"displayPhone,omitempty" json:"displayPhone,omitempty"`
	IsConnected   bool   `bson:"isConnected" json:"isConnected"`
}

// Venue is the owner's salon. Its ID is the owner id used across the domain.
type Venue struct {
	ID           string          `bson:"id" json:"id"`
	Name         string          `bson:"name" json:"name"`
	Phone        string          `bson:"phone" json:"phone"`
	Address      Address         `bson:"address" json:"address"`
	WorkingHours []WorkingHours  `bson:"workingHours" json:"workingHours"`
	SlotDuration int             `bson:"slotDuration" json:"slotDuration"` // grid step in minutes
	BufferTime   int             `bson:"bufferTime" json:"bufferTime"`     // gap after each booking
	Holidays     []string        `bson:"holidays" json:"holidays"`         // "YYYY-MM-DD"
	Payment      PaymentSettings `bson:"payment" json:"payment"`
	WhatsApp     ChannelSettings `bson:"whatsapp" json:"whatsapp"`
	Reminders    []int           `bson:"reminders,omitempty" json:"reminders,omitempty"` // minutes before start
	IsActive     bool            `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// DefaultWorkingHours is Monday to Saturday 09:00-21:00, closed Sunday.
func DefaultWorkingHours() []WorkingHours {
	hours := make([]WorkingHours, 0, len(Weekdays))
	for _, d := range Weekdays {
		hours = append(hours, WorkingHours{Day: d, IsOpen: d != Sunday, OpenTime: "09:00", CloseTime: "21:00"})
	}
	return hours
}

// HoursFor returns the row for day, if the table has one.
func (v *Venue) HoursFor(day Weekday) (WorkingHours, bool) {
	for _, wh := range v.WorkingHours {
		if wh.Day == day {
			return wh, true
		}
	}
	return WorkingHours{}, false
}

func (v *Venue) IsHoliday(date string) bool {
	for _, h := range v.Holidays {
		if h == date {
			return true
		}
	}
	return false
}

// VenueSettings is the owner-facing mutation of scheduling settings. Nil fields are left unchanged.
type VenueSettings struct {
	WorkingHours []WorkingHours   `json:"workingHours,omitempty" binding:"omitempty,dive"`
	SlotDuration *int             `json:"slotDuration,omitempty" binding:"omitempty,oneof=15 30 45 60"`
	BufferTime   *int             `json:"bufferTime,omitempty" binding:"omitempty,min=0,max=60"`
	Holidays     []string         `json:"holidays,omitempty"`
	Payment      *PaymentSettings `json:"payment,omitempty"`
	Reminders    []int            `json:"reminders,omitempty"`
}
