package availability

import (
	"fmt"
	"sort"
	"time"

	"salondesk/models"
	"salondesk/utils"
)

// DefaultSlotDuration is the grid step used when a salon has none configured.
const DefaultSlotDuration = 30

// Reasons an otherwise valid query yields no slots.
const (
	ReasonHoliday = "holiday"
	ReasonClosed  = "closed"
	ReasonNoStaff = "no_staff"
)

// Input is everything the calculator needs, already loaded.
type Input struct {
	Venue   models.Venue
	Service models.Service
	// Staff are the eligible staff members; the calculator still checks their hours.
	Staff []models.Staff
	// Appointments are the blocking appointments on Date for those staff.
	Appointments []models.Appointment
	Date         string
}

type interval struct {
	start, end int
}

// ClosedReason reports why a salon takes no bookings on date, or "" when open.
func ClosedReason(venue *models.Venue, date string) (string, error) {
	day, err := utils.ParseDate(date, time.UTC)
	if err != nil {
		return "", utils.InvalidInput("date must be YYYY-MM-DD")
	}
	if venue.IsHoliday(date) {
		return ReasonHoliday, nil
	}
	hours, ok := venue.HoursFor(models.WeekdayOf(day))
	if !ok || !hours.IsOpen {
		return ReasonClosed, nil
	}
	return "", nil
}

// ComputeSlots walks each staff member's window on the salon grid and keeps
// candidates that do not overlap any booking extended by the buffer after its end.
// The buffer is applied after existing bookings only, never before them.
func ComputeSlots(in Input) ([]models.Slot, error) {
	if reason, err := ClosedReason(&in.Venue, in.Date); err != nil || reason != "" {
		return nil, err
	}
	day, _ := utils.ParseDate(in.Date, time.UTC)
	weekday := models.WeekdayOf(day)
	venueHours, _ := in.Venue.HoursFor(weekday)

	open, err := utils.ParseClock(venueHours.OpenTime)
	if err != nil {
		return nil, utils.Internal("salon opening time is malformed", err)
	}
	closeAt, err := utils.ParseClock(venueHours.CloseTime)
	if err != nil {
		return nil, utils.Internal("salon closing time is malformed", err)
	}

	step := in.Venue.SlotDuration
	if step <= 0 {
		step = DefaultSlotDuration
	}
	buffer := in.Venue.BufferTime
	if buffer < 0 {
		buffer = 0
	}
	duration := in.Service.Duration
	if duration <= 0 {
		return nil, utils.Internal(fmt.Sprintf("service %s has no duration", in.Service.ID), nil)
	}

	booked := make(map[string][]interval)
	for _, a := range in.Appointments {
		if !a.Status.Blocking() {
			continue
		}
		s, err := utils.ParseClock(a.StartTime)
		if err != nil {
			return nil, utils.Internal("appointment start time is malformed", err)
		}
		e, err := utils.ParseClock(a.EndTime)
		if err != nil {
			return nil, utils.Internal("appointment end time is malformed", err)
		}
		booked[a.StaffID] = append(booked[a.StaffID], interval{start: s, end: e + buffer})
	}

	var slots []models.Slot
	for _, staff := range in.Staff {
		hours, ok := staff.HoursFor(weekday)
		if !ok || !hours.IsAvailable {
			continue
		}
		staffStart, err := utils.ParseClock(hours.StartTime)
		if err != nil {
			return nil, utils.Internal("staff start time is malformed", err)
		}
		staffEnd, err := utils.ParseClock(hours.EndTime)
		if err != nil {
			return nil, utils.Internal("staff end time is malformed", err)
		}

		windowStart := max(open, staffStart)
		windowEnd := min(closeAt, staffEnd)

		for t := windowStart; t+duration <= windowEnd; t += step {
			if overlapsAny(t, t+duration, booked[staff.ID]) {
				continue
			}
			slots = append(slots, models.Slot{
				StartTime: utils.FormatClock(t),
				EndTime:   utils.FormatClock(t + duration),
				StaffID:   staff.ID,
				StaffName: staff.Name,
			})
		}
	}

	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].StartTime != slots[j].StartTime {
			return slots[i].StartTime < slots[j].StartTime
		}
		return slots[i].StaffName < slots[j].StaffName
	})
	return slots, nil
}

func overlapsAny(start, end int, busy []interval) bool {
	for _, b := range busy {
		if start < b.end && end > b.start {
			return true
		}
	}
	return false
}
