package models

import "time"

// StaffHours is a staff member's availability for one weekday.
type StaffHours struct {
	Day         Weekday `bson:"day" json:"day"`
	IsAvailable bool    `bson:"isAvailable" json:"isAvailable"`
	StartTime   string  `bson:"startTime" json:"startTime"`
	EndTime     string  `bson:"endTime" json:"endTime"`
}

type Staff struct {
	ID           string       `bson:"id" json:"id"`
	SalonID      string       `bson:"salonId" json:"salonId"`
	Name         string       `bson:"name" json:"name"`
	Phone        string       `bson:"phone,omitempty" json:"phone,omitempty"`
	Services     []string     `bson:"services" json:"services"` // offered service ids
	WorkingHours []StaffHours `bson:"workingHours" json:"workingHours"`
	IsActive     bool         `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time    `bson:"createdAt" json:"createdAt"`
}

// Offers reports whether the staff member performs the given service.
func (s *Staff) Offers(serviceID string) bool {
	for _, id := range s.Services {
		if id == serviceID {
			return true
		}
	}
	return false
}

func (s *Staff) HoursFor(day Weekday) (StaffHours, bool) {
	for _, h := range s.WorkingHours {
		if h.Day == day {
			return h, true
		}
	}
	return StaffHours{}, false
}
