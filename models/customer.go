package models

import "time"

type Customer struct {
	ID          string     `bson:"id" json:"id"`
	SalonID     string     `bson:"salonId" json:"salonId"`
	Name        string     `bson:"name" json:"name"`
	Phone       string     `bson:"phone" json:"phone"` // E.164, unique per salon
	TotalVisits int        `bson:"totalVisits" json:"totalVisits"`
	LastVisit   *time.Time `bson:"lastVisit,omitempty" json:"lastVisit,omitempty"`
	CreatedAt   time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updatedAt" json:"updatedAt"`
}
