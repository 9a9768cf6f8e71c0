package models

import "time"

// Service is a bookable catalog entry. Duration and price are copied into
// appointments at creation time.
type Service struct {
	ID          string    `bson:"id" json:"id"`
	SalonID     string    `bson:"salonId" json:"salonId"`
	Name        string    `bson:"name" json:"name"`
	Category    string    `bson:"category" json:"category"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Duration    int       `bson:"duration" json:"duration"` // minutes
	Price       float64   `bson:"price" json:"price"`
	IsActive    bool      `bson:"isActive" json:"isActive"`
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}
