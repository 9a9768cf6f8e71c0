package models

import "time"

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFlat       DiscountType = "flat"
)

// Offer is a time-boxed promotion shown to customers.
type Offer struct {
	ID            string       `bson:"id" json:"id"`
	SalonID       string       `bson:"salonId" json:"salonId"`
	Title         string       `bson:"title" json:"title"`
	Description   string       `bson:"description,omitempty" json:"description,omitempty"`
	DiscountType  DiscountType `bson:"discountType" json:"discountType"`
	DiscountValue float64      `bson:"discountValue" json:"discountValue"`
	ValidFrom     time.Time    `bson:"validFrom" json:"validFrom"`
	ValidTo       time.Time    `bson:"validTo" json:"validTo"`
	IsActive      bool         `bson:"isActive" json:"isActive"`
}

// ActiveAt reports whether the offer is live at now (bounds inclusive).
func (o *Offer) ActiveAt(now time.Time) bool {
	return o.IsActive && !now.Before(o.ValidFrom) && !now.After(o.ValidTo)
}
