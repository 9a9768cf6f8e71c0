package models

import "time"

type MessageDirection string

const (
	DirectionInbound  MessageDirection = "inbound"
	DirectionOutbound MessageDirection = "outbound"
)

type DeliveryStatus string

const (
	DeliveryReceived  DeliveryStatus = "received"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRead      DeliveryStatus = "read"
	DeliveryFailed    DeliveryStatus = "failed"
)

// MessageLog is the audit trail of channel traffic, keyed by the provider message id.
type MessageLog struct {
	ID           string           `bson:"id" json:"id"`
	SalonID      string           `bson:"salonId" json:"salonId"`
	Direction    MessageDirection `bson:"direction" json:"direction"`
	Phone        string           `bson:"phone" json:"phone"`
	WAMessageID  string           `bson:"waMessageId,omitempty" json:"waMessageId,omitempty"`
	Type         string           `bson:"type" json:"type"`
	Content      string           `bson:"content" json:"content"`
	Status       DeliveryStatus   `bson:"status" json:"status"`
	ErrorMessage string           `bson:"errorMessage,omitempty" json:"errorMessage,omitempty"`
	CreatedAt    time.Time        `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time        `bson:"updatedAt" json:"updatedAt"`
}
