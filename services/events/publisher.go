package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"salondesk/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event types emitted by the booking engine.
const (
	TypeAppointmentCreated       = "appointment.created"
	TypeAppointmentStatusChanged = "appointment.status_changed"
	TypePaymentUpdated           = "appointment.payment_updated"
)

const (
	headerEventID   = "event-id"
	headerEventType = "event-type"
	headerSource    = "source"
)

// Event is the payload written for every appointment change.
type Event struct {
	ID            string                   `json:"id"`
	Type          string                   `json:"type"`
	SalonID       string                   `json:"salonId"`
	AppointmentID string                   `json:"appointmentId"`
	CustomerID    string                   `json:"customerId,omitempty"`
	From          models.AppointmentStatus `json:"from,omitempty"`
	Status        models.AppointmentStatus `json:"status"`
	Reason        string                   `json:"reason,omitempty"`
	At            time.Time                `json:"at"`
}

// AppointmentEvent builds an event for appt with a fresh id.
func AppointmentEvent(eventType string, appt *models.Appointment, from models.AppointmentStatus, at time.Time) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		SalonID:       appt.SalonID,
		AppointmentID: appt.ID,
		CustomerID:    appt.CustomerID,
		From:          from,
		Status:        appt.Status,
		Reason:        appt.CancelReason,
		At:            at,
	}
}

// Publisher delivers domain events. Delivery is best effort; callers log failures.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// KafkaPublisher writes events to a single topic keyed by salon, so one
// salon's events stay ordered on a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	mu     sync.RWMutex
	closed bool
}

func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic cannot be empty")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		Logger:       kafka.LoggerFunc(func(string, ...any) {}),
	}
	return &KafkaPublisher{writer: writer}, nil
}

// Message converts ev into the kafka record written by Publish.
func Message(ev Event) (kafka.Message, error) {
	value, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(ev.SalonID),
		Value: value,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: headerEventID, Value: []byte(ev.ID)},
			{Key: headerEventType, Value: []byte(ev.Type)},
			{Key: headerSource, Value: []byte("salondesk")},
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("publisher closed")
	}
	msg, err := Message(ev)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.writer.Close()
}

// NopPublisher discards events; used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}
