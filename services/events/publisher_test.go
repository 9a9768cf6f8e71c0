package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"salondesk/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage(t *testing.T) {
	at := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	appt := &models.Appointment{ID: "a1", SalonID: "s1", CustomerID: "c1", Status: models.StatusCancelled, CancelReason: "sick"}
	ev := AppointmentEvent(TypeAppointmentStatusChanged, appt, models.StatusConfirmed, at)

	msg, err := Message(ev)
	require.NoError(t, err)
	assert.Equal(t, "s1", string(msg.Key))
	assert.Equal(t, at, msg.Time)

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, models.StatusConfirmed, decoded.From)
	assert.Equal(t, models.StatusCancelled, decoded.Status)
	assert.Equal(t, "sick", decoded.Reason)

	headers := map[string]string{}
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, TypeAppointmentStatusChanged, headers[headerEventType])
	assert.Equal(t, ev.ID, headers[headerEventID])
}

func TestNewKafkaPublisher_Validation(t *testing.T) {
	_, err := NewKafkaPublisher(nil, "topic")
	assert.Error(t, err)
	_, err = NewKafkaPublisher([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	p, err := NewKafkaPublisher([]string{"localhost:9092"}, "topic")
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.Error(t, p.Publish(context.Background(), Event{Type: TypeAppointmentCreated}))
}
