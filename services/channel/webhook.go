package channel

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"salondesk/models"
)

const businessAccountObject = "whatsapp_business_account"

// WebhookPayload is the Cloud API notification envelope.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID      string          `json:"id"`
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Field string      `json:"field"`
	Value changeValue `json:"value"`
}

type changeValue struct {
	Metadata struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []struct {
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
		WaID string `json:"wa_id"`
	} `json:"contacts"`
	Messages []IncomingMessage `json:"messages"`
	Statuses []StatusEvent     `json:"statuses"`
}

// IncomingMessage is one customer message.
type IncomingMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text,omitempty"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply,omitempty"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply,omitempty"`
	} `json:"interactive,omitempty"`
	Button *struct {
		Text    string `json:"text"`
		Payload string `json:"payload"`
	} `json:"button,omitempty"`
}

// ExtractText returns what the customer said, or "" for media and other unsupported types.
func (m IncomingMessage) ExtractText() string {
	switch m.Type {
	case "text":
		if m.Text != nil {
			return strings.TrimSpace(m.Text.Body)
		}
	case "interactive":
		if m.Interactive == nil {
			return ""
		}
		switch {
		case m.Interactive.Type == "button_reply" && m.Interactive.ButtonReply != nil:
			return m.Interactive.ButtonReply.Title
		case m.Interactive.Type == "list_reply" && m.Interactive.ListReply != nil:
			return m.Interactive.ListReply.Title
		}
	case "button":
		if m.Button != nil {
			return m.Button.Text
		}
	}
	return ""
}

func (m IncomingMessage) SentAt() time.Time {
	return unixOrNow(m.Timestamp)
}

// StatusEvent reports delivery progress of an outbound message.
type StatusEvent struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
	Errors      []struct {
		Code  int    `json:"code"`
		Title string `json:"title"`
	} `json:"errors,omitempty"`
}

// DeliveryStatus maps the provider status; ok is false for statuses we do not track.
func (s StatusEvent) DeliveryStatus() (status models.DeliveryStatus, ok bool) {
	switch s.Status {
	case "sent":
		return models.DeliverySent, true
	case "delivered":
		return models.DeliveryDelivered, true
	case "read":
		return models.DeliveryRead, true
	case "failed":
		return models.DeliveryFailed, true
	}
	return "", false
}

func (s StatusEvent) ErrorMessage() string {
	if len(s.Errors) == 0 {
		return ""
	}
	return fmt.Sprintf("%d: %s", s.Errors[0].Code, s.Errors[0].Title)
}

func (s StatusEvent) At() time.Time {
	return unixOrNow(s.Timestamp)
}

// Batch groups the events addressed to one business phone number.
type Batch struct {
	PhoneNumberID string
	Messages      []IncomingMessage
	Statuses      []StatusEvent
	ContactNames  map[string]string // wa_id -> profile name
}

// ParseWebhook decodes a notification body into per-number batches. Payloads
// for other objects or fields yield no batches.
func ParseWebhook(body []byte) ([]Batch, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	if payload.Object != businessAccountObject {
		return nil, nil
	}

	var batches []Batch
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if change.Field != "messages" || change.Value.Metadata.PhoneNumberID == "" {
				continue
			}
			b := Batch{
				PhoneNumberID: change.Value.Metadata.PhoneNumberID,
				Messages:      change.Value.Messages,
				Statuses:      change.Value.Statuses,
				ContactNames:  map[string]string{},
			}
			for _, c := range change.Value.Contacts {
				if c.Profile.Name != "" {
					b.ContactNames[c.WaID] = c.Profile.Name
				}
			}
			batches = append(batches, b)
		}
	}
	return batches, nil
}

func unixOrNow(ts string) time.Time {
	if secs, err := strconv.ParseInt(ts, 10, 64); err == nil && secs > 0 {
		return time.Unix(secs, 0)
	}
	return time.Now()
}
