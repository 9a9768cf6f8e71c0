package models

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

type ConversationState string

const (
	StateGreeting         ConversationState = "greeting"
	StateIntentDetection  ConversationState = "intent_detection"
	StateServiceSelection ConversationState = "service_selection"
	StateDateSelection    ConversationState = "date_selection"
	StateSlotSelection    ConversationState = "slot_selection"
	StateConfirmation     ConversationState = "confirmation"
	StateBookingComplete  ConversationState = "booking_complete"
	StateCancellation     ConversationState = "cancellation"
	StateFAQ              ConversationState = "faq"
	StateHumanHandoff     ConversationState = "human_handoff"
)

// ToolCall is one tool invocation requested by the model.
type ToolCall struct {
	ID        string `bson:"id" json:"id"`
	Name      string `bson:"name" json:"name"`
	Arguments string `bson:"arguments" json:"arguments"` // raw JSON object
}

type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
	RoleTool      TurnRole = "tool"
)

// Turn is one transcript entry: a UserTurn, AssistantTurn or ToolResultTurn.
type Turn interface {
	Role() TurnRole
	At() time.Time
}

type UserTurn struct {
	Text      string
	Timestamp time.Time
}

// AssistantTurn carries model text, pending tool calls, or both.
type AssistantTurn struct {
	Text      string
	ToolCalls []ToolCall
	Timestamp time.Time
}

// ToolResultTurn answers the tool call with CallID. Payload is JSON.
type ToolResultTurn struct {
	CallID    string
	ToolName  string
	Payload   string
	Timestamp time.Time
}

func (UserTurn) Role() TurnRole        { return RoleUser }
func (t UserTurn) At() time.Time       { return t.Timestamp }
func (AssistantTurn) Role() TurnRole   { return RoleAssistant }
func (t AssistantTurn) At() time.Time  { return t.Timestamp }
func (ToolResultTurn) Role() TurnRole  { return RoleTool }
func (t ToolResultTurn) At() time.Time { return t.Timestamp }

// Transcript is the ordered turn history of a session.
type Transcript []Turn

// turnRecord is the storage envelope for a Turn.
type turnRecord struct {
	Role       TurnRole   `bson:"role" json:"role"`
	Content    string     `bson:"content,omitempty" json:"content,omitempty"`
	ToolCalls  []ToolCall `bson:"toolCalls,omitempty" json:"toolCalls,omitempty"`
	ToolCallID string     `bson:"toolCallId,omitempty" json:"toolCallId,omitempty"`
	ToolName   string     `bson:"toolName,omitempty" json:"toolName,omitempty"`
	Timestamp  time.Time  `bson:"timestamp" json:"timestamp"`
}

func (t Transcript) records() []turnRecord {
	out := make([]turnRecord, 0, len(t))
	for _, turn := range t {
		switch v := turn.(type) {
		case UserTurn:
			out = append(out, turnRecord{Role: RoleUser, Content: v.Text, Timestamp: v.Timestamp})
		case AssistantTurn:
			out = append(out, turnRecord{Role: RoleAssistant, Content: v.Text, ToolCalls: v.ToolCalls, Timestamp: v.Timestamp})
		case ToolResultTurn:
			out = append(out, turnRecord{Role: RoleTool, Content: v.Payload, ToolCallID: v.CallID, ToolName: v.ToolName, Timestamp: v.Timestamp})
		}
	}
	return out
}

func fromRecords(recs []turnRecord) (Transcript, error) {
	out := make(Transcript, 0, len(recs))
	for i, r := range recs {
		switch r.Role {
		case RoleUser:
			out = append(out, UserTurn{Text: r.Content, Timestamp: r.Timestamp})
		case RoleAssistant:
			out = append(out, AssistantTurn{Text: r.Content, ToolCalls: r.ToolCalls, Timestamp: r.Timestamp})
		case RoleTool:
			out = append(out, ToolResultTurn{CallID: r.ToolCallID, ToolName: r.ToolName, Payload: r.Content, Timestamp: r.Timestamp})
		default:
			return nil, fmt.Errorf("transcript entry %d has unknown role %q", i, r.Role)
		}
	}
	return out, nil
}

func (t Transcript) MarshalBSONValue() (bsontype.Type, []byte, error) {
	return bson.MarshalValue(t.records())
}

func (t *Transcript) UnmarshalBSONValue(typ bsontype.Type, data []byte) error {
	var recs []turnRecord
	if err := (bson.RawValue{Type: typ, Value: data}).Unmarshal(&recs); err != nil {
		return err
	}
	out, err := fromRecords(recs)
	if err != nil {
		return err
	}
	*t = out
	return nil
}

func (t Transcript) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.records())
}

func (t *Transcript) UnmarshalJSON(data []byte) error {
	var recs []turnRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return err
	}
	out, err := fromRecords(recs)
	if err != nil {
		return err
	}
	*t = out
	return nil
}

// Window returns at most n trailing turns, starting on a user turn so the
// window never opens on an orphaned tool call or tool result.
func (t Transcript) Window(n int) Transcript {
	start := 0
	if n > 0 && len(t) > n {
		start = len(t) - n
	}
	for start < len(t) && t[start].Role() != RoleUser {
		start++
	}
	if start >= len(t) {
		return nil
	}
	out := make(Transcript, len(t)-start)
	copy(out, t[start:])
	return out
}

// BookingContext is the scratchpad of what the customer last discussed.
type BookingContext struct {
	ServiceID   string  `bson:"serviceId,omitempty" json:"serviceId,omitempty"`
	ServiceName string  `bson:"serviceName,omitempty" json:"serviceName,omitempty"`
	Date        string  `bson:"date,omitempty" json:"date,omitempty"`
	StartTime   string  `bson:"startTime,omitempty" json:"startTime,omitempty"`
	StaffID     string  `bson:"staffId,omitempty" json:"staffId,omitempty"`
	StaffName   string  `bson:"staffName,omitempty" json:"staffName,omitempty"`
	Price       float64 `bson:"price,omitempty" json:"price,omitempty"`
	Duration    int     `bson:"duration,omitempty" json:"duration,omitempty"`
}

type ConversationMetadata struct {
	TotalTurns       int    `bson:"totalTurns" json:"totalTurns"`
	BookingCompleted bool   `bson:"bookingCompleted" json:"bookingCompleted"`
	HandedOff        bool   `bson:"handedOff" json:"handedOff"`
	HandoffReason    string `bson:"handoffReason,omitempty" json:"handoffReason,omitempty"`
	PaymentLink      string `bson:"paymentLink,omitempty" json:"paymentLink,omitempty"`
	PaymentRequired  bool   `bson:"paymentRequired" json:"paymentRequired"`
}

// Conversation is one session between a customer phone and the assistant.
type Conversation struct {
	ID             string               `bson:"id" json:"id"`
	SalonID        string               `bson:"salonId" json:"salonId"`
	CustomerID     string               `bson:"customerId" json:"customerId"`
	Phone          string               `bson:"phone" json:"phone"`
	State          ConversationState    `bson:"state" json:"state"`
	Transcript     Transcript           `bson:"messages" json:"messages"`
	BookingContext BookingContext       `bson:"bookingContext" json:"bookingContext"`
	Metadata       ConversationMetadata `bson:"metadata" json:"metadata"`
	IsActive       bool                 `bson:"isActive" json:"isActive"`
	LastActivityAt time.Time            `bson:"lastActivityAt" json:"lastActivityAt"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
}
