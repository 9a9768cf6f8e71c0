package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	conversationRepo "salondesk/database/repository/conversation"
	customerRepo "salondesk/database/repository/customer"
	directoryRepo "salondesk/database/repository/directory"
	"salondesk/models"
	"salondesk/services/availability"
	"salondesk/services/booking"
	"salondesk/services/channel"
	"salondesk/services/intelligence"
	"salondesk/services/payment"
	"salondesk/utils"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	fallbackEmptyReply     = "Sorry, I'm having a technical issue right now. Please try again in a moment."
	fallbackExhaustedReply = "Sorry, I couldn't complete that just now. Could you please say that again?"
	defaultHistoryLimit    = 50
	idleSweepBatch         = 500
)

// notExecutedPayload answers tool calls left over when the round budget runs out.
var notExecutedPayload = encodeResult(errorResult("not executed: tool round limit reached"))

// Config bounds the tool loop and the model calls. StaleAfter is the idle
// horizon used by the periodic session sweep, which pages SweepBatch
// sessions at a time.
type Config struct {
	MaxToolRounds   int
	MaxContextTurns int
	SessionTimeout  time.Duration
	StaleAfter      time.Duration
	SweepBatch      int
	Temperature     float32
	MaxOutputTokens int32
	ModelTimeout    time.Duration
	ModelRetries    uint64
	RetryBase       time.Duration
	DefaultRegion   string
}

func DefaultConfig() Config {
	return Config{
		MaxToolRounds:   5,
		MaxContextTurns: 20,
		SessionTimeout:  30 * time.Minute,
		StaleAfter:      24 * time.Hour,
		SweepBatch:      idleSweepBatch,
		Temperature:     0.7,
		MaxOutputTokens: 500,
		ModelTimeout:    30 * time.Second,
		ModelRetries:    2,
		RetryBase:       500 * time.Millisecond,
		DefaultRegion:   "IN",
	}
}

// InboundMessage is one customer message addressed to a salon. ProfileName,
// when known, names a first-time customer.
type InboundMessage struct {
	SalonID           string
	Phone             string
	Text              string
	ProviderMessageID string
	ProfileName       string
}

type ReplyPayload struct {
	Text     string       `json:"text"`
	WhatsApp models.Reply `json:"whatsapp"`
}

type CustomerSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	IsNew bool   `json:"isNew"`
}

// Result is the outcome of one customer turn.
type Result struct {
	Reply           ReplyPayload             `json:"reply"`
	ConversationID  string                   `json:"conversationId"`
	State           models.ConversationState `json:"state"`
	Customer        CustomerSummary          `json:"customer"`
	PaymentLink     string                   `json:"paymentLink,omitempty"`
	PaymentRequired bool                     `json:"paymentRequired"`
}

// MessageHandler processes one customer turn.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg InboundMessage) (*Result, error)
}

// Orchestrator drives the tool-calling conversation for every salon.
type Orchestrator struct {
	Directory     directoryRepo.DirectoryRepository
	Customers     customerRepo.CustomerRepository
	Conversations conversationRepo.ConversationRepository
	Availability  availability.AvailabilityService
	Booking       booking.BookingService
	Payments      payment.PaymentService
	Model         intelligence.Model
	Sessions      SessionLocker
	Config        Config
	Logger        *zap.Logger
	Now           func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// HandleMessage runs one customer turn end to end. Turns for the same salon
// and phone are serialized.
func (o *Orchestrator) HandleMessage(ctx context.Context, msg InboundMessage) (*Result, error) {
	text := strings.TrimSpace(msg.Text)
	if msg.SalonID == "" || msg.Phone == "" || text == "" {
		return nil, utils.InvalidInput("salonId, phone and text are required")
	}
	phone := channel.NormalizePhone(msg.Phone, o.Config.DefaultRegion)

	release, err := o.Sessions.Lock(ctx, msg.SalonID, phone)
	if err != nil {
		return nil, err
	}
	defer release()

	now := o.now()
	venue, err := o.Directory.GetVenue(ctx, msg.SalonID)
	if err != nil {
		return nil, err
	}
	customer, err := o.resolveCustomer(ctx, venue.ID, phone, msg.ProfileName, now)
	if err != nil {
		return nil, err
	}
	conv, err := o.resolveSession(ctx, venue.ID, customer.ID, phone, now)
	if err != nil {
		return nil, err
	}

	services, err := o.Directory.ListActiveServices(ctx, venue.ID, "")
	if err != nil {
		return nil, err
	}
	offers, err := o.Directory.ListActiveOffers(ctx, venue.ID, now)
	if err != nil {
		return nil, err
	}
	ts := &turnState{venue: venue, customer: customer, conv: conv, services: services, offers: offers}
	system := Briefing{Venue: venue, Services: services, Offers: offers, Now: now}.SystemPrompt()

	turnStart := len(conv.Transcript)
	conv.Transcript = append(conv.Transcript, models.UserTurn{Text: text, Timestamp: now})
	if conv.State == models.StateGreeting && turnStart > 0 {
		conv.State = models.StateIntentDetection
	}

	reply, err := o.runLoop(ctx, ts, system, turnStart)
	if err != nil {
		// Keep the customer's message even when the model is unreachable.
		conv.LastActivityAt = now
		if saveErr := o.Conversations.Save(ctx, conv); saveErr != nil {
			o.Logger.Error("Failed to save conversation", zap.String("conversationId", conv.ID), zap.Error(saveErr))
		}
		return nil, err
	}

	conv.Transcript = append(conv.Transcript, models.AssistantTurn{Text: reply, Timestamp: o.now()})
	conv.Metadata.TotalTurns++
	conv.LastActivityAt = o.now()
	if err := o.Conversations.Save(ctx, conv); err != nil {
		return nil, err
	}

	return &Result{
		Reply:          ReplyPayload{Text: reply, WhatsApp: channel.FormatReply(reply)},
		ConversationID: conv.ID,
		State:          conv.State,
		Customer: CustomerSummary{
			ID:    customer.ID,
			Name:  customer.Name,
			Phone: customer.Phone,
			IsNew: customer.TotalVisits == 0,
		},
		PaymentLink:     ts.paymentLink,
		PaymentRequired: ts.paymentRequired,
	}, nil
}

// runLoop alternates model calls and tool execution until the model answers
// without tool calls or the round budget runs out.
func (o *Orchestrator) runLoop(ctx context.Context, ts *turnState, system string, turnStart int) (string, error) {
	conv := ts.conv
	for round := 0; round < o.Config.MaxToolRounds; round++ {
		resp, err := o.complete(ctx, intelligence.Request{
			System:          system,
			Turns:           contextWindow(conv.Transcript, turnStart, o.Config.MaxContextTurns),
			Tools:           ToolSpecs,
			Temperature:     o.Config.Temperature,
			MaxOutputTokens: o.Config.MaxOutputTokens,
		})
		if err != nil {
			return "", err
		}
		if len(resp.ToolCalls) == 0 {
			if strings.TrimSpace(resp.Text) == "" {
				return fallbackEmptyReply, nil
			}
			return resp.Text, nil
		}
		exhausted := round == o.Config.MaxToolRounds-1
		if exhausted {
			o.Logger.Warn("Tool round budget exhausted",
				zap.String("conversationId", conv.ID), zap.Int("pendingCalls", len(resp.ToolCalls)))
		}

		conv.Transcript = append(conv.Transcript, models.AssistantTurn{Text: resp.Text, ToolCalls: resp.ToolCalls, Timestamp: o.now()})
		// Sequential: later calls may depend on earlier side effects.
		for _, call := range resp.ToolCalls {
			payload := notExecutedPayload
			if !exhausted {
				payload = o.runTool(ctx, ts, call)
			}
			conv.Transcript = append(conv.Transcript, models.ToolResultTurn{
				CallID:    call.ID,
				ToolName:  call.Name,
				Payload:   payload,
				Timestamp: o.now(),
			})
		}
		if exhausted {
			return fallbackExhaustedReply, nil
		}
	}
	return fallbackExhaustedReply, nil
}

// contextWindow returns the trailing turns sent to the model. The current
// turn is always included in full, even if it alone exceeds n.
func contextWindow(t models.Transcript, turnStart, n int) models.Transcript {
	window := t.Window(n)
	if len(window) >= len(t)-turnStart {
		return window
	}
	out := make(models.Transcript, len(t)-turnStart)
	copy(out, t[turnStart:])
	return out
}

// complete calls the model with a per-attempt timeout and bounded retries.
func (o *Orchestrator) complete(ctx context.Context, req intelligence.Request) (*intelligence.Response, error) {
	base := o.Config.RetryBase
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	backoff := retry.WithMaxRetries(o.Config.ModelRetries, retry.NewExponential(base))

	var resp *intelligence.Response
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		callCtx := ctx
		if o.Config.ModelTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, o.Config.ModelTimeout)
			defer cancel()
		}
		r, err := o.Model.Complete(callCtx, req)
		if err != nil {
			o.Logger.Warn("Model call failed", zap.Int("attempt", attempt), zap.Error(err))
			return retry.RetryableError(err)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, utils.Upstream("language model", err)
	}
	return resp, nil
}

func (o *Orchestrator) resolveCustomer(ctx context.Context, salonID, phone, profileName string, now time.Time) (*models.Customer, error) {
	name := strings.TrimSpace(profileName)
	if name == "" {
		name = defaultCustomerName(phone)
	}
	customer, created, err := o.Customers.FindOrCreate(ctx, &models.Customer{
		ID:        uuid.NewString(),
		SalonID:   salonID,
		Name:      name,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	if created {
		o.Logger.Info("New customer", zap.String("salonId", salonID), zap.String("customerId", customer.ID))
	}
	return customer, nil
}

func defaultCustomerName(phone string) string {
	digits := channel.WireNumber(phone)
	if len(digits) > 4 {
		digits = digits[len(digits)-4:]
	}
	return "Customer " + digits
}

// resolveSession returns the active session for phone, replacing it when it
// has been idle past the session timeout.
func (o *Orchestrator) resolveSession(ctx context.Context, salonID, customerID, phone string, now time.Time) (*models.Conversation, error) {
	conv, err := o.Conversations.FindActive(ctx, salonID, phone)
	switch {
	case err == nil:
		if !SessionExpired(now, conv.LastActivityAt, o.Config.SessionTimeout) {
			return conv, nil
		}
		if err := o.Conversations.Deactivate(ctx, conv.ID); err != nil {
			return nil, err
		}
		o.Logger.Info("Session expired", zap.String("conversationId", conv.ID))
	case !errors.Is(err, utils.ErrNotFound):
		return nil, err
	}

	conv = &models.Conversation{
		ID:             uuid.NewString(),
		SalonID:        salonID,
		CustomerID:     customerID,
		Phone:          phone,
		State:          models.StateGreeting,
		Transcript:     models.Transcript{},
		IsActive:       true,
		LastActivityAt: now,
		CreatedAt:      now,
	}
	if err := o.Conversations.Create(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// History returns the phone's past sessions, newest first.
func (o *Orchestrator) History(ctx context.Context, salonID, phone string, limit int) ([]models.Conversation, error) {
	if salonID == "" || phone == "" {
		return nil, utils.InvalidInput("salonId and phone are required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	return o.Conversations.ListByPhone(ctx, salonID, channel.NormalizePhone(phone, o.Config.DefaultRegion), int64(limit))
}

// ExpireIdleSessions deactivates sessions idle past the stale horizon and
// returns how many were closed.
func (o *Orchestrator) ExpireIdleSessions(ctx context.Context, now time.Time) (int, error) {
	horizon := o.Config.StaleAfter
	if horizon <= 0 {
		horizon = o.Config.SessionTimeout
	}
	batch := o.Config.SweepBatch
	if batch <= 0 {
		batch = idleSweepBatch
	}

	expired := 0
	for {
		idle, err := o.Conversations.ListActiveIdleSince(ctx, now.Add(-horizon), int64(batch))
		if err != nil {
			return expired, err
		}
		closed := 0
		for _, conv := range idle {
			if !SessionExpired(now, conv.LastActivityAt, horizon) {
				continue
			}
			if err := o.Conversations.Deactivate(ctx, conv.ID); err != nil {
				o.Logger.Warn("Failed to deactivate session", zap.String("conversationId", conv.ID), zap.Error(err))
				continue
			}
			closed++
		}
		expired += closed
		// A short batch is the last one; a batch with no progress would repeat forever.
		if len(idle) < batch || closed == 0 {
			break
		}
	}
	if expired > 0 {
		o.Logger.Info("Expired idle sessions", zap.Int("count", expired))
	}
	return expired, nil
}
