package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	appointmentRepo "salondesk/database/repository/appointment"
	"salondesk/models"
	"salondesk/services/events"
	"salondesk/utils"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

// PaymentReference is what the customer is sent to pay for one appointment.
type PaymentReference struct {
	LinkID   string `json:"linkId"`
	URL      string `json:"url"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	Required bool   `json:"required"`
}

// PaymentService issues payment links and applies provider callbacks.
type PaymentService interface {
	RequestPaymentReference(ctx context.Context, venue *models.Venue, appt *models.Appointment, customer *models.Customer) (*PaymentReference, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// CheckoutCreator is the slice of the Stripe client used here.
type CheckoutCreator interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type Config struct {
	WebhookSecret   string
	DefaultCurrency string
	SuccessURL      string
	CancelURL       string
}

type StripePaymentService struct {
	Checkout     CheckoutCreator
	Appointments appointmentRepo.AppointmentRepository
	Events       events.Publisher
	Config       Config
	Logger       *zap.Logger
	Now          func() time.Time
}

func NewStripePaymentService(checkout CheckoutCreator, appts appointmentRepo.AppointmentRepository, publisher events.Publisher, cfg Config, logger *zap.Logger) *StripePaymentService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &StripePaymentService{
		Checkout:     checkout,
		Appointments: appts,
		Events:       publisher,
		Config:       cfg,
		Logger:       logger,
		Now:          time.Now,
	}
}

// zeroDecimal lists the currencies Stripe charges in whole units.
var zeroDecimal = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true, "kmf": true,
	"krw": true, "mga": true, "pyg": true, "rwf": true, "ugx": true, "vnd": true,
	"vuv": true, "xaf": true, "xof": true, "xpf": true,
}

// MinorUnits converts a price into the smallest unit of currency.
func MinorUnits(price float64, currency string) int64 {
	if zeroDecimal[strings.ToLower(currency)] {
		return int64(math.Round(price))
	}
	return int64(math.Round(price * 100))
}

// RequestPaymentReference opens a Checkout session for the appointment and
// records it on the appointment's payment sub-record.
func (s *StripePaymentService) RequestPaymentReference(ctx context.Context, venue *models.Venue, appt *models.Appointment, customer *models.Customer) (*PaymentReference, error) {
	if !venue.Payment.Enabled {
		return nil, utils.InvalidInput("payments are not enabled for %s", venue.Name)
	}
	currency := strings.ToLower(venue.Payment.Currency)
	if currency == "" {
		currency = strings.ToLower(s.Config.DefaultCurrency)
	}
	amount := MinorUnits(appt.Price, currency)
	if amount <= 0 {
		return nil, utils.InvalidInput("appointment %s has nothing to pay", appt.ID)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.Config.SuccessURL),
		CancelURL:         stripe.String(s.Config.CancelURL),
		ClientReferenceID: stripe.String(appt.ID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("%s at %s, %s %s", appt.ServiceName, venue.Name, appt.Date, appt.StartTime)),
				},
			},
		}},
	}
	params.Context = ctx
	params.AddMetadata("appointmentId", appt.ID)
	params.AddMetadata("salonId", venue.ID)
	params.AddMetadata("customerId", customer.ID)

	sess, err := s.Checkout.New(params)
	if err != nil {
		return nil, utils.Upstream("stripe", err)
	}

	ref := &PaymentReference{
		LinkID:   sess.ID,
		URL:      sess.URL,
		Amount:   amount,
		Currency: currency,
		Required: venue.Payment.Mode == models.PaymentRequired,
	}
	err = s.Appointments.SetPayment(ctx, appt.ID, models.AppointmentPayment{
		Status:  models.PaymentPending,
		LinkID:  ref.LinkID,
		LinkURL: ref.URL,
		Amount:  appt.Price,
	})
	if err != nil {
		// The link exists at Stripe; without the record the webhook cannot match it.
		return nil, fmt.Errorf("record payment link: %w", err)
	}

	s.Logger.Info("payment link created",
		zap.String("appointmentID", appt.ID),
		zap.String("sessionID", sess.ID),
		zap.Int64("amount", amount))
	return ref, nil
}

// HandleWebhook verifies the Stripe-Signature header and applies checkout
// session outcomes. Unknown event types are ignored.
func (s *StripePaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.Config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return utils.InvalidInput("invalid webhook signature").WithDetails(map[string]any{"reason": err.Error()})
	}

	var status models.PaymentStatus
	switch string(event.Type) {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		status = models.PaymentPaid
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		status = models.PaymentFailed
	default:
		s.Logger.Debug("ignoring stripe event", zap.String("type", string(event.Type)))
		return nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return utils.InvalidInput("malformed checkout session: %v", err)
	}
	// A completed session can still be awaiting a delayed payment method.
	if status == models.PaymentPaid && sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		return nil
	}

	appt, err := s.Appointments.FindByPaymentLinkID(ctx, sess.ID)
	if err != nil {
		return err
	}
	if appt.Payment != nil && appt.Payment.Status == models.PaymentPaid {
		return nil
	}

	record := models.AppointmentPayment{Status: status, LinkID: sess.ID, Amount: appt.Price}
	if appt.Payment != nil {
		record = *appt.Payment
		record.Status = status
	}
	if status == models.PaymentPaid {
		now := s.Now()
		record.PaidAt = &now
	}
	if err := s.Appointments.SetPayment(ctx, appt.ID, record); err != nil {
		return err
	}
	appt.Payment = &record

	s.Logger.Info("payment status updated",
		zap.String("appointmentID", appt.ID), zap.String("status", string(status)))
	if err := s.Events.Publish(ctx, events.AppointmentEvent(events.TypePaymentUpdated, appt, appt.Status, s.Now())); err != nil {
		s.Logger.Warn("failed to publish payment event", zap.Error(err))
	}
	return nil
}
