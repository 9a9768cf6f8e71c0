package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"salondesk/models"
	"salondesk/services/availability"
	"salondesk/services/booking"
	"salondesk/utils"

	"go.uber.org/zap"
)

const defaultCancelReason = "Cancelled via WhatsApp"

// turnState is what one HandleMessage call works on. Tools mutate conv.
type turnState struct {
	venue    *models.Venue
	customer *models.Customer
	conv     *models.Conversation
	services []models.Service
	offers   []models.Offer

	// paymentLink is set when this turn issued a payment link.
	paymentLink     string
	paymentRequired bool
}

// runTool executes call and returns the JSON payload to record as its result.
// Failures are reported to the model as {"success":false,"error":...}.
func (o *Orchestrator) runTool(ctx context.Context, ts *turnState, call models.ToolCall) string {
	inv, err := DecodeToolCall(call)
	if err != nil {
		o.Logger.Warn("Rejected tool call", zap.String("tool", call.Name), zap.Error(err))
		return encodeResult(errorResult(err.Error()))
	}

	result, err := o.execute(ctx, ts, inv)
	if err != nil {
		appErr := utils.AsAppError(err)
		switch appErr.Code {
		case utils.CodeNotFound, utils.CodeInvalidInput, utils.CodeInvalidTransition, utils.CodeSlotUnavailable:
			o.Logger.Info("Tool returned an error", zap.String("tool", call.Name), zap.String("code", appErr.Code))
		default:
			o.Logger.Error("Tool failed", zap.String("tool", call.Name), zap.Error(err))
		}
		return encodeResult(errorResult(appErr.Message))
	}
	return encodeResult(result)
}

func (o *Orchestrator) execute(ctx context.Context, ts *turnState, inv ToolInvocation) (any, error) {
	switch args := inv.(type) {
	case GetServicesArgs:
		return o.getServices(ctx, ts, args)
	case GetAvailableSlotsArgs:
		return o.getAvailableSlots(ctx, ts, args)
	case CreateBookingArgs:
		return o.createBooking(ctx, ts, args)
	case CancelAppointmentArgs:
		return o.cancelAppointment(ctx, ts, args)
	case GetCustomerAppointmentsArgs:
		return o.getCustomerAppointments(ctx, ts)
	case GetSalonInfoArgs:
		return o.getSalonInfo(ts), nil
	case GetOffersArgs:
		return o.getOffers(ts), nil
	case HandoffArgs:
		return o.handoff(ts, args), nil
	default:
		return nil, utils.ToolExecution(inv.ToolName(), errors.New("no executor registered"))
	}
}

type serviceView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description,omitempty"`
	Duration    int     `json:"duration"`
	Price       float64 `json:"price"`
}

func (o *Orchestrator) getServices(ctx context.Context, ts *turnState, args GetServicesArgs) (any, error) {
	services := ts.services
	if args.Category != "" {
		var err error
		services, err = o.Directory.ListActiveServices(ctx, ts.venue.ID, args.Category)
		if err != nil {
			return nil, utils.ToolExecution(ToolGetServices, err)
		}
	}
	out := make([]serviceView, 0, len(services))
	for _, s := range services {
		out = append(out, serviceView{ID: s.ID, Name: s.Name, Category: s.Category, Description: s.Description, Duration: s.Duration, Price: s.Price})
	}
	if ts.conv.State == models.StateGreeting || ts.conv.State == models.StateIntentDetection {
		ts.conv.State = models.StateServiceSelection
	}
	return map[string]any{"services": out}, nil
}

func (o *Orchestrator) getAvailableSlots(ctx context.Context, ts *turnState, args GetAvailableSlotsArgs) (any, error) {
	res, err := o.Availability.ComputeSlots(ctx, availability.Query{
		SalonID:   ts.venue.ID,
		Date:      args.Date,
		ServiceID: args.ServiceID,
		StaffID:   args.StaffID,
	})
	if err != nil {
		return nil, err
	}

	ts.conv.State = models.StateSlotSelection
	ts.conv.BookingContext.ServiceID = args.ServiceID
	ts.conv.BookingContext.Date = args.Date
	ts.conv.BookingContext.StaffID = args.StaffID
	if res.Service != nil {
		ts.conv.BookingContext.ServiceName = res.Service.Name
		ts.conv.BookingContext.Duration = res.Service.Duration
		ts.conv.BookingContext.Price = res.Service.Price
	}

	out := map[string]any{
		"date":  res.Date,
		"slots": res.Slots,
		"count": len(res.Slots),
	}
	if res.Service != nil {
		out["service"] = res.Service.Name
	}
	if res.Reason != "" {
		out["reason"] = res.Reason
	}
	return out, nil
}

func (o *Orchestrator) createBooking(ctx context.Context, ts *turnState, args CreateBookingArgs) (any, error) {
	appt, err := o.Booking.Create(ctx, booking.CreateRequest{
		SalonID:       ts.venue.ID,
		CustomerID:    ts.customer.ID,
		ServiceID:     args.ServiceID,
		Date:          args.Date,
		StartTime:     args.StartTime,
		StaffID:       args.StaffID,
		Channel:       models.BookedViaWhatsApp,
		InitialStatus: models.StatusConfirmed,
	})
	if err != nil {
		return nil, err
	}

	ts.conv.State = models.StateBookingComplete
	ts.conv.BookingContext = models.BookingContext{
		ServiceID:   appt.ServiceID,
		ServiceName: appt.ServiceName,
		Date:        appt.Date,
		StartTime:   appt.StartTime,
		StaffID:     appt.StaffID,
		StaffName:   appt.StaffName,
		Price:       appt.Price,
		Duration:    appt.Duration,
	}
	ts.conv.Metadata.BookingCompleted = true

	result := map[string]any{
		"success":       true,
		"appointmentId": appt.ID,
		"service":       appt.ServiceName,
		"date":          appt.Date,
		"startTime":     appt.StartTime,
		"endTime":       appt.EndTime,
		"staff":         appt.StaffName,
		"price":         appt.Price,
	}

	if ts.venue.Payment.Enabled && o.Payments != nil {
		required := ts.venue.Payment.Mode == models.PaymentRequired
		result["paymentRequired"] = required
		result["paymentLink"] = nil

		// The booking stands even when the link cannot be issued.
		ref, err := o.Payments.RequestPaymentReference(ctx, ts.venue, appt, ts.customer)
		if err != nil {
			o.Logger.Error("Failed to issue payment link",
				zap.String("salonId", ts.venue.ID), zap.String("appointmentId", appt.ID), zap.Error(err))
		} else {
			result["paymentLink"] = ref.URL
			ts.paymentLink = ref.URL
			ts.paymentRequired = ref.Required
			ts.conv.Metadata.PaymentLink = ref.URL
			ts.conv.Metadata.PaymentRequired = ref.Required
		}
	}
	return result, nil
}

func (o *Orchestrator) cancelAppointment(ctx context.Context, ts *turnState, args CancelAppointmentArgs) (any, error) {
	reason := args.Reason
	if reason == "" {
		reason = defaultCancelReason
	}
	appt, err := o.Booking.CancelForCustomer(ctx, ts.venue.ID, ts.customer.ID, args.AppointmentID, reason)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) || errors.Is(err, utils.ErrInvalidTransition) {
			return errorResult("Appointment not found or it can no longer be cancelled."), nil
		}
		return nil, err
	}
	ts.conv.State = models.StateCancellation
	return map[string]any{
		"success":       true,
		"appointmentId": appt.ID,
		"service":       appt.ServiceName,
		"date":          appt.Date,
		"startTime":     appt.StartTime,
		"message":       "Appointment cancelled",
	}, nil
}

type appointmentView struct {
	ID        string                   `json:"id"`
	Service   string                   `json:"service"`
	Date      string                   `json:"date"`
	StartTime string                   `json:"startTime"`
	EndTime   string                   `json:"endTime"`
	Staff     string                   `json:"staff"`
	Status    models.AppointmentStatus `json:"status"`
	Price     float64                  `json:"price"`
}

func (o *Orchestrator) getCustomerAppointments(ctx context.Context, ts *turnState) (any, error) {
	today := o.now().Format(utils.DateLayout)
	appts, err := o.Booking.ListUpcomingForCustomer(ctx, ts.venue.ID, ts.customer.ID, today)
	if err != nil {
		return nil, utils.ToolExecution(ToolGetCustomerAppointments, err)
	}
	out := make([]appointmentView, 0, len(appts))
	for _, a := range appts {
		out = append(out, appointmentView{
			ID:        a.ID,
			Service:   a.ServiceName,
			Date:      a.Date,
			StartTime: a.StartTime,
			EndTime:   a.EndTime,
			Staff:     a.StaffName,
			Status:    a.Status,
			Price:     a.Price,
		})
	}
	return map[string]any{"appointments": out}, nil
}

func (o *Orchestrator) getSalonInfo(ts *turnState) any {
	v := ts.venue
	hours := make([]string, 0, len(v.WorkingHours))
	for _, wh := range v.WorkingHours {
		if wh.IsOpen {
			hours = append(hours, fmt.Sprintf("%s: %s - %s", dayLabel(wh.Day), wh.OpenTime, wh.CloseTime))
		} else {
			hours = append(hours, fmt.Sprintf("%s: Closed", dayLabel(wh.Day)))
		}
	}
	ts.conv.State = models.StateFAQ
	return map[string]any{
		"name":         v.Name,
		"phone":        v.Phone,
		"address":      v.Address.String(),
		"workingHours": hours,
		"slotDuration": v.SlotDuration,
	}
}

type offerView struct {
	Title         string              `json:"title"`
	Description   string              `json:"description,omitempty"`
	DiscountType  models.DiscountType `json:"discountType"`
	DiscountValue float64             `json:"discountValue"`
	ValidTo       string              `json:"validTo"`
}

func (o *Orchestrator) getOffers(ts *turnState) any {
	out := make([]offerView, 0, len(ts.offers))
	for _, of := range ts.offers {
		out = append(out, offerView{
			Title:         of.Title,
			Description:   of.Description,
			DiscountType:  of.DiscountType,
			DiscountValue: of.DiscountValue,
			ValidTo:       of.ValidTo.Format(utils.DateLayout),
		})
	}
	return map[string]any{"offers": out}
}

func (o *Orchestrator) handoff(ts *turnState, args HandoffArgs) any {
	ts.conv.State = models.StateHumanHandoff
	ts.conv.Metadata.HandedOff = true
	ts.conv.Metadata.HandoffReason = args.Reason
	o.Logger.Info("Conversation handed off",
		zap.String("salonId", ts.venue.ID), zap.String("conversationId", ts.conv.ID), zap.String("reason", args.Reason))
	return map[string]any{
		"success": true,
		"message": "A team member from the salon will reply shortly.",
	}
}

func errorResult(msg string) map[string]any {
	return map[string]any{"success": false, "error": msg}
}

func encodeResult(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(errorResult("result could not be encoded"))
	}
	return string(b)
}
