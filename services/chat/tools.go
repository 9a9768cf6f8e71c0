package chat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"salondesk/models"
	"salondesk/services/intelligence"

	"github.com/go-playground/validator/v10"
)

const (
	ToolGetServices             = "get_services"
	ToolGetAvailableSlots       = "get_available_slots"
	ToolCreateBooking           = "create_booking"
	ToolCancelAppointment       = "cancel_appointment"
	ToolGetCustomerAppointments = "get_customer_appointments"
	ToolGetSalonInfo            = "get_salon_info"
	ToolGetOffers               = "get_offers"
	ToolHandoffToHuman          = "handoff_to_human"
)

// ToolSpecs is the fixed tool schema sent with every model request.
var ToolSpecs = []intelligence.ToolSpec{
	{
		Name:        ToolGetServices,
		Description: "List the salon's active services, optionally filtered by category.",
		Params: []intelligence.Param{
			{Name: "category", Type: intelligence.ParamString, Description: "Optional category such as Hair, Skin or Nails."},
		},
	},
	{
		Name:        ToolGetAvailableSlots,
		Description: "Get the free time slots for a service on a date. Call this before offering times to the customer.",
		Params: []intelligence.Param{
			{Name: "serviceId", Type: intelligence.ParamString, Description: "Service id from the catalog.", Required: true},
			{Name: "date", Type: intelligence.ParamString, Description: "Date in YYYY-MM-DD format.", Required: true},
			{Name: "staffId", Type: intelligence.ParamString, Description: "Optional preferred staff member id."},
		},
	},
	{
		Name:        ToolCreateBooking,
		Description: "Book an appointment once the customer has confirmed the service, date and time.",
		Params: []intelligence.Param{
			{Name: "serviceId", Type: intelligence.ParamString, Description: "Service id from the catalog.", Required: true},
			{Name: "date", Type: intelligence.ParamString, Description: "Date in YYYY-MM-DD format.", Required: true},
			{Name: "startTime", Type: intelligence.ParamString, Description: "Start time in HH:MM 24-hour format.", Required: true},
			{Name: "staffId", Type: intelligence.ParamString, Description: "Optional staff member id from the slot list."},
		},
	},
	{
		Name:        ToolCancelAppointment,
		Description: "Cancel one of the customer's own upcoming appointments.",
		Params: []intelligence.Param{
			{Name: "appointmentId", Type: intelligence.ParamString, Description: "Id of the appointment to cancel.", Required: true},
			{Name: "reason", Type: intelligence.ParamString, Description: "Why the customer is cancelling."},
		},
	},
	{
		Name:        ToolGetCustomerAppointments,
		Description: "List the customer's upcoming pending or confirmed appointments.",
	},
	{
		Name:        ToolGetSalonInfo,
		Description: "Get the salon's address, phone number and working hours.",
	},
	{
		Name:        ToolGetOffers,
		Description: "List the promotions that are currently running.",
	},
	{
		Name:        ToolHandoffToHuman,
		Description: "Hand the conversation to the salon staff when you cannot help the customer.",
		Params: []intelligence.Param{
			{Name: "reason", Type: intelligence.ParamString, Description: "Short reason for the handoff.", Required: true},
		},
	},
}

// ToolInvocation is a decoded, validated tool call.
type ToolInvocation interface {
	ToolName() string
}

type GetServicesArgs struct {
	Category string `json:"category"`
}

type GetAvailableSlotsArgs struct {
	ServiceID string `json:"serviceId" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StaffID   string `json:"staffId"`
}

type CreateBookingArgs struct {
	ServiceID string `json:"serviceId" validate:"required"`
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"startTime" validate:"required,datetime=15:04"`
	StaffID   string `json:"staffId"`
}

type CancelAppointmentArgs struct {
	AppointmentID string `json:"appointmentId" validate:"required"`
	Reason        string `json:"reason"`
}

type GetCustomerAppointmentsArgs struct{}

type GetSalonInfoArgs struct{}

type GetOffersArgs struct{}

type HandoffArgs struct {
	Reason string `json:"reason" validate:"required"`
}

func (GetServicesArgs) ToolName() string             { return ToolGetServices }
func (GetAvailableSlotsArgs) ToolName() string       { return ToolGetAvailableSlots }
func (CreateBookingArgs) ToolName() string           { return ToolCreateBooking }
func (CancelAppointmentArgs) ToolName() string       { return ToolCancelAppointment }
func (GetCustomerAppointmentsArgs) ToolName() string { return ToolGetCustomerAppointments }
func (GetSalonInfoArgs) ToolName() string            { return ToolGetSalonInfo }
func (GetOffersArgs) ToolName() string               { return ToolGetOffers }
func (HandoffArgs) ToolName() string                 { return ToolHandoffToHuman }

var argsValidator = validator.New()

// DecodeToolCall parses and validates the arguments of call. Unknown tools,
// malformed JSON, unexpected fields and missing required values are errors.
func DecodeToolCall(call models.ToolCall) (ToolInvocation, error) {
	switch call.Name {
	case ToolGetServices:
		return decodeArgs[GetServicesArgs](call.Arguments)
	case ToolGetAvailableSlots:
		return decodeArgs[GetAvailableSlotsArgs](call.Arguments)
	case ToolCreateBooking:
		return decodeArgs[CreateBookingArgs](call.Arguments)
	case ToolCancelAppointment:
		return decodeArgs[CancelAppointmentArgs](call.Arguments)
	case ToolGetCustomerAppointments:
		return decodeArgs[GetCustomerAppointmentsArgs](call.Arguments)
	case ToolGetSalonInfo:
		return decodeArgs[GetSalonInfoArgs](call.Arguments)
	case ToolGetOffers:
		return decodeArgs[GetOffersArgs](call.Arguments)
	case ToolHandoffToHuman:
		return decodeArgs[HandoffArgs](call.Arguments)
	default:
		return nil, fmt.Errorf("unknown tool: %s", call.Name)
	}
}

func decodeArgs[T ToolInvocation](raw string) (ToolInvocation, error) {
	var args T
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "{}"
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", args.ToolName(), err)
	}
	if dec.More() {
		return nil, fmt.Errorf("invalid arguments for %s: trailing data", args.ToolName())
	}
	if err := argsValidator.Struct(args); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("invalid arguments for %s: %s failed %q", args.ToolName(), verrs[0].Field(), verrs[0].Tag())
		}
		return nil, fmt.Errorf("invalid arguments for %s: %w", args.ToolName(), err)
	}
	return args, nil
}
