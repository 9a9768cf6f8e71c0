package handlers

import (
	"net/http"
	"time"

	customerRepo "salondesk/database/repository/customer"
	"salondesk/middleware"
	"salondesk/models"
	"salondesk/services/availability"
	"salondesk/services/booking"
	"salondesk/services/channel"
	"salondesk/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AppointmentHandler exposes slots and the appointment lifecycle to the owner dashboard.
type AppointmentHandler struct {
	Availability  availability.AvailabilityService
	Booking       booking.BookingService
	Customers     customerRepo.CustomerRepository
	DefaultRegion string
}

func NewAppointmentHandler(avail availability.AvailabilityService, svc booking.BookingService, customers customerRepo.CustomerRepository, defaultRegion string) *AppointmentHandler {
	return &AppointmentHandler{Availability: avail, Booking: svc, Customers: customers, DefaultRegion: defaultRegion}
}

type slotsQuery struct {
	Date      string `form:"date" binding:"required,datetime=2006-01-02"`
	ServiceID string `form:"serviceId" binding:"required"`
	StaffID   string `form:"staffId"`
}

// GetSlotsHandler returns the bookable slots for a service on a date.
func (h *AppointmentHandler) GetSlotsHandler(c *gin.Context) {
	var q slotsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.RespondError(c, utils.InvalidInput("invalid query: %v", err))
		return
	}
	res, err := h.Availability.ComputeSlots(c.Request.Context(), availability.Query{
		SalonID:   middleware.SalonID(c),
		Date:      q.Date,
		ServiceID: q.ServiceID,
		StaffID:   q.StaffID,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type createAppointmentRequest struct {
	CustomerPhone string                   `json:"customerPhone" binding:"required"`
	CustomerName  string                   `json:"customerName"`
	ServiceID     string                   `json:"serviceId" binding:"required"`
	Date          string                   `json:"date" binding:"required,datetime=2006-01-02"`
	StartTime     string                   `json:"startTime" binding:"required"`
	StaffID       string                   `json:"staffId"`
	Notes         string                   `json:"notes"`
	Status        models.AppointmentStatus `json:"status" binding:"omitempty,oneof=pending confirmed"`
	WalkIn        bool                     `json:"walkIn"`
}

// CreateAppointmentHandler books on behalf of a customer, creating the
// customer record on first contact.
func (h *AppointmentHandler) CreateAppointmentHandler(c *gin.Context) {
	logger := getLogger(c)
	salonID := middleware.SalonID(c)

	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, utils.InvalidInput("invalid request: %v", err))
		return
	}

	phone := channel.NormalizePhone(req.CustomerPhone, h.DefaultRegion)
	name := req.CustomerName
	if name == "" {
		name = phone
	}
	now := time.Now()
	customer, created, err := h.Customers.FindOrCreate(c.Request.Context(), &models.Customer{
		ID:        uuid.NewString(),
		SalonID:   salonID,
		Name:      name,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	if created {
		logger.Info("Created customer from dashboard booking", zap.String("customerId", customer.ID))
	}

	via := models.BookedViaDashboard
	if req.WalkIn {
		via = models.BookedViaWalkIn
	}
	appt, err := h.Booking.Create(c.Request.Context(), booking.CreateRequest{
		SalonID:       salonID,
		CustomerID:    customer.ID,
		ServiceID:     req.ServiceID,
		Date:          req.Date,
		StartTime:     req.StartTime,
		StaffID:       req.StaffID,
		Notes:         req.Notes,
		Channel:       via,
		InitialStatus: req.Status,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, appt)
}

type updateStatusRequest struct {
	Status models.AppointmentStatus `json:"status" binding:"required"`
	Reason string                   `json:"reason"`
}

// UpdateAppointmentStatusHandler moves an appointment through its lifecycle.
func (h *AppointmentHandler) UpdateAppointmentStatusHandler(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, utils.InvalidInput("invalid request: %v", err))
		return
	}
	appt, err := h.Booking.Transition(c.Request.Context(), middleware.SalonID(c), c.Param("id"), req.Status, req.Reason)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, appt)
}

// ListAppointmentsHandler returns the day's appointments ordered by start time.
func (h *AppointmentHandler) ListAppointmentsHandler(c *gin.Context) {
	date := c.Query("date")
	if _, err := time.Parse(utils.DateLayout, date); err != nil {
		utils.RespondError(c, utils.InvalidInput("date must be YYYY-MM-DD"))
		return
	}
	appts, err := h.Booking.ListForDate(c.Request.Context(), middleware.SalonID(c), date)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "appointments": appts, "count": len(appts)})
}
