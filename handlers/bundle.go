package handlers

import (
	directoryRepo "salondesk/database/repository/directory"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all your endpoint handlers into one struct.
type HandlerBundle struct {
	Directory directoryRepo.DirectoryRepository

	// Middleware settings
	MaxRequestsPerMin int
	WhatsAppAppSecret string

	// Health endpoint
	HealthHandler gin.HandlerFunc

	// WhatsApp webhook endpoints
	VerifyWebhookHandler  gin.HandlerFunc
	ReceiveWebhookHandler gin.HandlerFunc

	// Dashboard chat endpoints
	SendChatMessageHandler gin.HandlerFunc
	ChatHistoryHandler     gin.HandlerFunc

	// Appointment endpoints
	GetSlotsHandler                gin.HandlerFunc
	CreateAppointmentHandler       gin.HandlerFunc
	UpdateAppointmentStatusHandler gin.HandlerFunc
	ListAppointmentsHandler        gin.HandlerFunc

	// Venue endpoints
	GetVenueHandler            gin.HandlerFunc
	UpdateVenueSettingsHandler gin.HandlerFunc

	// Payment endpoints
	StripeWebhookHandler gin.HandlerFunc
}
