package routes

import (
	"net/http"
	"time"

	"salondesk/handlers"
	"salondesk/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterWebhookRoutes registers the WhatsApp Cloud API callback.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/webhook", hb.VerifyWebhookHandler)
	r.POST("/webhook", middleware.WhatsAppSignatureMiddleware(hb.WhatsAppAppSecret), hb.ReceiveWebhookHandler)
}

// RegisterChatRoutes registers the owner's test chat.
func RegisterChatRoutes(r *gin.Engine, hb *handlers.HandlerBundle, dashboard ...gin.HandlerFunc) {
	api := r.Group("/api/chat")
	{
		api.Use(dashboard...)
		api.POST("/message", hb.SendChatMessageHandler)
		api.GET("/history", hb.ChatHistoryHandler)
	}
}

// RegisterVenueRoutes registers salon settings endpoints.
func RegisterVenueRoutes(r *gin.Engine, hb *handlers.HandlerBundle, dashboard ...gin.HandlerFunc) {
	api := r.Group("/api/venue")
	{
		api.Use(dashboard...)
		api.GET("", hb.GetVenueHandler)
		api.PUT("/settings", hb.UpdateVenueSettingsHandler)
	}
}

// RegisterPaymentRoutes registers the payment provider callback. It is
// authenticated by the provider's signature, not a dashboard token.
func RegisterPaymentRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/api/payments/webhook", hb.StripeWebhookHandler)
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	if hb.HealthHandler != nil {
		r.GET("/health", hb.HealthHandler)
		return
	}
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Dashboard groups share one limiter.
	dashboard := []gin.HandlerFunc{
		middleware.RateLimitMiddleware(hb.MaxRequestsPerMin),
		middleware.JWTAuthSalonMiddleware(hb.Directory),
	}

	RegisterHealthRoute(r, hb)
	RegisterWebhookRoutes(r, hb)
	RegisterChatRoutes(r, hb, dashboard...)
	RegisterAppointmentRoutes(r, hb, dashboard...)
	RegisterVenueRoutes(r, hb, dashboard...)
	RegisterPaymentRoutes(r, hb)
}
