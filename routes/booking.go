package routes

import (
	"salondesk/handlers"

	"github.com/gin-gonic/gin"
)

// RegisterAppointmentRoutes registers slot lookup and the appointment lifecycle.
func RegisterAppointmentRoutes(r *gin.Engine, hb *handlers.HandlerBundle, dashboard ...gin.HandlerFunc) {
	appointments := r.Group("/api/appointments")
	{
		appointments.Use(dashboard...)
		appointments.GET("/slots", hb.GetSlotsHandler)
		appointments.GET("", hb.ListAppointmentsHandler)
		appointments.POST("", hb.CreateAppointmentHandler)
		appointments.PUT("/:id/status", hb.UpdateAppointmentStatusHandler)
	}
}
