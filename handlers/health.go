package handlers

import (
	"net/http"

	"salondesk/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports the latest dependency snapshot. A nil monitor reports healthy.
func HealthHandler(monitor *utils.HealthMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		if monitor == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		status := monitor.Status()
		code := http.StatusOK
		label := "ok"
		if !status.Healthy {
			code = http.StatusServiceUnavailable
			label = "degraded"
		}
		c.JSON(code, gin.H{"status": label, "services": status.Services, "checkedAt": status.CheckedAt})
	}
}
