package middleware

import (
	"net/http"
	"strings"

	directoryRepo "salondesk/database/repository/directory"
	"salondesk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const salonIDKey = "salonID"

// JWTAuthSalonMiddleware admits dashboard requests carrying a valid token whose
// subject is an active salon, and stores the salon id in the context.
func JWTAuthSalonMiddleware(dir directoryRepo.DirectoryRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := zap.L()

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Missing or invalid Authorization header", Code: utils.CodeUnauthorized})
			return
		}
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		salonID, err := utils.ExtractIDFromToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Invalid token", Code: utils.CodeUnauthorized})
			return
		}

		venue, err := dir.GetVenue(c.Request.Context(), salonID)
		if err != nil || !venue.IsActive {
			logger.Warn("Token for unknown or inactive salon", zap.String("salonId", salonID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Salon not found", Code: utils.CodeUnauthorized})
			return
		}

		c.Set(salonIDKey, salonID)
		c.Next()
	}
}

// SalonID returns the authenticated salon id.
func SalonID(c *gin.Context) string {
	return c.GetString(salonIDKey)
}
