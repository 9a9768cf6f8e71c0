package handlers

import (
	"net/http"
	"time"

	directoryRepo "salondesk/database/repository/directory"
	"salondesk/middleware"
	"salondesk/models"
	"salondesk/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type VenueHandler struct {
	Directory directoryRepo.DirectoryRepository
}

func NewVenueHandler(dir directoryRepo.DirectoryRepository) *VenueHandler {
	return &VenueHandler{Directory: dir}
}

// GetVenueHandler returns the authenticated salon.
func (h *VenueHandler) GetVenueHandler(c *gin.Context) {
	venue, err := h.Directory.GetVenue(c.Request.Context(), middleware.SalonID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, venue)
}

// UpdateVenueSettingsHandler applies a partial update of the scheduling settings.
func (h *VenueHandler) UpdateVenueSettingsHandler(c *gin.Context) {
	logger := getLogger(c)

	var settings models.VenueSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		utils.RespondError(c, utils.InvalidInput("invalid request: %v", err))
		return
	}
	if err := validateSettings(settings); err != nil {
		utils.RespondError(c, err)
		return
	}

	venue, err := h.Directory.UpdateVenueSettings(c.Request.Context(), middleware.SalonID(c), settings)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	logger.Info("Venue settings updated", zap.String("salonId", venue.ID))
	c.JSON(http.StatusOK, venue)
}

func validateSettings(s models.VenueSettings) error {
	seen := make(map[models.Weekday]bool, len(s.WorkingHours))
	for _, wh := range s.WorkingHours {
		if !knownWeekday(wh.Day) {
			return utils.InvalidInput("unknown day %q", wh.Day)
		}
		if seen[wh.Day] {
			return utils.InvalidInput("%s is listed twice", wh.Day)
		}
		seen[wh.Day] = true
		if !wh.IsOpen {
			continue
		}
		open, err := utils.ParseClock(wh.OpenTime)
		if err != nil {
			return utils.InvalidInput("%s: %v", wh.Day, err)
		}
		closing, err := utils.ParseClock(wh.CloseTime)
		if err != nil {
			return utils.InvalidInput("%s: %v", wh.Day, err)
		}
		if closing <= open {
			return utils.InvalidInput("%s closes before it opens", wh.Day)
		}
	}
	for _, h := range s.Holidays {
		if _, err := time.Parse(utils.DateLayout, h); err != nil {
			return utils.InvalidInput("holiday %q must be YYYY-MM-DD", h)
		}
	}
	for _, m := range s.Reminders {
		if m <= 0 {
			return utils.InvalidInput("reminder offsets must be positive minutes")
		}
	}
	if p := s.Payment; p != nil && p.Enabled {
		switch p.Mode {
		case models.PaymentOptional, models.PaymentRequired:
		default:
			return utils.InvalidInput("payment mode must be %q or %q", models.PaymentOptional, models.PaymentRequired)
		}
	}
	return nil
}

func knownWeekday(d models.Weekday) bool {
	for _, w := range models.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}
