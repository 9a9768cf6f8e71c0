package booking

import (
	"context"
	"errors"
	"time"

	"salondesk/models"
	"salondesk/utils"

	"go.uber.org/zap"
)

// MarkNoShows moves confirmed appointments whose end plus buffer has passed to
// no-show. Only today and yesterday are scanned; older rows were handled by
// earlier sweeps.
func (s *DefaultBookingService) MarkNoShows(ctx context.Context, now time.Time, buffer time.Duration) (int, error) {
	loc := now.Location()
	dates := []string{
		now.Format(utils.DateLayout),
		now.AddDate(0, 0, -1).Format(utils.DateLayout),
	}
	appts, err := s.Appointments.ListByStatusOnDates(ctx, []models.AppointmentStatus{models.StatusConfirmed}, dates)
	if err != nil {
		return 0, err
	}

	marked := 0
	for i := range appts {
		appt := &appts[i]
		endMin, err := utils.ParseClock(appt.EndTime)
		if err != nil {
			s.Logger.Warn("skipping appointment with bad end time", zap.String("appointmentID", appt.ID), zap.Error(err))
			continue
		}
		end, err := utils.At(appt.Date, endMin, loc)
		if err != nil {
			continue
		}
		if !end.Add(buffer).Before(now) {
			continue
		}
		if _, err := s.transition(ctx, appt, models.StatusNoShow, ""); err != nil {
			if errors.Is(err, utils.ErrInvalidTransition) {
				continue
			}
			s.Logger.Error("failed to mark no-show", zap.String("appointmentID", appt.ID), zap.Error(err))
			continue
		}
		marked++
	}
	if marked > 0 {
		s.Logger.Info("marked no-shows", zap.Int("count", marked))
	}
	return marked, nil
}
