package booking

import "salondesk/models"

// transitions is the fixed lifecycle table. Terminal statuses have no entry.
var transitions = map[models.AppointmentStatus][]models.AppointmentStatus{
	models.StatusPending:    {models.StatusConfirmed, models.StatusCancelled, models.StatusNoShow},
	models.StatusConfirmed:  {models.StatusInProgress, models.StatusCancelled, models.StatusNoShow},
	models.StatusInProgress: {models.StatusCompleted, models.StatusCancelled},
}

// AllowedTransitions lists the statuses reachable from s.
func AllowedTransitions(s models.AppointmentStatus) []models.AppointmentStatus {
	return append([]models.AppointmentStatus(nil), transitions[s]...)
}

func CanTransition(from, to models.AppointmentStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(s models.AppointmentStatus) bool {
	return len(transitions[s]) == 0
}

// ValidStatus reports whether s is one of the known lifecycle statuses.
func ValidStatus(s models.AppointmentStatus) bool {
	switch s {
	case models.StatusPending, models.StatusConfirmed, models.StatusInProgress,
		models.StatusCompleted, models.StatusCancelled, models.StatusNoShow:
		return true
	}
	return false
}
