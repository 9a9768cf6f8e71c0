package directoryRepo

import (
	"context"
	"time"

	"salondesk/models"
)

// DirectoryRepository is the read side of venue, staff, catalog and offer records,
// plus the owner-facing scheduling settings update.
type DirectoryRepository interface {
	// GetVenue returns the salon with the given id.
	GetVenue(ctx context.Context, salonID string) (*models.Venue, error)
	// FindVenueByPhoneNumberID resolves the salon bound to a WhatsApp phone number id.
	FindVenueByPhoneNumberID(ctx context.Context, phoneNumberID string) (*models.Venue, error)
	// UpdateVenueSettings applies the non-nil settings and returns the updated salon.
	UpdateVenueSettings(ctx context.Context, salonID string, settings models.VenueSettings) (*models.Venue, error)

	// ListActiveStaff returns active staff, limited to those offering serviceID when it is non-empty.
	ListActiveStaff(ctx context.Context, salonID, serviceID string) ([]models.Staff, error)
	GetStaff(ctx context.Context, salonID, staffID string) (*models.Staff, error)

	// ListActiveServices returns active catalog entries, optionally filtered by category.
	ListActiveServices(ctx context.Context, salonID, category string) ([]models.Service, error)
	// GetService returns a catalog entry regardless of its active flag.
	GetService(ctx context.Context, salonID, serviceID string) (*models.Service, error)

	// ListActiveOffers returns offers live at now.
	ListActiveOffers(ctx context.Context, salonID string, now time.Time) ([]models.Offer, error)
}
