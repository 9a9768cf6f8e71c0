// Package memory holds in-process repository implementations used by the
// memory storage driver and by service tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	directoryRepo "salondesk/database/repository/directory"
	"salondesk/models"
	"salondesk/utils"
)

// Directory is an in-memory DirectoryRepository with seeding helpers.
type Directory struct {
	mu       sync.RWMutex
	venues   map[string]models.Venue
	staff    map[string]models.Staff
	services map[string]models.Service
	offers   map[string]models.Offer
}

var _ directoryRepo.DirectoryRepository = (*Directory)(nil)

func NewDirectory() *Directory {
	return &Directory{
		venues:   make(map[string]models.Venue),
		staff:    make(map[string]models.Staff),
		services: make(map[string]models.Service),
		offers:   make(map[string]models.Offer),
	}
}

func (d *Directory) PutVenue(v models.Venue) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.venues[v.ID] = v
}

func (d *Directory) PutStaff(s models.Staff) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.staff[s.ID] = s
}

func (d *Directory) PutService(s models.Service) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.services[s.ID] = s
}

func (d *Directory) PutOffer(o models.Offer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.offers[o.ID] = o
}

func (d *Directory) GetVenue(_ context.Context, salonID string) (*models.Venue, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.venues[salonID]
	if !ok {
		return nil, utils.NotFound("salon %s not found", salonID)
	}
	return &v, nil
}

func (d *Directory) FindVenueByPhoneNumberID(_ context.Context, phoneNumberID string) (*models.Venue, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, v := range d.venues {
		if v.IsActive && v.WhatsApp.PhoneNumberID == phoneNumberID {
			v := v
			return &v, nil
		}
	}
	return nil, utils.NotFound("no salon bound to phone number id %s", phoneNumberID)
}

func (d *Directory) UpdateVenueSettings(_ context.Context, salonID string, s models.VenueSettings) (*models.Venue, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.venues[salonID]
	if !ok {
		return nil, utils.NotFound("salon %s not found", salonID)
	}
	if s.WorkingHours != nil {
		v.WorkingHours = s.WorkingHours
	}
	if s.SlotDuration != nil {
		v.SlotDuration = *s.SlotDuration
	}
	if s.BufferTime != nil {
		v.BufferTime = *s.BufferTime
	}
	if s.Holidays != nil {
		v.Holidays = s.Holidays
	}
	if s.Payment != nil {
		v.Payment = *s.Payment
	}
	if s.Reminders != nil {
		v.Reminders = s.Reminders
	}
	v.UpdatedAt = time.Now()
	d.venues[salonID] = v
	return &v, nil
}

func (d *Directory) ListActiveStaff(_ context.Context, salonID, serviceID string) ([]models.Staff, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []models.Staff
	for _, s := range d.staff {
		if s.SalonID != salonID || !s.IsActive {
			continue
		}
		if serviceID != "" && !s.Offers(serviceID) {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *Directory) GetStaff(_ context.Context, salonID, staffID string) (*models.Staff, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.staff[staffID]
	if !ok || s.SalonID != salonID {
		return nil, utils.NotFound("staff %s not found", staffID)
	}
	return &s, nil
}

func (d *Directory) ListActiveServices(_ context.Context, salonID, category string) ([]models.Service, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []models.Service
	for _, s := range d.services {
		if s.SalonID != salonID || !s.IsActive {
			continue
		}
		if category != "" && s.Category != category {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (d *Directory) GetService(_ context.Context, salonID, serviceID string) (*models.Service, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s, ok := d.services[serviceID]
	if !ok || s.SalonID != salonID {
		return nil, utils.NotFound("service %s not found", serviceID)
	}
	return &s, nil
}

func (d *Directory) ListActiveOffers(_ context.Context, salonID string, now time.Time) ([]models.Offer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []models.Offer
	for _, o := range d.offers {
		if o.SalonID == salonID && o.ActiveAt(now) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}
