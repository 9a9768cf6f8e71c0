package memory

import (
	"context"
	"sync"
	"time"

	customerRepo "salondesk/database/repository/customer"
	"salondesk/models"
	"salondesk/utils"
)

// Customers is an in-memory CustomerRepository.
type Customers struct {
	mu    sync.RWMutex
	items map[string]models.Customer
}

var _ customerRepo.CustomerRepository = (*Customers)(nil)

func NewCustomers() *Customers {
	return &Customers{items: make(map[string]models.Customer)}
}

func (r *Customers) Put(c models.Customer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[c.ID] = c
}

func (r *Customers) GetByID(_ context.Context, salonID, id string) (*models.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.items[id]
	if !ok || c.SalonID != salonID {
		return nil, utils.NotFound("customer %s not found", id)
	}
	return &c, nil
}

func (r *Customers) findByPhone(salonID, phone string) (models.Customer, bool) {
	for _, c := range r.items {
		if c.SalonID == salonID && c.Phone == phone {
			return c, true
		}
	}
	return models.Customer{}, false
}

func (r *Customers) FindByPhone(_ context.Context, salonID, phone string) (*models.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.findByPhone(salonID, phone)
	if !ok {
		return nil, utils.NotFound("customer %s not found", phone)
	}
	return &c, nil
}

func (r *Customers) FindOrCreate(_ context.Context, candidate *models.Customer) (*models.Customer, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.findByPhone(candidate.SalonID, candidate.Phone); ok {
		return &c, false, nil
	}
	c := *candidate
	r.items[c.ID] = c
	return &c, true, nil
}

func (r *Customers) RecordVisit(_ context.Context, salonID, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok || c.SalonID != salonID {
		return utils.NotFound("customer %s not found", id)
	}
	c.TotalVisits++
	c.LastVisit = &at
	c.UpdatedAt = at
	r.items[id] = c
	return nil
}
