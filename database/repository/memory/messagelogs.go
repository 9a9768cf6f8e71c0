package memory

import (
	"context"
	"sync"
	"time"

	messageLogRepo "salondesk/database/repository/messagelog"
	"salondesk/models"
)

// MessageLogs is an in-memory MessageLogRepository.
type MessageLogs struct {
	mu    sync.RWMutex
	items []models.MessageLog
}

var _ messageLogRepo.MessageLogRepository = (*MessageLogs)(nil)

func NewMessageLogs() *MessageLogs {
	return &MessageLogs{}
}

func (r *MessageLogs) Insert(_ context.Context, entry *models.MessageLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.WAMessageID != "" {
		for _, m := range r.items {
			if m.WAMessageID == entry.WAMessageID {
				return messageLogRepo.ErrDuplicate
			}
		}
	}
	r.items = append(r.items, *entry)
	return nil
}

func (r *MessageLogs) ExistsByWAMessageID(_ context.Context, waMessageID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, m := range r.items {
		if m.WAMessageID == waMessageID {
			return true, nil
		}
	}
	return false, nil
}

func (r *MessageLogs) UpdateStatus(_ context.Context, waMessageID string, status models.DeliveryStatus, errMsg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.items {
		if r.items[i].WAMessageID == waMessageID {
			r.items[i].Status = status
			if errMsg != "" {
				r.items[i].ErrorMessage = errMsg
			}
			r.items[i].UpdatedAt = at
		}
	}
	return nil
}

func (r *MessageLogs) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	var deleted int64
	for _, m := range r.items {
		if m.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	r.items = kept
	return deleted, nil
}

// All returns a copy of every entry, for assertions.
func (r *MessageLogs) All() []models.MessageLog {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]models.MessageLog(nil), r.items...)
}
