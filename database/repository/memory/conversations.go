package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	conversationRepo "salondesk/database/repository/conversation"
	"salondesk/models"
	"salondesk/utils"
)

// Conversations is an in-memory ConversationRepository.
type Conversations struct {
	mu    sync.RWMutex
	items map[string]models.Conversation
}

var _ conversationRepo.ConversationRepository = (*Conversations)(nil)

func NewConversations() *Conversations {
	return &Conversations{items: make(map[string]models.Conversation)}
}

func cloneConversation(c models.Conversation) models.Conversation {
	c.Transcript = append(models.Transcript(nil), c.Transcript...)
	return c
}

func (r *Conversations) FindActive(_ context.Context, salonID, phone string) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.items {
		if c.IsActive && c.SalonID == salonID && c.Phone == phone {
			c = cloneConversation(c)
			return &c, nil
		}
	}
	return nil, utils.NotFound("no active conversation for %s", phone)
}

// Create mirrors the partial unique index on active (salon, phone).
func (r *Conversations) Create(_ context.Context, conv *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if conv.IsActive {
		for _, c := range r.items {
			if c.IsActive && c.SalonID == conv.SalonID && c.Phone == conv.Phone {
				return fmt.Errorf("active conversation already exists for %s", conv.Phone)
			}
		}
	}
	r.items[conv.ID] = cloneConversation(*conv)
	return nil
}

func (r *Conversations) Save(_ context.Context, conv *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[conv.ID]; !ok {
		return utils.NotFound("conversation %s not found", conv.ID)
	}
	r.items[conv.ID] = cloneConversation(*conv)
	return nil
}

func (r *Conversations) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil
	}
	c.IsActive = false
	r.items[id] = c
	return nil
}

func (r *Conversations) ListActiveIdleSince(_ context.Context, cutoff time.Time, limit int64) ([]models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Conversation
	for _, c := range r.items {
		if c.IsActive && c.LastActivityAt.Before(cutoff) {
			out = append(out, cloneConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivityAt.Before(out[j].LastActivityAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *Conversations) ListByPhone(_ context.Context, salonID, phone string, limit int64) ([]models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Conversation
	for _, c := range r.items {
		if c.SalonID == salonID && c.Phone == phone {
			out = append(out, cloneConversation(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

// All returns every stored conversation, for assertions.
func (r *Conversations) All() []models.Conversation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Conversation, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, cloneConversation(c))
	}
	return out
}
