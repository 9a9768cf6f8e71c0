package conversationRepo

import (
	"context"
	"time"

	"salondesk/models"
)

// ConversationRepository persists chat sessions with their transcripts.
type ConversationRepository interface {
	// FindActive returns the active session for (salon, phone).
	FindActive(ctx context.Context, salonID, phone string) (*models.Conversation, error)
	Create(ctx context.Context, conv *models.Conversation) error
	// Save replaces the stored session with conv.
	Save(ctx context.Context, conv *models.Conversation) error
	Deactivate(ctx context.Context, id string) error
	// ListActiveIdleSince returns active sessions whose last activity is before cutoff.
	ListActiveIdleSince(ctx context.Context, cutoff time.Time, limit int64) ([]models.Conversation, error)
	// ListByPhone returns the most recent sessions first.
	ListByPhone(ctx context.Context, salonID, phone string, limit int64) ([]models.Conversation, error)
}
