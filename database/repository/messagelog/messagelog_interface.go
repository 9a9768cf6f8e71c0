package messageLogRepo

import (
	"context"
	"errors"
	"time"

	"salondesk/models"
)

// ErrDuplicate signals that a log with the same provider message id exists.
var ErrDuplicate = errors.New("message already logged")

// MessageLogRepository records channel traffic for audit and dedup.
type MessageLogRepository interface {
	// Insert stores entry; ErrDuplicate when its provider message id is already logged.
	Insert(ctx context.Context, entry *models.MessageLog) error
	ExistsByWAMessageID(ctx context.Context, waMessageID string) (bool, error)
	UpdateStatus(ctx context.Context, waMessageID string, status models.DeliveryStatus, errMsg string, at time.Time) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
