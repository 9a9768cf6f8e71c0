package cron

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	messageLogRepo "salondesk/database/repository/messagelog"
	"salondesk/services/booking"
	"salondesk/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// SessionExpirer closes idle chat sessions.
type SessionExpirer interface {
	ExpireIdleSessions(ctx context.Context, now time.Time) (int, error)
}

// Jobs holds the services the background tasks run against.
type Jobs struct {
	Reminders    *tasks.ReminderService
	Bookings     booking.BookingService
	Sessions     SessionExpirer
	MessageLogs  messageLogRepo.MessageLogRepository
	NoShowBuffer time.Duration
	LogRetention time.Duration
	Logger       *zap.Logger
	Now          func() time.Time
}

func (j *Jobs) now() time.Time {
	if j.Now != nil {
		return j.Now()
	}
	return time.Now()
}

// NewServeMux routes every task type to its handler.
func NewServeMux(j *Jobs) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeReminderScan, j.handleReminderScan)
	mux.HandleFunc(tasks.TypeReminderSend, j.handleReminderSend)
	mux.HandleFunc(tasks.TypeNoShowSweep, j.handleNoShowSweep)
	mux.HandleFunc(tasks.TypeCleanup, j.handleCleanup)
	return mux
}

func (j *Jobs) handleReminderScan(ctx context.Context, _ *asynq.Task) error {
	n, err := j.Reminders.ScanDue(ctx, j.now())
	if err != nil {
		j.Logger.Error("Reminder scan failed", zap.Error(err))
		return err
	}
	if n > 0 {
		j.Logger.Info("Reminders scheduled", zap.Int("count", n))
	}
	return nil
}

func (j *Jobs) handleReminderSend(ctx context.Context, task *asynq.Task) error {
	var p tasks.ReminderPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		j.Logger.Error("Invalid reminder payload", zap.Error(err))
		return fmt.Errorf("decode reminder payload: %v: %w", err, asynq.SkipRetry)
	}
	return j.Reminders.Send(ctx, p)
}

func (j *Jobs) handleNoShowSweep(ctx context.Context, _ *asynq.Task) error {
	n, err := j.Bookings.MarkNoShows(ctx, j.now(), j.NoShowBuffer)
	if err != nil {
		j.Logger.Error("No-show sweep failed", zap.Error(err))
		return err
	}
	if n > 0 {
		j.Logger.Info("Marked no-shows", zap.Int("count", n))
	}
	return nil
}

// handleCleanup expires stale sessions and prunes the message log. Both steps
// run even if the first fails.
func (j *Jobs) handleCleanup(ctx context.Context, _ *asynq.Task) error {
	now := j.now()
	var firstErr error

	expired, err := j.Sessions.ExpireIdleSessions(ctx, now)
	if err != nil {
		j.Logger.Error("Session expiry failed", zap.Error(err))
		firstErr = err
	}

	var deleted int64
	if j.LogRetention > 0 {
		deleted, err = j.MessageLogs.DeleteOlderThan(ctx, now.Add(-j.LogRetention))
		if err != nil {
			j.Logger.Error("Message log cleanup failed", zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	j.Logger.Info("Cleanup finished", zap.Int("sessionsExpired", expired), zap.Int64("logsDeleted", deleted))
	return firstErr
}

// StartWorker runs the asynq server in the background, retrying startup with
// a growing delay.
func StartWorker(redisOpt asynq.RedisClientOpt, j *Jobs, logger *zap.Logger) *asynq.Server {
	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 1,
		},
		Logger:   logger.Sugar(),
		LogLevel: asynq.WarnLevel,
	})
	mux := NewServeMux(j)

	go func() {
		logger.Info("Starting task worker")
		const maxAttempts = 5
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			err := srv.Run(mux)
			if err == nil {
				return
			}
			logger.Error("Task worker failed to start", zap.Int("attempt", attempt), zap.Error(err))
			if attempt == maxAttempts {
				logger.Fatal("Task worker could not start")
			}
			time.Sleep(time.Duration(attempt*2) * time.Second)
		}
	}()
	return srv
}

// MonitorRedis pings client until ctx is done and logs lost connections.
func MonitorRedis(ctx context.Context, client *redis.Client, logger *zap.Logger) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn("Redis connection lost", zap.Error(err))
			}
		}
	}
}
