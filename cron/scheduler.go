package cron

import (
	"time"

	"salondesk/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// PeriodicTask is one cron entry.
type PeriodicTask struct {
	Spec string
	Type string
}

var PeriodicTasks = []PeriodicTask{
	{Spec: "*/5 * * * *", Type: tasks.TypeReminderScan},
	{Spec: "*/15 * * * *", Type: tasks.TypeNoShowSweep},
	{Spec: "0 3 * * *", Type: tasks.TypeCleanup},
}

// Registrar is the part of *asynq.Scheduler used to add entries.
type Registrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (entryID string, err error)
}

// RegisterPeriodicTasks adds every PeriodicTasks entry to r.
func RegisterPeriodicTasks(r Registrar, logger *zap.Logger) error {
	for _, pt := range PeriodicTasks {
		id, err := r.Register(pt.Spec, asynq.NewTask(pt.Type, nil), asynq.MaxRetry(1))
		if err != nil {
			return err
		}
		logger.Info("Registered periodic task", zap.String("type", pt.Type), zap.String("spec", pt.Spec), zap.String("entryId", id))
	}
	return nil
}

// StartScheduler registers the periodic tasks and runs the scheduler in the background.
func StartScheduler(redisOpt asynq.RedisClientOpt, logger *zap.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.Local,
		Logger:   logger.Sugar(),
		LogLevel: asynq.WarnLevel,
	})
	if err := RegisterPeriodicTasks(scheduler, logger); err != nil {
		return nil, err
	}
	go func() {
		if err := scheduler.Run(); err != nil {
			logger.Error("Scheduler stopped", zap.Error(err))
		}
	}()
	return scheduler, nil
}
