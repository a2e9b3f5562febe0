// Package worker runs the asynq server and scheduler for background
// maintenance, currently the trial retention sweep.
package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/recapstack/decide-api/internal/config"
	"github.com/recapstack/decide-api/internal/domain/license"
	"github.com/recapstack/decide-api/internal/tasks"
	"go.uber.org/zap"
)

const cleanupSchedule = "@every 24h"

// RunWorkers blocks until ctx is canceled or either component fails.
func RunWorkers(ctx context.Context, cfg *config.Config, repo license.Repository, logger *zap.Logger) error {
	broker := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	srv := asynq.NewServer(broker, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			"default": 3,
			"low":     1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Asynq task failed",
				zap.String("task_type", task.Type()),
				zap.Error(err),
			)
		}),
		Logger: newAsynqLogger(logger.Named("AsynqServer")),
	})

	mux := asynq.NewServeMux()
	mux.Handle(tasks.TypeTrialCleanup, tasks.NewTrialCleanupHandler(repo, cfg.Trial.Retention, logger))

	scheduler := asynq.NewScheduler(broker, &asynq.SchedulerOpts{
		Logger: newAsynqLogger(logger.Named("AsynqScheduler")),
	})

	cleanupTask, err := tasks.NewTrialCleanupTask()
	if err != nil {
		return fmt.Errorf("build cleanup task: %w", err)
	}
	entryID, err := scheduler.Register(cleanupSchedule, cleanupTask)
	if err != nil {
		return fmt.Errorf("register cleanup schedule: %w", err)
	}
	logger.Info("Registered trial retention sweep",
		zap.String("entry_id", entryID),
		zap.String("schedule", cleanupSchedule),
	)

	errChan := make(chan error, 2)
	go func() {
		if err := srv.Run(mux); err != nil {
			errChan <- fmt.Errorf("asynq server: %w", err)
			return
		}
		errChan <- nil
	}()
	go func() {
		if err := scheduler.Run(); err != nil {
			errChan <- fmt.Errorf("asynq scheduler: %w", err)
			return
		}
		errChan <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errChan:
	}

	scheduler.Shutdown()
	srv.Shutdown()
	return runErr
}

// asynqLogger bridges asynq's print-style logger onto zap.
type asynqLogger struct {
	logger *zap.Logger
}

func newAsynqLogger(logger *zap.Logger) *asynqLogger {
	return &asynqLogger{logger: logger.WithOptions(zap.AddCallerSkip(1))}
}

func (l *asynqLogger) Debug(args ...interface{}) { l.logger.Debug(fmt.Sprint(args...)) }
func (l *asynqLogger) Info(args ...interface{})  { l.logger.Info(fmt.Sprint(args...)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.logger.Warn(fmt.Sprint(args...)) }
func (l *asynqLogger) Error(args ...interface{}) { l.logger.Error(fmt.Sprint(args...)) }
func (l *asynqLogger) Fatal(args ...interface{}) { l.logger.Fatal(fmt.Sprint(args...)) }
