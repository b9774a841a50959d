package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"attendance/internal/attendance"
	"attendance/internal/config"
	"attendance/internal/logging"
	"attendance/internal/queue"
	"attendance/internal/store"
)

// Worker consumes sweep jobs and converges each person/day back to at most
// one record per status. The API schedules a job after every write; running
// the worker on a schedule over recent days is also safe since sweeps are
// idempotent.
func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("db connect failed", zap.Error(err))
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, cfg.SweepQueueKey)
	}

	repo := attendance.NewRepository(db.Client)
	sweeper := attendance.NewSweeper(repo, logger)

	messages, err := q.Consume(ctx)
	if err != nil {
		logger.Fatal("queue consume init failed", zap.Error(err))
	}

	logger.Info("worker started, waiting for sweep jobs")
	for msg := range messages {
		if msg.Type != "sweep" {
			continue
		}

		var job attendance.SweepJob
		if err := json.Unmarshal(msg.Body, &job); err != nil {
			logger.Warn("malformed sweep job", zap.Error(err))
			continue
		}

		deleted, err := sweeper.Sweep(ctx, job.Email, job.Start, job.End)
		if err != nil {
			logger.Warn("sweep failed", zap.String("email", job.Email), zap.Error(err))
			continue
		}
		if deleted > 0 {
			logger.Info("sweep removed duplicates",
				zap.String("email", job.Email),
				zap.Int("deleted", deleted))
		}
	}

	logger.Info("worker stopped")
}
