package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/mwodeola/mwodeola-server/internal/logging"
)

const taskTypeBlacklistAll = "auth:blacklist_all"

type blacklistAllPayload struct {
	UserID string `json:"user_id"`
}

// Manager owns the asynq client and worker server for the auth task queue.
type Manager struct {
	client *asynq.Client
	server *asynq.Server
	mux    *asynq.ServeMux
	svc    BlacklistAller
	logger logging.Logger
}

// NewManager connects to the Redis queue at redisURI and registers the
// task handlers.
func NewManager(redisURI string, svc BlacklistAller, logger logging.Logger) (*Manager, error) {
	opt, err := asynq.ParseRedisURI(redisURI)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}

	client := asynq.NewClient(opt)
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 2,
		Queues: map[string]int{
			"auth": 1,
		},
	})

	m := &Manager{
		client: client,
		server: server,
		mux:    asynq.NewServeMux(),
		svc:    svc,
		logger: logger.With("module", "tasks"),
	}
	m.mux.HandleFunc(taskTypeBlacklistAll, m.handleBlacklistAll)
	return m, nil
}

// DispatchBlacklistAll enqueues a blacklist sweep for userID.
func (m *Manager) DispatchBlacklistAll(ctx context.Context, userID string) error {
	payload, err := json.Marshal(blacklistAllPayload{UserID: userID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(taskTypeBlacklistAll, payload, asynq.Queue("auth"), asynq.MaxRetry(5))
	if _, err := m.client.EnqueueContext(ctx, task); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskTypeBlacklistAll, err)
	}

	m.logger.Info(ctx, "Enqueued blacklist sweep", "user_id", userID)
	return nil
}

func (m *Manager) handleBlacklistAll(ctx context.Context, t *asynq.Task) error {
	var payload blacklistAllPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	if err := m.svc.BlacklistAll(ctx, payload.UserID); err != nil {
		m.logger.Error(ctx, "Blacklist sweep failed", "user_id", payload.UserID, "error", err.Error())
		return err
	}

	return nil
}

// Run starts the worker server and stops it when ctx is cancelled.
func (m *Manager) Run(ctx context.Context) error {
	if err := m.server.Start(m.mux); err != nil {
		return err
	}

	<-ctx.Done()
	m.logger.Info(ctx, "Stopping task workers...")
	m.server.Shutdown()
	return m.client.Close()
}
