// Package queue consumes CRM trigger events from a Redis queue and feeds
// them to the flow orchestrator.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/onsell/automation/pkg/models"
)

// Callback receives one decoded trigger event.
type Callback func(ctx context.Context, triggerType models.TriggerType, payload map[string]any) error

// Source pops trigger events off a Redis list. The CRM pushes JSON envelopes
// of the form {"trigger_type": "...", "contact_id": "...", ...}; anything
// else is logged and dropped.
type Source struct {
	addr     string
	password string
	db       int
	queue    string

	client   redis.UniversalClient
	callback Callback
	logger   *slog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewSource(addr, password string, db int, queue string, logger *slog.Logger) (*Source, error) {
	if queue == "" {
		return nil, errors.New("trigger queue name is required")
	}

	if addr == "" {
		addr = "localhost:6379"
	}

	return &Source{
		addr:     addr,
		password: password,
		db:       db,
		queue:    queue,
		stopCh:   make(chan struct{}),
		logger:   logger.With("module", "queue_source", "queue", queue),
	}, nil
}

// Start connects and begins consuming in the background.
func (s *Source) Start(ctx context.Context, callback Callback) error {
	s.callback = callback

	s.client = redis.NewClient(&redis.Options{
		Addr:     s.addr,
		Password: s.password,
		DB:       s.db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.client.Ping(pingCtx).Err()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	s.logger.InfoContext(ctx, "Connected to Redis", "addr", s.addr, "db", s.db)

	s.wg.Add(1)

	go s.consume(ctx)

	return nil
}

func (s *Source) consume(ctx context.Context) {
	defer s.wg.Done()

	s.logger.InfoContext(ctx, "Starting trigger event consumer")

	for {
		select {
		case <-s.stopCh:
			s.logger.InfoContext(ctx, "Trigger event consumer stopped")

			return
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "Context cancelled, stopping trigger event consumer")

			return
		default:
			err := s.processEvent(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "Error processing trigger event", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (s *Source) processEvent(ctx context.Context) error {
	result, err := s.client.BLPop(ctx, 1*time.Second, s.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop trigger event: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	var payload map[string]any

	err = json.Unmarshal([]byte(result[1]), &payload)
	if err != nil {
		s.logger.WarnContext(ctx, "Dropping malformed trigger event", "error", err)

		return nil
	}

	triggerType, _ := payload["trigger_type"].(string)
	if !models.TriggerType(triggerType).IsValid() {
		s.logger.WarnContext(ctx, "Dropping trigger event with unknown type", "trigger_type", triggerType)

		return nil
	}

	err = s.callback(ctx, models.TriggerType(triggerType), payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error starting automations for trigger event",
			"trigger_type", triggerType, "error", err)
	}

	return nil
}

// Stop halts consumption and closes the connection.
func (s *Source) Stop(ctx context.Context) error {
	close(s.stopCh)
	s.wg.Wait()

	if s.client != nil {
		err := s.client.Close()
		if err != nil {
			s.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
