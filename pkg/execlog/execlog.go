// Package execlog maintains the per-(automation, contact, node) execution
// state machine and its append-only audit trail.
package execlog

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence"
)

const historyPageSize = 100

// Service owns execution log entries. All mutations go through the Mark*
// methods so the monotonic transition rule is enforced in one place.
type Service struct {
	logs   persistence.ExecutionLogRepository
	logger *slog.Logger
}

func NewService(logs persistence.ExecutionLogRepository, logger *slog.Logger) *Service {
	return &Service{
		logs:   logs,
		logger: logger.With("module", "execlog"),
	}
}

// Begin creates a pending entry for a node (or for the run itself when nodeID
// is nil) and returns its id.
func (s *Service) Begin(ctx context.Context, automationID, contactID string, opportunityID, nodeID *string, execContext map[string]any) (string, error) {
	entry := &models.ExecutionLog{
		AutomationID:  automationID,
		ContactID:     contactID,
		OpportunityID: opportunityID,
		NodeID:        nodeID,
		Status:        models.ExecutionStatusPending,
		Context:       execContext,
	}

	err := s.logs.Create(ctx, entry)
	if err != nil {
		return "", fmt.Errorf("failed to begin execution log entry: %w", err)
	}

	return entry.ID, nil
}

// MarkRunning transitions an entry to running and stamps its start time.
func (s *Service) MarkRunning(ctx context.Context, logID string) (*models.ExecutionLog, error) {
	return s.transition(ctx, logID, models.ExecutionStatusRunning, func(entry *models.ExecutionLog) {
		now := time.Now().UTC()
		entry.StartedAt = &now
	})
}

// MarkCompleted finishes an entry successfully, recording the node's result.
func (s *Service) MarkCompleted(ctx context.Context, logID string, result map[string]any) (*models.ExecutionLog, error) {
	return s.transition(ctx, logID, models.ExecutionStatusCompleted, func(entry *models.ExecutionLog) {
		now := time.Now().UTC()
		entry.CompletedAt = &now
		entry.Result = result
	})
}

// MarkFailed finishes an entry with the causing error message.
func (s *Service) MarkFailed(ctx context.Context, logID, errorMessage string) (*models.ExecutionLog, error) {
	return s.transition(ctx, logID, models.ExecutionStatusFailed, func(entry *models.ExecutionLog) {
		now := time.Now().UTC()
		entry.CompletedAt = &now
		entry.Message = errorMessage
	})
}

// MarkSkipped finishes an entry without executing it, e.g. when no condition
// branch matched. Skipping is a normal outcome, not an error.
func (s *Service) MarkSkipped(ctx context.Context, logID, reason string) (*models.ExecutionLog, error) {
	return s.transition(ctx, logID, models.ExecutionStatusSkipped, func(entry *models.ExecutionLog) {
		now := time.Now().UTC()
		entry.CompletedAt = &now
		entry.Message = reason
	})
}

// UpdateContext stores the accumulated run context on an entry without
// changing its status.
func (s *Service) UpdateContext(ctx context.Context, logID string, execContext map[string]any) error {
	entry, err := s.logs.GetByID(ctx, logID)
	if err != nil {
		return err
	}

	entry.Context = execContext

	return s.logs.Update(ctx, entry)
}

// Get returns one entry by id.
func (s *Service) Get(ctx context.Context, logID string) (*models.ExecutionLog, error) {
	return s.logs.GetByID(ctx, logID)
}

// History lazily iterates every entry of one (automation, contact) run in
// creation order. The sequence is restartable: each range starts a fresh walk
// from the first page.
func (s *Service) History(ctx context.Context, automationID, contactID string) iter.Seq2[*models.ExecutionLog, error] {
	return func(yield func(*models.ExecutionLog, error) bool) {
		offset := 0

		for {
			page, err := s.logs.ListByRun(ctx, automationID, contactID, offset, historyPageSize)
			if err != nil {
				yield(nil, err)

				return
			}

			for _, entry := range page {
				if !yield(entry, nil) {
					return
				}
			}

			if len(page) < historyPageSize {
				return
			}

			offset += len(page)
		}
	}
}

func (s *Service) transition(ctx context.Context, logID string, next models.ExecutionStatus, apply func(*models.ExecutionLog)) (*models.ExecutionLog, error) {
	entry, err := s.logs.GetByID(ctx, logID)
	if err != nil {
		return nil, err
	}

	if !entry.Status.CanTransition(next) {
		return nil, &InvariantError{
			LogID: logID,
			From:  entry.Status,
			To:    next,
		}
	}

	entry.Status = next
	apply(entry)

	err = s.logs.Update(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("failed to update execution log entry: %w", err)
	}

	s.logger.DebugContext(ctx, "Execution log transition",
		"log_id", logID, "status", next, "node_id", entry.NodeID)

	return entry, nil
}
