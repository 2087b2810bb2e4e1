package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence"
)

// ExecutionLogRepository stores the audit trail in memory. Entries are
// append-only; Update mutates status fields in place but never removes rows.
type ExecutionLogRepository struct {
	mu      sync.RWMutex
	entries map[string]*models.ExecutionLog
	order   []string
}

func NewExecutionLogRepository() *ExecutionLogRepository {
	return &ExecutionLogRepository{entries: make(map[string]*models.ExecutionLog)}
}

func (r *ExecutionLogRepository) Create(_ context.Context, entry *models.ExecutionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}

		entry.ID = id.String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	r.entries[entry.ID] = cloneExecutionLog(entry)
	r.order = append(r.order, entry.ID)

	return nil
}

func (r *ExecutionLogRepository) GetByID(_ context.Context, id string) (*models.ExecutionLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, persistence.ErrExecutionLogNotFound
	}

	return cloneExecutionLog(entry), nil
}

func (r *ExecutionLogRepository) Update(_ context.Context, entry *models.ExecutionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[entry.ID]; !ok {
		return persistence.ErrExecutionLogNotFound
	}

	r.entries[entry.ID] = cloneExecutionLog(entry)

	return nil
}

func (r *ExecutionLogRepository) ListByRun(_ context.Context, automationID, contactID string, offset, limit int) ([]*models.ExecutionLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.ExecutionLog

	for _, id := range r.order {
		entry := r.entries[id]
		if entry.AutomationID == automationID && entry.ContactID == contactID {
			matched = append(matched, entry)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if offset >= len(matched) {
		return nil, nil
	}

	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	result := make([]*models.ExecutionLog, 0, end-offset)
	for _, entry := range matched[offset:end] {
		result = append(result, cloneExecutionLog(entry))
	}

	return result, nil
}
