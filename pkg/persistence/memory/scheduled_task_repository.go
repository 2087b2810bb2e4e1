package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onsell/automation/pkg/models"
)

// ScheduledTaskRepository stores the due-time index in memory.
type ScheduledTaskRepository struct {
	mu    sync.RWMutex
	tasks map[string]*models.ScheduledTask
}

func NewScheduledTaskRepository() *ScheduledTaskRepository {
	return &ScheduledTaskRepository{tasks: make(map[string]*models.ScheduledTask)}
}

func (r *ScheduledTaskRepository) Save(_ context.Context, task *models.ScheduledTask) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}

		task.ID = id.String()
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	r.tasks[task.ID] = cloneScheduledTask(task)

	return nil
}

func (r *ScheduledTaskRepository) Due(_ context.Context, now time.Time, limit int) ([]*models.ScheduledTask, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.ScheduledTask

	for _, task := range r.tasks {
		if !task.DueAt.After(now) {
			result = append(result, cloneScheduledTask(task))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].DueAt.Before(result[j].DueAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func (r *ScheduledTaskRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tasks, id)

	return nil
}
