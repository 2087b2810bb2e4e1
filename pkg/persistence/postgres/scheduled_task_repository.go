package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/onsell/automation/pkg/models"
)

// ScheduledTaskRepository is the durable due-time index for delayed tasks.
type ScheduledTaskRepository struct {
	db *sql.DB
}

func NewScheduledTaskRepository(db *sql.DB) *ScheduledTaskRepository {
	return &ScheduledTaskRepository{db: db}
}

func (r *ScheduledTaskRepository) Save(ctx context.Context, task *models.ScheduledTask) error {
	if task.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate scheduled task ID: %w", err)
		}

		task.ID = id.String()
	}

	if task.CreatedAt.IsZero() {
		task.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO scheduled_tasks (id, task_type, key, payload, due_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			task_type = EXCLUDED.task_type,
			key = EXCLUDED.key,
			payload = EXCLUDED.payload,
			due_at = EXCLUDED.due_at
	`

	_, err := r.db.ExecContext(ctx, query,
		task.ID, task.TaskType, task.Key, task.Payload, task.DueAt, task.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save scheduled task: %w", err)
	}

	return nil
}

func (r *ScheduledTaskRepository) Due(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledTask, error) {
	query := `
		SELECT id, task_type, key, payload, due_at, created_at
		FROM scheduled_tasks
		WHERE due_at <= $1
		ORDER BY due_at
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*models.ScheduledTask, 0)

	for rows.Next() {
		var (
			task models.ScheduledTask
			key  sql.NullString
		)

		err := rows.Scan(&task.ID, &task.TaskType, &key, &task.Payload, &task.DueAt, &task.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled task: %w", err)
		}

		task.Key = key.String
		tasks = append(tasks, &task)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating scheduled tasks: %w", err)
	}

	return tasks, nil
}

func (r *ScheduledTaskRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM scheduled_tasks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete scheduled task: %w", err)
	}

	return nil
}
