package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence"
)

// ExecutionLogRepository stores the append-only execution audit trail.
type ExecutionLogRepository struct {
	db *sql.DB
}

func NewExecutionLogRepository(db *sql.DB) *ExecutionLogRepository {
	return &ExecutionLogRepository{db: db}
}

const executionLogColumns = `
	id
  , automation_id
  , contact_id
  , opportunity_id
  , node_id
  , status
  , message
  , context
  , result
  , started_at
  , completed_at
  , created_at
`

func (r *ExecutionLogRepository) Create(ctx context.Context, entry *models.ExecutionLog) error {
	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate execution log ID: %w", err)
		}

		entry.ID = id.String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	contextJSON, resultJSON, err := marshalLogPayloads(entry)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO execution_logs (id, automation_id, contact_id, opportunity_id,
			node_id, status, message, context, result, started_at, completed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = r.db.ExecContext(ctx, query,
		entry.ID,
		entry.AutomationID,
		entry.ContactID,
		entry.OpportunityID,
		entry.NodeID,
		entry.Status,
		entry.Message,
		contextJSON,
		resultJSON,
		entry.StartedAt,
		entry.CompletedAt,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create execution log: %w", err)
	}

	return nil
}

func (r *ExecutionLogRepository) GetByID(ctx context.Context, id string) (*models.ExecutionLog, error) {
	query := `SELECT ` + executionLogColumns + ` FROM execution_logs WHERE id = $1`

	entry, err := r.scanLog(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrExecutionLogNotFound
		}

		return nil, fmt.Errorf("failed to scan execution log: %w", err)
	}

	return entry, nil
}

func (r *ExecutionLogRepository) Update(ctx context.Context, entry *models.ExecutionLog) error {
	contextJSON, resultJSON, err := marshalLogPayloads(entry)
	if err != nil {
		return err
	}

	query := `
		UPDATE execution_logs
		SET status = $2, message = $3, context = $4, result = $5,
			started_at = $6, completed_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Status,
		entry.Message,
		contextJSON,
		resultJSON,
		entry.StartedAt,
		entry.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update execution log: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}

	if affected == 0 {
		return persistence.ErrExecutionLogNotFound
	}

	return nil
}

func (r *ExecutionLogRepository) ListByRun(ctx context.Context, automationID, contactID string, offset, limit int) ([]*models.ExecutionLog, error) {
	query := `SELECT ` + executionLogColumns + `
		FROM execution_logs
		WHERE automation_id = $1 AND contact_id = $2
		ORDER BY created_at
		OFFSET $3 LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, automationID, contactID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query execution logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*models.ExecutionLog, 0)

	for rows.Next() {
		entry, err := r.scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan execution log: %w", err)
		}

		entries = append(entries, entry)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating execution logs: %w", err)
	}

	return entries, nil
}

func (r *ExecutionLogRepository) scanLog(row rowScanner) (*models.ExecutionLog, error) {
	var (
		entry       models.ExecutionLog
		message     sql.NullString
		contextJSON []byte
		resultJSON  []byte
	)

	err := row.Scan(
		&entry.ID,
		&entry.AutomationID,
		&entry.ContactID,
		&entry.OpportunityID,
		&entry.NodeID,
		&entry.Status,
		&message,
		&contextJSON,
		&resultJSON,
		&entry.StartedAt,
		&entry.CompletedAt,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Message = message.String

	if contextJSON != nil {
		err := json.Unmarshal(contextJSON, &entry.Context)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution context: %w", err)
		}
	}

	if resultJSON != nil {
		err := json.Unmarshal(resultJSON, &entry.Result)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution result: %w", err)
		}
	}

	return &entry, nil
}

func marshalLogPayloads(entry *models.ExecutionLog) ([]byte, []byte, error) {
	contextJSON, err := json.Marshal(entry.Context)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal execution context: %w", err)
	}

	resultJSON, err := json.Marshal(entry.Result)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal execution result: %w", err)
	}

	return contextJSON, resultJSON, nil
}
