package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence"
)

// AutomationRepository handles automation and graph database operations.
type AutomationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAutomationRepository creates a new automation repository.
func NewAutomationRepository(db *sql.DB, logger *slog.Logger) *AutomationRepository {
	return &AutomationRepository{db: db, logger: logger}
}

const automationColumns = `
	id
  , tenant_id
  , name
  , description
  , trigger_type
  , trigger_config
  , active
  , created_at
  , updated_at
  , deleted_at
`

func (r *AutomationRepository) All(ctx context.Context) ([]*models.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE deleted_at IS NULL ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query automations: %w", err)
	}
	defer r.closeRows(ctx, rows)

	automations := make([]*models.Automation, 0)

	for rows.Next() {
		automation, err := r.scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation: %w", err)
		}

		err = r.loadGraph(ctx, automation)
		if err != nil {
			return nil, fmt.Errorf("failed to load automation graph: %w", err)
		}

		automations = append(automations, automation)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating automations: %w", err)
	}

	return automations, nil
}

func (r *AutomationRepository) GetByID(ctx context.Context, id string) (*models.Automation, error) {
	query := `SELECT ` + automationColumns + ` FROM automations WHERE id = $1 AND deleted_at IS NULL`

	row := r.db.QueryRowContext(ctx, query, id)

	automation, err := r.scanAutomation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewAutomationError("GetByID", id, persistence.ErrAutomationNotFound)
		}

		return nil, fmt.Errorf("failed to scan automation: %w", err)
	}

	err = r.loadGraph(ctx, automation)
	if err != nil {
		return nil, fmt.Errorf("failed to load automation graph: %w", err)
	}

	return automation, nil
}

func (r *AutomationRepository) ListActiveByTrigger(ctx context.Context, triggerType models.TriggerType) ([]*models.Automation, error) {
	query := `SELECT ` + automationColumns + `
		FROM automations
		WHERE trigger_type = $1 AND active = true AND deleted_at IS NULL
		ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, triggerType)
	if err != nil {
		return nil, fmt.Errorf("failed to query automations by trigger: %w", err)
	}
	defer r.closeRows(ctx, rows)

	automations := make([]*models.Automation, 0)

	for rows.Next() {
		automation, err := r.scanAutomation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation: %w", err)
		}

		err = r.loadGraph(ctx, automation)
		if err != nil {
			return nil, fmt.Errorf("failed to load automation graph: %w", err)
		}

		automations = append(automations, automation)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating automations: %w", err)
	}

	return automations, nil
}

// Save upserts the automation base row and replaces its graph snapshot in the
// same transaction.
func (r *AutomationRepository) Save(ctx context.Context, automation *models.Automation) error {
	now := time.Now().UTC()

	if automation.CreatedAt.IsZero() {
		automation.CreatedAt = now
	}

	automation.UpdatedAt = now

	if automation.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate automation ID: %w", err)
		}

		automation.ID = id.String()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	triggerConfigJSON, err := json.Marshal(automation.TriggerConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	query := `
		INSERT INTO automations (id, tenant_id, name, description, trigger_type,
			trigger_config, active, created_at, updated_at, deleted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger_type = EXCLUDED.trigger_type,
			trigger_config = EXCLUDED.trigger_config,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at,
			deleted_at = EXCLUDED.deleted_at
	`

	_, err = tx.ExecContext(ctx, query,
		automation.ID,
		automation.TenantID,
		automation.Name,
		automation.Description,
		automation.TriggerType,
		triggerConfigJSON,
		automation.Active,
		automation.CreatedAt,
		automation.UpdatedAt,
		automation.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save automation base: %w", err)
	}

	err = r.replaceGraphTx(ctx, tx, automation.ID, automation.Nodes, automation.Edges)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Delete soft deletes an automation by setting deleted_at.
func (r *AutomationRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE automations SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete automation: %w", err)
	}

	return nil
}

// ReplaceGraph atomically swaps all nodes and edges of an automation. A
// reader never observes a mix of old and new graph rows.
func (r *AutomationRepository) ReplaceGraph(ctx context.Context, automationID string, nodes []*models.Node, edges []*models.Edge) error {
	var exists bool

	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM automations WHERE id = $1 AND deleted_at IS NULL)`,
		automationID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check automation existence: %w", err)
	}

	if !exists {
		return persistence.NewAutomationError("ReplaceGraph", automationID, persistence.ErrAutomationNotFound)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	err = r.replaceGraphTx(ctx, tx, automationID, nodes, edges)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// OutEdges returns the outgoing edges of a node ordered by position.
func (r *AutomationRepository) OutEdges(ctx context.Context, automationID, nodeID string) ([]*models.Edge, error) {
	query := `
		SELECT id, source_id, target_id, source_handle, target_handle, label, config, position
		FROM automation_edges
		WHERE automation_id = $1 AND source_id = $2
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query, automationID, nodeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query out edges: %w", err)
	}
	defer r.closeRows(ctx, rows)

	edges, err := r.scanEdges(rows, automationID)
	if err != nil {
		return nil, err
	}

	return edges, nil
}

func (r *AutomationRepository) replaceGraphTx(ctx context.Context, tx *sql.Tx, automationID string, nodes []*models.Node, edges []*models.Edge) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM automation_edges WHERE automation_id = $1", automationID)
	if err != nil {
		return fmt.Errorf("failed to delete existing edges: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM automation_nodes WHERE automation_id = $1", automationID)
	if err != nil {
		return fmt.Errorf("failed to delete existing nodes: %w", err)
	}

	for _, node := range nodes {
		configJSON, err := json.Marshal(node.Config)
		if err != nil {
			return fmt.Errorf("failed to marshal node config: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO automation_nodes (automation_id, id, node_type, name, config, position_x, position_y)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			automationID, node.ID, node.Type, node.Name, configJSON, node.PositionX, node.PositionY,
		)
		if err != nil {
			return fmt.Errorf("failed to insert node %s: %w", node.ID, err)
		}
	}

	for position, edge := range edges {
		configJSON, err := json.Marshal(edge.Config)
		if err != nil {
			return fmt.Errorf("failed to marshal edge config: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO automation_edges (automation_id, id, source_id, target_id,
				source_handle, target_handle, label, config, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			automationID, edge.ID, edge.SourceID, edge.TargetID,
			edge.SourceHandle, edge.TargetHandle, edge.Label, configJSON, position,
		)
		if err != nil {
			return fmt.Errorf("failed to insert edge %s: %w", edge.ID, err)
		}
	}

	return nil
}

func (r *AutomationRepository) loadGraph(ctx context.Context, automation *models.Automation) error {
	nodesQuery := `
		SELECT id, node_type, name, config, position_x, position_y
		FROM automation_nodes
		WHERE automation_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.QueryContext(ctx, nodesQuery, automation.ID)
	if err != nil {
		return fmt.Errorf("failed to query automation nodes: %w", err)
	}
	defer r.closeRows(ctx, rows)

	var nodes []*models.Node

	for rows.Next() {
		var (
			node       models.Node
			configJSON []byte
		)

		err := rows.Scan(&node.ID, &node.Type, &node.Name, &configJSON, &node.PositionX, &node.PositionY)
		if err != nil {
			return fmt.Errorf("failed to scan node: %w", err)
		}

		if configJSON != nil {
			err := json.Unmarshal(configJSON, &node.Config)
			if err != nil {
				return fmt.Errorf("failed to unmarshal node config: %w", err)
			}
		}

		node.AutomationID = automation.ID
		nodes = append(nodes, &node)
	}

	err = rows.Err()
	if err != nil {
		return fmt.Errorf("error iterating nodes: %w", err)
	}

	edgesQuery := `
		SELECT id, source_id, target_id, source_handle, target_handle, label, config, position
		FROM automation_edges
		WHERE automation_id = $1
		ORDER BY position
	`

	edgeRows, err := r.db.QueryContext(ctx, edgesQuery, automation.ID)
	if err != nil {
		return fmt.Errorf("failed to query automation edges: %w", err)
	}
	defer r.closeRows(ctx, edgeRows)

	edges, err := r.scanEdges(edgeRows, automation.ID)
	if err != nil {
		return err
	}

	automation.Nodes = nodes
	automation.Edges = edges

	return nil
}

func (r *AutomationRepository) scanEdges(rows *sql.Rows, automationID string) ([]*models.Edge, error) {
	var edges []*models.Edge

	for rows.Next() {
		var (
			edge         models.Edge
			sourceHandle sql.NullString
			targetHandle sql.NullString
			label        sql.NullString
			configJSON   []byte
		)

		err := rows.Scan(&edge.ID, &edge.SourceID, &edge.TargetID,
			&sourceHandle, &targetHandle, &label, &configJSON, &edge.Position)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}

		edge.SourceHandle = sourceHandle.String
		edge.TargetHandle = targetHandle.String
		edge.Label = label.String

		if configJSON != nil {
			err := json.Unmarshal(configJSON, &edge.Config)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal edge config: %w", err)
			}
		}

		edge.AutomationID = automationID
		edges = append(edges, &edge)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating edges: %w", err)
	}

	return edges, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *AutomationRepository) scanAutomation(row rowScanner) (*models.Automation, error) {
	var (
		automation        models.Automation
		tenantID          sql.NullString
		description       sql.NullString
		triggerConfigJSON []byte
	)

	err := row.Scan(
		&automation.ID,
		&tenantID,
		&automation.Name,
		&description,
		&automation.TriggerType,
		&triggerConfigJSON,
		&automation.Active,
		&automation.CreatedAt,
		&automation.UpdatedAt,
		&automation.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	automation.TenantID = tenantID.String
	automation.Description = description.String

	if triggerConfigJSON != nil {
		err := json.Unmarshal(triggerConfigJSON, &automation.TriggerConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
		}
	}

	return &automation, nil
}

func (r *AutomationRepository) closeRows(ctx context.Context, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}
