// Package postgres provides the PostgreSQL persistence implementation.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // database/sql driver

	"github.com/onsell/automation/pkg/persistence"
	"github.com/onsell/automation/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db             *sql.DB
	logger         *slog.Logger
	automations    *AutomationRepository
	executionLogs  *ExecutionLogRepository
	campaigns      *CampaignRepository
	messages       *CampaignMessageRepository
	scheduledTasks *ScheduledTaskRepository
}

// NewPersistence connects, runs migrations and wires the repositories.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:             database,
		logger:         logger,
		automations:    NewAutomationRepository(database, logger),
		executionLogs:  NewExecutionLogRepository(database),
		campaigns:      NewCampaignRepository(database),
		messages:       NewCampaignMessageRepository(database),
		scheduledTasks: NewScheduledTaskRepository(database),
	}, nil
}

func (p *Persistence) AutomationRepository() persistence.AutomationRepository {
	return p.automations
}

func (p *Persistence) ExecutionLogRepository() persistence.ExecutionLogRepository {
	return p.executionLogs
}

func (p *Persistence) CampaignRepository() persistence.CampaignRepository {
	return p.campaigns
}

func (p *Persistence) CampaignMessageRepository() persistence.CampaignMessageRepository {
	return p.messages
}

func (p *Persistence) ScheduledTaskRepository() persistence.ScheduledTaskRepository {
	return p.scheduledTasks
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
