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

// CampaignRepository stores campaigns.
type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

const campaignColumns = `
	id
  , tenant_id
  , name
  , status
  , audience
  , steps
  , scheduled_at
  , started_at
  , completed_at
  , created_at
  , updated_at
`

func (r *CampaignRepository) All(ctx context.Context) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns ORDER BY created_at`

	return r.queryCampaigns(ctx, query)
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	campaign, err := r.scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewCampaignError("GetByID", id, persistence.ErrCampaignNotFound)
		}

		return nil, fmt.Errorf("failed to scan campaign: %w", err)
	}

	return campaign, nil
}

func (r *CampaignRepository) Save(ctx context.Context, campaign *models.Campaign) error {
	now := time.Now().UTC()

	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}

	campaign.UpdatedAt = now

	if campaign.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate campaign ID: %w", err)
		}

		campaign.ID = id.String()
	}

	audienceJSON, err := json.Marshal(campaign.Audience)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign audience: %w", err)
	}

	stepsJSON, err := json.Marshal(campaign.Steps)
	if err != nil {
		return fmt.Errorf("failed to marshal campaign steps: %w", err)
	}

	query := `
		INSERT INTO campaigns (id, tenant_id, name, status, audience, steps,
			scheduled_at, started_at, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			audience = EXCLUDED.audience,
			steps = EXCLUDED.steps,
			scheduled_at = EXCLUDED.scheduled_at,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		campaign.ID,
		campaign.TenantID,
		campaign.Name,
		campaign.Status,
		audienceJSON,
		stepsJSON,
		campaign.ScheduledAt,
		campaign.StartedAt,
		campaign.CompletedAt,
		campaign.CreatedAt,
		campaign.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}

	return nil
}

func (r *CampaignRepository) ListDueScheduled(ctx context.Context, now time.Time) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + `
		FROM campaigns
		WHERE status = $1 AND scheduled_at IS NOT NULL AND scheduled_at <= $2
		ORDER BY scheduled_at`

	return r.queryCampaigns(ctx, query, models.CampaignStatusScheduled, now)
}

func (r *CampaignRepository) queryCampaigns(ctx context.Context, query string, args ...any) ([]*models.Campaign, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaigns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	campaigns := make([]*models.Campaign, 0)

	for rows.Next() {
		campaign, err := r.scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign: %w", err)
		}

		campaigns = append(campaigns, campaign)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating campaigns: %w", err)
	}

	return campaigns, nil
}

func (r *CampaignRepository) scanCampaign(row rowScanner) (*models.Campaign, error) {
	var (
		campaign     models.Campaign
		tenantID     sql.NullString
		audienceJSON []byte
		stepsJSON    []byte
	)

	err := row.Scan(
		&campaign.ID,
		&tenantID,
		&campaign.Name,
		&campaign.Status,
		&audienceJSON,
		&stepsJSON,
		&campaign.ScheduledAt,
		&campaign.StartedAt,
		&campaign.CompletedAt,
		&campaign.CreatedAt,
		&campaign.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	campaign.TenantID = tenantID.String

	if audienceJSON != nil {
		err := json.Unmarshal(audienceJSON, &campaign.Audience)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal campaign audience: %w", err)
		}
	}

	if stepsJSON != nil {
		err := json.Unmarshal(stepsJSON, &campaign.Steps)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal campaign steps: %w", err)
		}
	}

	return &campaign, nil
}
