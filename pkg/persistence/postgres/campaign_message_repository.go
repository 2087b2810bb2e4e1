package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence"
)

// CampaignMessageRepository stores per-(campaign, contact, channel) messages.
type CampaignMessageRepository struct {
	db *sql.DB
}

func NewCampaignMessageRepository(db *sql.DB) *CampaignMessageRepository {
	return &CampaignMessageRepository{db: db}
}

const campaignMessageColumns = `
	id
  , campaign_id
  , contact_id
  , channel
  , content
  , media_url
  , status
  , scheduled_at
  , sent_at
  , provider_message_id
  , error_message
  , created_at
  , updated_at
`

func (r *CampaignMessageRepository) GetByID(ctx context.Context, id string) (*models.CampaignMessage, error) {
	query := `SELECT ` + campaignMessageColumns + ` FROM campaign_messages WHERE id = $1`

	msg, err := r.scanMessage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrCampaignMessageNotFound
		}

		return nil, fmt.Errorf("failed to scan campaign message: %w", err)
	}

	return msg, nil
}

func (r *CampaignMessageRepository) Save(ctx context.Context, msg *models.CampaignMessage) error {
	now := time.Now().UTC()

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}

	msg.UpdatedAt = now

	if msg.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate campaign message ID: %w", err)
		}

		msg.ID = id.String()
	}

	query := `
		INSERT INTO campaign_messages (id, campaign_id, contact_id, channel, content,
			media_url, status, scheduled_at, sent_at, provider_message_id,
			error_message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			media_url = EXCLUDED.media_url,
			status = EXCLUDED.status,
			scheduled_at = EXCLUDED.scheduled_at,
			sent_at = EXCLUDED.sent_at,
			provider_message_id = EXCLUDED.provider_message_id,
			error_message = EXCLUDED.error_message,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		msg.ID,
		msg.CampaignID,
		msg.ContactID,
		msg.Channel,
		msg.Content,
		msg.MediaURL,
		msg.Status,
		msg.ScheduledAt,
		msg.SentAt,
		msg.ProviderMessageID,
		msg.ErrorMessage,
		msg.CreatedAt,
		msg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save campaign message: %w", err)
	}

	return nil
}

func (r *CampaignMessageRepository) FindScheduled(ctx context.Context, campaignID, contactID, channel string) (*models.CampaignMessage, error) {
	query := `SELECT ` + campaignMessageColumns + `
		FROM campaign_messages
		WHERE campaign_id = $1 AND contact_id = $2 AND channel = $3 AND status = $4`

	msg, err := r.scanMessage(r.db.QueryRowContext(ctx, query,
		campaignID, contactID, channel, models.MessageStatusScheduled))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrCampaignMessageNotFound
		}

		return nil, fmt.Errorf("failed to scan campaign message: %w", err)
	}

	return msg, nil
}

func (r *CampaignMessageRepository) ListDue(ctx context.Context, campaignID string, now time.Time, limit int) ([]*models.CampaignMessage, error) {
	query := `SELECT ` + campaignMessageColumns + `
		FROM campaign_messages
		WHERE status = $1 AND scheduled_at <= $2
			AND ($3 = '' OR campaign_id::text = $3)
		ORDER BY scheduled_at
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, models.MessageStatusScheduled, now, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due campaign messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return r.collectMessages(rows)
}

func (r *CampaignMessageRepository) CountScheduled(ctx context.Context, campaignID string) (int, error) {
	var count int

	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM campaign_messages WHERE campaign_id = $1 AND status = $2`,
		campaignID, models.MessageStatusScheduled).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count scheduled messages: %w", err)
	}

	return count, nil
}

func (r *CampaignMessageRepository) FailAllScheduled(ctx context.Context, campaignID, reason string) (int, error) {
	query := `
		UPDATE campaign_messages
		SET status = $3, error_message = $4, updated_at = NOW()
		WHERE campaign_id = $1 AND status = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		campaignID, models.MessageStatusScheduled, models.MessageStatusFailed, reason)
	if err != nil {
		return 0, fmt.Errorf("failed to fail scheduled messages: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check update result: %w", err)
	}

	return int(affected), nil
}

func (r *CampaignMessageRepository) ListByCampaign(ctx context.Context, campaignID string, offset, limit int) ([]*models.CampaignMessage, error) {
	query := `SELECT ` + campaignMessageColumns + `
		FROM campaign_messages
		WHERE campaign_id = $1
		ORDER BY created_at
		OFFSET $2 LIMIT $3`

	rows, err := r.db.QueryContext(ctx, query, campaignID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return r.collectMessages(rows)
}

func (r *CampaignMessageRepository) Stats(ctx context.Context, campaignID string) (*models.CampaignStats, error) {
	query := `
		SELECT status, COUNT(*)
		FROM campaign_messages
		WHERE campaign_id = $1
		GROUP BY status
	`

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to query campaign stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stats := &models.CampaignStats{}

	for rows.Next() {
		var (
			status models.MessageStatus
			count  int
		)

		err := rows.Scan(&status, &count)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign stats: %w", err)
		}

		switch status {
		case models.MessageStatusScheduled:
			stats.Scheduled = count
		case models.MessageStatusSent:
			stats.Sent = count
		case models.MessageStatusDelivered:
			stats.Delivered = count
		case models.MessageStatusRead:
			stats.Read = count
		case models.MessageStatusFailed:
			stats.Failed = count
		}

		stats.Total += count
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating campaign stats: %w", err)
	}

	return stats, nil
}

func (r *CampaignMessageRepository) collectMessages(rows *sql.Rows) ([]*models.CampaignMessage, error) {
	messages := make([]*models.CampaignMessage, 0)

	for rows.Next() {
		msg, err := r.scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan campaign message: %w", err)
		}

		messages = append(messages, msg)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating campaign messages: %w", err)
	}

	return messages, nil
}

func (r *CampaignMessageRepository) scanMessage(row rowScanner) (*models.CampaignMessage, error) {
	var (
		msg               models.CampaignMessage
		content           sql.NullString
		mediaURL          sql.NullString
		providerMessageID sql.NullString
		errorMessage      sql.NullString
	)

	err := row.Scan(
		&msg.ID,
		&msg.CampaignID,
		&msg.ContactID,
		&msg.Channel,
		&content,
		&mediaURL,
		&msg.Status,
		&msg.ScheduledAt,
		&msg.SentAt,
		&providerMessageID,
		&errorMessage,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	msg.Content = content.String
	msg.MediaURL = mediaURL.String
	msg.ProviderMessageID = providerMessageID.String
	msg.ErrorMessage = errorMessage.String

	return &msg, nil
}
