// Package campaign runs scheduled batch-messaging campaigns: audience
// preparation, bounded send batches with self-rescheduling, and lifecycle
// management.
package campaign

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/onsell/automation/pkg/dispatcher"
	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence"
	"github.com/onsell/automation/pkg/protocol"
	"github.com/onsell/automation/pkg/tasks"
)

const (
	// BatchSize bounds one campaign-specific batch tick.
	BatchSize = 100

	// SweepBatchSize bounds the cross-campaign pending sweep.
	SweepBatchSize = 200

	// RearmDelay is how long a batch tick waits before re-checking a
	// campaign that still has scheduled messages. This is a fresh task, not
	// a retry.
	RearmDelay = 5 * time.Minute

	// CancelReason is recorded on messages failed by a campaign cancel.
	CancelReason = "campaign_cancelled"
)

// ErrInvalidTransition reports a lifecycle action not allowed from the
// campaign's current status.
var ErrInvalidTransition = errors.New("invalid campaign status transition")

// Service owns campaigns and their message batches.
type Service struct {
	campaigns persistence.CampaignRepository
	messages  persistence.CampaignMessageRepository
	contacts  protocol.ContactStore
	templates protocol.TemplateStore
	sender    protocol.ChannelSender
	dispatch  *dispatcher.Dispatcher
	validate  *validator.Validate
	logger    *slog.Logger
}

func NewService(
	campaigns persistence.CampaignRepository,
	messages persistence.CampaignMessageRepository,
	contacts protocol.ContactStore,
	templates protocol.TemplateStore,
	sender protocol.ChannelSender,
	dispatch *dispatcher.Dispatcher,
	logger *slog.Logger,
) *Service {
	return &Service{
		campaigns: campaigns,
		messages:  messages,
		contacts:  contacts,
		templates: templates,
		sender:    sender,
		dispatch:  dispatch,
		validate:  validator.New(),
		logger:    logger.With("module", "campaign"),
	}
}

// Get returns one campaign.
func (s *Service) Get(ctx context.Context, campaignID string) (*models.Campaign, error) {
	return s.campaigns.GetByID(ctx, campaignID)
}

// List returns every campaign.
func (s *Service) List(ctx context.Context) ([]*models.Campaign, error) {
	return s.campaigns.All(ctx)
}

// Save validates and persists a campaign. New campaigns start as drafts.
// Status changes on existing campaigns obey the same transition table as the
// lifecycle actions, so an upsert cannot complete an in-progress campaign or
// resurrect a cancelled one.
func (s *Service) Save(ctx context.Context, campaign *models.Campaign) error {
	if campaign.Status == "" {
		campaign.Status = models.CampaignStatusDraft
	}

	err := s.validate.Struct(campaign)
	if err != nil {
		return fmt.Errorf("invalid campaign: %w", err)
	}

	if campaign.ID != "" {
		existing, err := s.campaigns.GetByID(ctx, campaign.ID)

		switch {
		case persistence.IsCampaignNotFound(err):
		case err != nil:
			return err
		case existing.Status != campaign.Status && !existing.Status.CanTransition(campaign.Status):
			return fmt.Errorf("campaign %s cannot move %s -> %s: %w",
				campaign.ID, existing.Status, campaign.Status, ErrInvalidTransition)
		}
	}

	return s.campaigns.Save(ctx, campaign)
}

// Start schedules a draft campaign (or kicks a scheduled one), prepares its
// message rows, and enqueues the first batch tick.
func (s *Service) Start(ctx context.Context, campaignID string) (*models.PrepareResult, error) {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	if campaign.Status == models.CampaignStatusDraft {
		err = s.transition(ctx, campaign, models.CampaignStatusScheduled)
		if err != nil {
			return nil, err
		}
	}

	if campaign.Status != models.CampaignStatusScheduled {
		return nil, fmt.Errorf("cannot start campaign in status %q: %w", campaign.Status, ErrInvalidTransition)
	}

	if campaign.ScheduledAt == nil {
		now := time.Now().UTC()
		campaign.ScheduledAt = &now

		err = s.campaigns.Save(ctx, campaign)
		if err != nil {
			return nil, err
		}
	}

	result, err := s.PrepareMessages(ctx, campaign)
	if err != nil {
		return nil, err
	}

	task := &tasks.RunCampaignBatch{
		Base:       tasks.NewBase(tasks.TypeRunCampaignBatch),
		CampaignID: campaign.ID,
	}

	err = s.dispatch.Enqueue(ctx, task, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue batch tick: %w", err)
	}

	s.logger.InfoContext(ctx, "Campaign started",
		"campaign_id", campaign.ID, "created", result.Created,
		"updated", result.Updated, "total", result.Total)

	return result, nil
}

// Pause suspends an in-progress campaign. Its scheduled messages stay in
// place until resume.
func (s *Service) Pause(ctx context.Context, campaignID string) error {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}

	return s.transition(ctx, campaign, models.CampaignStatusPaused)
}

// Resume restarts a paused campaign and enqueues a fresh batch tick.
func (s *Service) Resume(ctx context.Context, campaignID string) error {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}

	err = s.transition(ctx, campaign, models.CampaignStatusInProgress)
	if err != nil {
		return err
	}

	task := &tasks.RunCampaignBatch{
		Base:       tasks.NewBase(tasks.TypeRunCampaignBatch),
		CampaignID: campaign.ID,
	}

	return s.dispatch.Enqueue(ctx, task, 0)
}

// Cancel stops a campaign from any non-terminal state. Every remaining
// scheduled message is flipped to failed synchronously; in-flight sends
// already dispatched to a worker are not recalled.
func (s *Service) Cancel(ctx context.Context, campaignID string) error {
	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}

	err = s.transition(ctx, campaign, models.CampaignStatusCancelled)
	if err != nil {
		return err
	}

	failed, err := s.messages.FailAllScheduled(ctx, campaignID, CancelReason)
	if err != nil {
		return fmt.Errorf("failed to cancel scheduled messages: %w", err)
	}

	s.logger.InfoContext(ctx, "Campaign cancelled",
		"campaign_id", campaignID, "messages_failed", failed)

	return nil
}

// Stats aggregates message counts by status.
func (s *Service) Stats(ctx context.Context, campaignID string) (*models.CampaignStats, error) {
	_, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	return s.messages.Stats(ctx, campaignID)
}

// Messages lists a campaign's messages, paginated.
func (s *Service) Messages(ctx context.Context, campaignID string, offset, limit int) ([]*models.CampaignMessage, error) {
	return s.messages.ListByCampaign(ctx, campaignID, offset, limit)
}

func (s *Service) transition(ctx context.Context, campaign *models.Campaign, next models.CampaignStatus) error {
	if !campaign.Status.CanTransition(next) {
		return fmt.Errorf("campaign %s cannot move %s -> %s: %w",
			campaign.ID, campaign.Status, next, ErrInvalidTransition)
	}

	now := time.Now().UTC()
	campaign.Status = next

	switch next {
	case models.CampaignStatusInProgress:
		if campaign.StartedAt == nil {
			campaign.StartedAt = &now
		}
	case models.CampaignStatusCompleted, models.CampaignStatusCancelled:
		campaign.CompletedAt = &now
	}

	return s.campaigns.Save(ctx, campaign)
}
