package campaign

import (
	"context"
	"fmt"
	"time"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/protocol"
	"github.com/onsell/automation/pkg/tasks"
)

// RunBatch processes one bounded batch of due messages for a campaign, then
// either completes the campaign or re-arms itself. The termination check
// re-queries the store; an in-memory count is never trusted.
func (s *Service) RunBatch(ctx context.Context, task *tasks.RunCampaignBatch) error {
	campaign, err := s.campaigns.GetByID(ctx, task.CampaignID)
	if err != nil {
		return err
	}

	if campaign.Status.Terminal() || campaign.Status == models.CampaignStatusPaused {
		s.logger.InfoContext(ctx, "Skipping batch tick",
			"campaign_id", campaign.ID, "status", campaign.Status)

		return nil
	}

	if campaign.Status == models.CampaignStatusScheduled {
		err = s.transition(ctx, campaign, models.CampaignStatusInProgress)
		if err != nil {
			return err
		}
	}

	due, err := s.messages.ListDue(ctx, campaign.ID, time.Now().UTC(), BatchSize)
	if err != nil {
		return fmt.Errorf("failed to list due messages: %w", err)
	}

	var sent, failed int

	for _, msg := range due {
		if s.deliver(ctx, msg) {
			sent++
		} else {
			failed++
		}
	}

	remaining, err := s.messages.CountScheduled(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("failed to count remaining messages: %w", err)
	}

	s.logger.InfoContext(ctx, "Batch tick finished",
		"campaign_id", campaign.ID, "sent", sent, "failed", failed, "remaining", remaining)

	if remaining == 0 {
		return s.transition(ctx, campaign, models.CampaignStatusCompleted)
	}

	// Work remains (likely future-scheduled steps); re-arm with a fresh
	// task so the loop keeps its own pace without busy-polling.
	next := &tasks.RunCampaignBatch{
		Base:       tasks.NewBase(tasks.TypeRunCampaignBatch),
		CampaignID: campaign.ID,
	}

	return s.dispatch.Enqueue(ctx, next, RearmDelay)
}

// CheckScheduled is the periodic sweep: it kicks off campaigns whose
// scheduled time has arrived and drains due messages across all campaigns.
func (s *Service) CheckScheduled(ctx context.Context, _ *tasks.CheckScheduledCampaigns) error {
	dueCampaigns, err := s.campaigns.ListDueScheduled(ctx, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to list due campaigns: %w", err)
	}

	for _, campaign := range dueCampaigns {
		task := &tasks.RunCampaignBatch{
			Base:       tasks.NewBase(tasks.TypeRunCampaignBatch),
			CampaignID: campaign.ID,
		}

		err = s.dispatch.Enqueue(ctx, task, 0)
		if err != nil {
			return fmt.Errorf("failed to enqueue batch tick for campaign %s: %w", campaign.ID, err)
		}

		s.logger.InfoContext(ctx, "Due campaign kicked off", "campaign_id", campaign.ID)
	}

	return s.ProcessPending(ctx)
}

// ProcessPending sends due messages across all campaigns, bounded by the
// sweep batch size. Messages of paused or terminal campaigns are left alone.
func (s *Service) ProcessPending(ctx context.Context) error {
	due, err := s.messages.ListDue(ctx, "", time.Now().UTC(), SweepBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list pending messages: %w", err)
	}

	statuses := make(map[string]models.CampaignStatus)
	touched := make(map[string]bool)

	for _, msg := range due {
		status, ok := statuses[msg.CampaignID]
		if !ok {
			campaign, err := s.campaigns.GetByID(ctx, msg.CampaignID)
			if err != nil {
				s.logger.ErrorContext(ctx, "Failed to load campaign for pending message",
					"campaign_id", msg.CampaignID, "error", err)

				continue
			}

			if campaign.Status == models.CampaignStatusScheduled {
				err = s.transition(ctx, campaign, models.CampaignStatusInProgress)
				if err != nil {
					return err
				}
			}

			status = campaign.Status
			statuses[msg.CampaignID] = status
		}

		if status != models.CampaignStatusInProgress {
			continue
		}

		s.deliver(ctx, msg)

		touched[msg.CampaignID] = true
	}

	for campaignID := range touched {
		err = s.checkCompletion(ctx, campaignID)
		if err != nil {
			return err
		}
	}

	return nil
}

// deliver sends one message and records the outcome. It reports success; a
// failed send marks the row failed rather than surfacing an error, since
// batch ticks aggregate counts instead of failing hard.
func (s *Service) deliver(ctx context.Context, msg *models.CampaignMessage) bool {
	result, err := s.sender.Send(ctx, protocol.SendRequest{
		ContactID: msg.ContactID,
		Channel:   msg.Channel,
		Content:   msg.Content,
		MediaURL:  msg.MediaURL,
	})
	if err != nil {
		msg.Status = models.MessageStatusFailed
		msg.ErrorMessage = err.Error()

		saveErr := s.messages.Save(ctx, msg)
		if saveErr != nil {
			s.logger.ErrorContext(ctx, "Failed to record message failure",
				"message_id", msg.ID, "error", saveErr)
		}

		return false
	}

	now := result.Timestamp
	if now.IsZero() {
		now = time.Now().UTC()
	}

	msg.Status = models.MessageStatusSent
	msg.SentAt = &now
	msg.ProviderMessageID = result.ProviderMessageID

	err = s.messages.Save(ctx, msg)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to record sent message",
			"message_id", msg.ID, "error", err)

		return false
	}

	return true
}

func (s *Service) checkCompletion(ctx context.Context, campaignID string) error {
	remaining, err := s.messages.CountScheduled(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("failed to count remaining messages: %w", err)
	}

	if remaining > 0 {
		return nil
	}

	campaign, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}

	if campaign.Status != models.CampaignStatusInProgress {
		return nil
	}

	return s.transition(ctx, campaign, models.CampaignStatusCompleted)
}
