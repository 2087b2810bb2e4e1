package campaign

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence"
	"github.com/onsell/automation/pkg/template"
)

// PrepareMessages resolves the campaign audience and upserts one message row
// per (contact, step). Re-preparing updates the existing scheduled row for a
// (campaign, contact, channel) instead of duplicating it, so the call is
// idempotent.
func (s *Service) PrepareMessages(ctx context.Context, campaign *models.Campaign) (*models.PrepareResult, error) {
	audience, err := s.resolveAudience(ctx, campaign)
	if err != nil {
		return nil, err
	}

	baseTime := time.Now().UTC()
	if campaign.ScheduledAt != nil {
		baseTime = *campaign.ScheduledAt
	}

	result := &models.PrepareResult{Total: len(audience)}

	for _, contact := range audience {
		for _, step := range campaign.Steps {
			content, mediaURL, err := s.renderStep(ctx, step, contact)
			if err != nil {
				s.logger.WarnContext(ctx, "Skipping unpreparable message",
					"campaign_id", campaign.ID, "contact_id", contact.ID,
					"channel", step.Channel, "error", err)

				result.Skipped++

				continue
			}

			scheduledAt := baseTime.Add(time.Duration(step.DelayMinutes) * time.Minute)

			existing, err := s.messages.FindScheduled(ctx, campaign.ID, contact.ID, step.Channel)

			switch {
			case err == nil:
				existing.Content = content
				existing.MediaURL = mediaURL
				existing.ScheduledAt = scheduledAt

				err = s.messages.Save(ctx, existing)
				if err != nil {
					return nil, fmt.Errorf("failed to update message: %w", err)
				}

				result.Updated++
			case errors.Is(err, persistence.ErrCampaignMessageNotFound):
				msg := &models.CampaignMessage{
					CampaignID:  campaign.ID,
					ContactID:   contact.ID,
					Channel:     step.Channel,
					Content:     content,
					MediaURL:    mediaURL,
					Status:      models.MessageStatusScheduled,
					ScheduledAt: scheduledAt,
				}

				err = s.messages.Save(ctx, msg)
				if err != nil {
					return nil, fmt.Errorf("failed to create message: %w", err)
				}

				result.Created++
			default:
				return nil, fmt.Errorf("failed to look up existing message: %w", err)
			}
		}
	}

	return result, nil
}

// resolveAudience filters the tenant's contacts through the campaign's
// audience conditions and applies the optional result cap.
func (s *Service) resolveAudience(ctx context.Context, campaign *models.Campaign) ([]*models.Contact, error) {
	contacts, err := s.contacts.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	matched := make([]*models.Contact, 0)

	for _, contact := range contacts {
		if !campaign.Audience.Matches(contact) {
			continue
		}

		matched = append(matched, contact)

		if campaign.Audience.Limit > 0 && len(matched) >= campaign.Audience.Limit {
			break
		}
	}

	return matched, nil
}

// renderStep produces the final content and media for one contact. Template
// references are resolved through the template store; direct content renders
// as-is. Unresolved placeholders are stripped, never left literal.
func (s *Service) renderStep(ctx context.Context, step models.CampaignStep, contact *models.Contact) (string, string, error) {
	content := step.Content
	mediaURL := step.MediaURL

	if step.TemplateID != nil {
		tmpl, err := s.templates.FindTemplate(ctx, *step.TemplateID)
		if err != nil {
			return "", "", fmt.Errorf("template %q: %w", *step.TemplateID, err)
		}

		content = tmpl.Content

		if tmpl.MediaURL != "" {
			mediaURL = tmpl.MediaURL
		}
	}

	data := map[string]any{
		"contact": map[string]any{
			"id":     contact.ID,
			"name":   contact.Name,
			"email":  contact.Email,
			"phone":  contact.Phone,
			"status": contact.Status,
		},
	}

	for name, value := range contact.Fields {
		if _, exists := data["contact"].(map[string]any)[name]; !exists {
			data["contact"].(map[string]any)[name] = value
		}
	}

	return template.Render(content, data), mediaURL, nil
}
