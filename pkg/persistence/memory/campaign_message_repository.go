package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/onsell/automation/pkg/models"
	"github.com/onsell/automation/pkg/persistence"
)

// CampaignMessageRepository stores campaign messages in memory.
type CampaignMessageRepository struct {
	mu       sync.RWMutex
	messages map[string]*models.CampaignMessage
	order    []string
}

func NewCampaignMessageRepository() *CampaignMessageRepository {
	return &CampaignMessageRepository{messages: make(map[string]*models.CampaignMessage)}
}

func (r *CampaignMessageRepository) GetByID(_ context.Context, id string) (*models.CampaignMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msg, ok := r.messages[id]
	if !ok {
		return nil, persistence.ErrCampaignMessageNotFound
	}

	return cloneCampaignMessage(msg), nil
}

func (r *CampaignMessageRepository) Save(_ context.Context, msg *models.CampaignMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	if msg.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}

		msg.ID = id.String()
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}

	msg.UpdatedAt = now

	if _, ok := r.messages[msg.ID]; !ok {
		r.order = append(r.order, msg.ID)
	}

	r.messages[msg.ID] = cloneCampaignMessage(msg)

	return nil
}

func (r *CampaignMessageRepository) FindScheduled(_ context.Context, campaignID, contactID, channel string) (*models.CampaignMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		msg := r.messages[id]
		if msg.CampaignID == campaignID && msg.ContactID == contactID &&
			msg.Channel == channel && msg.Status == models.MessageStatusScheduled {
			return cloneCampaignMessage(msg), nil
		}
	}

	return nil, persistence.ErrCampaignMessageNotFound
}

func (r *CampaignMessageRepository) ListDue(_ context.Context, campaignID string, now time.Time, limit int) ([]*models.CampaignMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.CampaignMessage

	for _, id := range r.order {
		msg := r.messages[id]
		if msg.Status != models.MessageStatusScheduled || msg.ScheduledAt.After(now) {
			continue
		}

		if campaignID != "" && msg.CampaignID != campaignID {
			continue
		}

		result = append(result, cloneCampaignMessage(msg))
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ScheduledAt.Before(result[j].ScheduledAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}

	return result, nil
}

func (r *CampaignMessageRepository) CountScheduled(_ context.Context, campaignID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0

	for _, msg := range r.messages {
		if msg.CampaignID == campaignID && msg.Status == models.MessageStatusScheduled {
			count++
		}
	}

	return count, nil
}

func (r *CampaignMessageRepository) FailAllScheduled(_ context.Context, campaignID, reason string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	changed := 0

	for _, msg := range r.messages {
		if msg.CampaignID == campaignID && msg.Status == models.MessageStatusScheduled {
			msg.Status = models.MessageStatusFailed
			msg.ErrorMessage = reason
			msg.UpdatedAt = now
			changed++
		}
	}

	return changed, nil
}

func (r *CampaignMessageRepository) ListByCampaign(_ context.Context, campaignID string, offset, limit int) ([]*models.CampaignMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*models.CampaignMessage

	for _, id := range r.order {
		msg := r.messages[id]
		if msg.CampaignID == campaignID {
			matched = append(matched, msg)
		}
	}

	if offset >= len(matched) {
		return nil, nil
	}

	end := len(matched)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	result := make([]*models.CampaignMessage, 0, end-offset)
	for _, msg := range matched[offset:end] {
		result = append(result, cloneCampaignMessage(msg))
	}

	return result, nil
}

func (r *CampaignMessageRepository) Stats(_ context.Context, campaignID string) (*models.CampaignStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := &models.CampaignStats{}

	for _, msg := range r.messages {
		if msg.CampaignID != campaignID {
			continue
		}

		stats.Total++

		switch msg.Status {
		case models.MessageStatusScheduled:
			stats.Scheduled++
		case models.MessageStatusSent:
			stats.Sent++
		case models.MessageStatusDelivered:
			stats.Delivered++
		case models.MessageStatusRead:
			stats.Read++
		case models.MessageStatusFailed:
			stats.Failed++
		}
	}

	return stats, nil
}
