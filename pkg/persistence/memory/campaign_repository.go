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

// CampaignRepository stores campaigns in memory.
type CampaignRepository struct {
	mu        sync.RWMutex
	campaigns map[string]*models.Campaign
}

func NewCampaignRepository() *CampaignRepository {
	return &CampaignRepository{campaigns: make(map[string]*models.Campaign)}
}

func (r *CampaignRepository) All(_ context.Context) ([]*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*models.Campaign, 0, len(r.campaigns))

	for _, campaign := range r.campaigns {
		result = append(result, cloneCampaign(campaign))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}

func (r *CampaignRepository) GetByID(_ context.Context, id string) (*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	campaign, ok := r.campaigns[id]
	if !ok {
		return nil, persistence.NewCampaignError("GetByID", id, persistence.ErrCampaignNotFound)
	}

	return cloneCampaign(campaign), nil
}

func (r *CampaignRepository) Save(_ context.Context, campaign *models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	if campaign.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return persistence.NewCampaignError("Save", "", err)
		}

		campaign.ID = id.String()
	}

	if campaign.CreatedAt.IsZero() {
		campaign.CreatedAt = now
	}

	campaign.UpdatedAt = now

	r.campaigns[campaign.ID] = cloneCampaign(campaign)

	return nil
}

func (r *CampaignRepository) ListDueScheduled(_ context.Context, now time.Time) ([]*models.Campaign, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*models.Campaign

	for _, campaign := range r.campaigns {
		if campaign.Status != models.CampaignStatusScheduled {
			continue
		}

		if campaign.ScheduledAt == nil || campaign.ScheduledAt.After(now) {
			continue
		}

		result = append(result, cloneCampaign(campaign))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result, nil
}
