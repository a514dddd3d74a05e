package service

import (
	"context"

	"github.com/rs/zerolog"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
	"github.com/apexcrm/campaign-manager/internal/metrics"
	"github.com/apexcrm/campaign-manager/internal/model"
	"github.com/apexcrm/campaign-manager/internal/queue"
	"github.com/apexcrm/campaign-manager/internal/repository"
)

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	CustomerRepo repository.CustomerRepositoryInterface
	LogRepo      repository.LogRepositoryInterface
	Queue        queue.Queue
	Metrics      *metrics.Metrics
	Log          zerolog.Logger
}

// DispatchResult reports what a dispatch call accepted. Acceptance means
// the broker holds the batch, not that anything was delivered.
type DispatchResult struct {
	CampaignID  int `json:"campaign_id"`
	TasksQueued int `json:"tasks_queued"`
}

// CreateCampaign resolves the audience filter against the customer set and
// creates the campaign with the resulting member set.
func (s *CampaignService) CreateCampaign(ctx context.Context, name string, filter model.AudienceFilter) (*model.Campaign, error) {
	if name == "" {
		return nil, appErrors.NewValidation("campaign name is required")
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	audienceIDs, err := s.CustomerRepo.FilterIDs(ctx, filter)
	if err != nil {
		return nil, err
	}

	campaign := &model.Campaign{Name: name}
	if err := s.CampaignRepo.Create(ctx, campaign, audienceIDs); err != nil {
		return nil, err
	}

	s.Log.Info().
		Int("campaign_id", campaign.ID).
		Int("audience_size", campaign.AudienceSize).
		Msg("campaign created")
	return campaign, nil
}

func (s *CampaignService) ListCampaigns(ctx context.Context) ([]model.Campaign, error) {
	return s.CampaignRepo.List(ctx)
}

func (s *CampaignService) GetCampaign(ctx context.Context, id int) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(ctx, id)
}

// AppendAudience unions customer IDs into the campaign audience. Adding
// already-present members changes nothing.
func (s *CampaignService) AppendAudience(ctx context.Context, campaignID int, customerIDs []int) (*model.Campaign, error) {
	if len(customerIDs) == 0 {
		return nil, appErrors.NewValidation("customer_ids must not be empty")
	}
	return s.CampaignRepo.AppendAudience(ctx, campaignID, customerIDs)
}

// Dispatch encodes one task per audience member and publishes the batch.
// Synchronous success means accepted for processing; outcomes appear in the
// communications log as the consumer works through the queue.
func (s *CampaignService) Dispatch(ctx context.Context, campaignID int, messageTemplate string) (*DispatchResult, error) {
	if messageTemplate == "" {
		return nil, appErrors.NewValidation("message_template is required")
	}

	if _, err := s.CampaignRepo.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}
	members, err := s.CampaignRepo.GetAudienceDetail(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	tasks := EncodeTasks(campaignID, members, messageTemplate)
	if err := s.Queue.PublishBatch(ctx, tasks); err != nil {
		s.Metrics.PublishFailuresTotal.Inc()
		s.Log.Error().Err(err).Int("campaign_id", campaignID).Msg("dispatch batch rejected")
		return nil, err
	}
	s.Metrics.TasksPublishedTotal.Add(float64(len(tasks)))

	s.Log.Info().
		Int("campaign_id", campaignID).
		Int("tasks", len(tasks)).
		Msg("dispatch batch accepted")
	return &DispatchResult{CampaignID: campaignID, TasksQueued: len(tasks)}, nil
}

// ListLogs returns a campaign's communications log, joined with the minimal
// customer fields. The campaign must exist.
func (s *CampaignService) ListLogs(ctx context.Context, campaignID int) ([]model.CommunicationsLog, error) {
	if _, err := s.CampaignRepo.GetByID(ctx, campaignID); err != nil {
		return nil, err
	}
	return s.LogRepo.ListByCampaign(ctx, campaignID)
}

// UpdateDeliveryStatus corrects the delivery confirmation on one log row.
func (s *CampaignService) UpdateDeliveryStatus(ctx context.Context, campaignID, logID int, status string) (*model.CommunicationsLog, error) {
	return s.LogRepo.UpdateDeliveryStatus(ctx, campaignID, logID, status)
}
