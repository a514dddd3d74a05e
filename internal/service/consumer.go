package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/apexcrm/campaign-manager/internal/metrics"
	"github.com/apexcrm/campaign-manager/internal/model"
	"github.com/apexcrm/campaign-manager/internal/queue"
)

// Consumer drives the processing side of the pipeline: pull a task, attempt
// delivery through the Sender, record the outcome, acknowledge. The queue
// acknowledgment is withheld until the log write succeeds, so a recorder
// failure causes redelivery rather than a lost outcome.
type Consumer struct {
	Queue   queue.Queue
	Sender  *Sender
	LogRepo LogRecorder
	Metrics *metrics.Metrics
	Log     zerolog.Logger
}

// LogRecorder is the slice of the log repository the consumer needs.
type LogRecorder interface {
	RecordOutcome(ctx context.Context, entry *model.CommunicationsLog) (bool, error)
}

// Run blocks consuming tasks until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.Queue.Consume(ctx, c.Handle)
}

// Handle processes one task. Safe to re-run with the same task: the
// recorder keys rows by campaign, recipient, and message content, so a
// duplicate delivery becomes a no-op.
func (c *Consumer) Handle(ctx context.Context, task model.DispatchTask) error {
	outcome := c.Sender.Send(task)

	entry := &model.CommunicationsLog{
		CampaignID:          task.CampaignID,
		CustomerID:          task.AudienceID,
		Status:              outcome.Status,
		PersonalizedMessage: task.PersonalizedMessage,
		DeliveryStatus:      outcome.DeliveryStatus,
	}
	inserted, err := c.LogRepo.RecordOutcome(ctx, entry)
	if err != nil {
		c.Metrics.ConsumerRedeliveriesTotal.Inc()
		return err
	}

	if !inserted {
		c.Metrics.DuplicateOutcomesTotal.Inc()
		c.Log.Debug().
			Str("task_id", task.TaskID).
			Int("campaign_id", task.CampaignID).
			Int("audience_id", task.AudienceID).
			Msg("outcome already recorded, skipping redelivered task")
		return nil
	}

	if outcome.Status == model.StatusSent {
		c.Metrics.MessagesSentTotal.Inc()
	} else {
		c.Metrics.MessagesFailedTotal.Inc()
	}
	c.Log.Info().
		Str("task_id", task.TaskID).
		Int("campaign_id", task.CampaignID).
		Int("audience_id", task.AudienceID).
		Str("status", outcome.Status).
		Msg("task processed")
	return nil
}
