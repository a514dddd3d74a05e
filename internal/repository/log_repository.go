package repository

import (
	"context"
	"database/sql"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
	"github.com/apexcrm/campaign-manager/internal/model"
)

type LogRepositoryInterface interface {
	RecordOutcome(ctx context.Context, entry *model.CommunicationsLog) (bool, error)
	ListByCampaign(ctx context.Context, campaignID int) ([]model.CommunicationsLog, error)
	UpdateDeliveryStatus(ctx context.Context, campaignID, logID int, status string) (*model.CommunicationsLog, error)
}

type LogRepository struct {
	DB *sql.DB
}

// RecordOutcome writes the log row for one consumed task. The unique key on
// (campaign_id, customer_id, message_hash) makes the insert idempotent under
// queue redelivery while still recording a fresh row when the campaign is
// sent again with a different template: a duplicate invocation inserts
// nothing and reports false. Campaign counters move in the same transaction,
// and only when the insert actually landed, so redelivery never
// double-counts.
func (r *LogRepository) RecordOutcome(ctx context.Context, entry *model.CommunicationsLog) (bool, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	entry.MessageHash = model.HashMessage(entry.PersonalizedMessage)
	insert := `
        INSERT INTO communications_log
            (campaign_id, customer_id, status, sent_at, personalized_message, message_hash, delivery_status)
        VALUES ($1, $2, $3, NOW(), $4, $5, $6)
        ON CONFLICT (campaign_id, customer_id, message_hash) DO NOTHING
        RETURNING id, sent_at
    `
	err = tx.QueryRowContext(ctx, insert,
		entry.CampaignID, entry.CustomerID, entry.Status,
		entry.PersonalizedMessage, entry.MessageHash, entry.DeliveryStatus,
	).Scan(&entry.ID, &entry.SentAt)
	if err == sql.ErrNoRows {
		// Already recorded by an earlier delivery of the same task.
		return false, tx.Commit()
	}
	if err != nil {
		return false, err
	}

	counter := "messages_failed"
	if entry.Status == model.StatusSent {
		counter = "messages_sent"
	}
	update := `UPDATE campaigns SET ` + counter + ` = ` + counter + ` + 1 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, entry.CampaignID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	return true, nil
}

// ListByCampaign returns the campaign's log rows joined with the minimal
// customer fields callers need to read them.
func (r *LogRepository) ListByCampaign(ctx context.Context, campaignID int) ([]model.CommunicationsLog, error) {
	query := `
        SELECT l.id, l.campaign_id, l.customer_id, l.status, l.sent_at,
               l.personalized_message, l.delivery_status,
               COALESCE(c.name, ''), COALESCE(c.email, '')
        FROM communications_log l
        LEFT JOIN customers c ON c.id = l.customer_id
        WHERE l.campaign_id = $1
        ORDER BY l.id
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.CommunicationsLog{}
	for rows.Next() {
		var l model.CommunicationsLog
		if err := rows.Scan(
			&l.ID, &l.CampaignID, &l.CustomerID, &l.Status, &l.SentAt,
			&l.PersonalizedMessage, &l.DeliveryStatus,
			&l.CustomerName, &l.CustomerEmail,
		); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// UpdateDeliveryStatus corrects the post-send confirmation state of one log
// row. The send status column is immutable and never touched here.
func (r *LogRepository) UpdateDeliveryStatus(ctx context.Context, campaignID, logID int, status string) (*model.CommunicationsLog, error) {
	if err := model.ValidateDeliveryStatus(status); err != nil {
		return nil, err
	}

	query := `
        UPDATE communications_log
        SET delivery_status = $1
        WHERE id = $2 AND campaign_id = $3
        RETURNING id, campaign_id, customer_id, status, sent_at, personalized_message, delivery_status
    `
	var l model.CommunicationsLog
	err := r.DB.QueryRowContext(ctx, query, status, logID, campaignID).Scan(
		&l.ID, &l.CampaignID, &l.CustomerID, &l.Status, &l.SentAt,
		&l.PersonalizedMessage, &l.DeliveryStatus,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewLogNotFound(logID)
		}
		return nil, err
	}
	return &l, nil
}

var _ LogRepositoryInterface = (*LogRepository)(nil)
