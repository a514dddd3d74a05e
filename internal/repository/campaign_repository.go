package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
	"github.com/apexcrm/campaign-manager/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign, audienceIDs []int) error
	GetByID(ctx context.Context, id int) (*model.Campaign, error)
	List(ctx context.Context) ([]model.Campaign, error)
	AppendAudience(ctx context.Context, campaignID int, customerIDs []int) (*model.Campaign, error)
	GetAudienceDetail(ctx context.Context, campaignID int) ([]model.AudienceMember, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

// Create inserts a campaign together with its resolved audience. Membership
// lives in the campaign_audience join table; its primary key makes the
// audience a set, so duplicate IDs collapse and audience_size stays equal
// to the member count.
func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign, audienceIDs []int) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO campaigns (name, audience_size, messages_sent, messages_failed, created_at)
        VALUES ($1, 0, 0, 0, NOW())
        RETURNING id, created_at
    `
	if err := tx.QueryRowContext(ctx, query, c.Name).Scan(&c.ID, &c.CreatedAt); err != nil {
		return err
	}

	if len(audienceIDs) > 0 {
		insert := `
            INSERT INTO campaign_audience (campaign_id, customer_id)
            SELECT $1, unnest($2::int[])
            ON CONFLICT DO NOTHING
        `
		if _, err := tx.ExecContext(ctx, insert, c.ID, pq.Array(audienceIDs)); err != nil {
			return err
		}
	}

	if err := recountAudience(ctx, tx, c.ID, &c.AudienceSize); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	query := `
        SELECT id, name, audience_size, messages_sent, messages_failed, created_at
        FROM campaigns WHERE id = $1
    `
	var c model.Campaign
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.AudienceSize, &c.MessagesSent, &c.MessagesFailed, &c.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) List(ctx context.Context) ([]model.Campaign, error) {
	query := `
        SELECT id, name, audience_size, messages_sent, messages_failed, created_at
        FROM campaigns
        ORDER BY created_at DESC, id DESC
    `
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	campaigns := []model.Campaign{}
	for rows.Next() {
		var c model.Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.AudienceSize, &c.MessagesSent, &c.MessagesFailed, &c.CreatedAt); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// AppendAudience unions new member IDs into the campaign audience and
// recomputes audience_size in the same transaction. Re-adding present IDs
// inserts nothing, so the size never double-counts; the campaign row is
// locked so concurrent appends serialize on the recount.
func (r *CampaignRepository) AppendAudience(ctx context.Context, campaignID int, customerIDs []int) (*model.Campaign, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var c model.Campaign
	lock := `
        SELECT id, name, messages_sent, messages_failed, created_at
        FROM campaigns WHERE id = $1
        FOR UPDATE
    `
	err = tx.QueryRowContext(ctx, lock, campaignID).Scan(
		&c.ID, &c.Name, &c.MessagesSent, &c.MessagesFailed, &c.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(campaignID)
		}
		return nil, err
	}

	if len(customerIDs) > 0 {
		insert := `
            INSERT INTO campaign_audience (campaign_id, customer_id)
            SELECT $1, unnest($2::int[])
            ON CONFLICT DO NOTHING
        `
		if _, err := tx.ExecContext(ctx, insert, campaignID, pq.Array(customerIDs)); err != nil {
			return nil, err
		}
	}

	if err := recountAudience(ctx, tx, campaignID, &c.AudienceSize); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &c, nil
}

// GetAudienceDetail returns the audience members with the fields the task
// encoder substitutes into templates.
func (r *CampaignRepository) GetAudienceDetail(ctx context.Context, campaignID int) ([]model.AudienceMember, error) {
	query := `
        SELECT c.id, c.name, c.email
        FROM campaign_audience ca
        JOIN customers c ON c.id = ca.customer_id
        WHERE ca.campaign_id = $1
        ORDER BY c.id
    `
	rows, err := r.DB.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []model.AudienceMember{}
	for rows.Next() {
		var m model.AudienceMember
		if err := rows.Scan(&m.ID, &m.Name, &m.Email); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func recountAudience(ctx context.Context, tx *sql.Tx, campaignID int, size *int) error {
	count := `SELECT COUNT(*) FROM campaign_audience WHERE campaign_id = $1`
	if err := tx.QueryRowContext(ctx, count, campaignID).Scan(size); err != nil {
		return err
	}
	update := `UPDATE campaigns SET audience_size = $1 WHERE id = $2`
	_, err := tx.ExecContext(ctx, update, *size, campaignID)
	return err
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
