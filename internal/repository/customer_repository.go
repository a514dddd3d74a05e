package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
	"github.com/apexcrm/campaign-manager/internal/model"
)

type CustomerRepositoryInterface interface {
	Create(ctx context.Context, c *model.Customer) error
	GetByID(ctx context.Context, id int) (*model.Customer, error)
	ListAll(ctx context.Context) ([]model.Customer, error)
	Delete(ctx context.Context, id int) error
	FilterIDs(ctx context.Context, filter model.AudienceFilter) ([]int, error)
}

type CustomerRepository struct {
	DB *sql.DB
}

const pqUniqueViolation = "23505"

func (r *CustomerRepository) Create(ctx context.Context, c *model.Customer) error {
	query := `
        INSERT INTO customers (name, email, phone, total_spend, visit_count, last_visit)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	err := r.DB.QueryRowContext(ctx, query,
		c.Name, c.Email, c.Phone, c.TotalSpend, c.VisitCount, c.LastVisit,
	).Scan(&c.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return appErrors.NewValidation("customer email %q already exists", c.Email)
		}
		return err
	}
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int) (*model.Customer, error) {
	query := `
        SELECT id, name, email, phone, total_spend, visit_count, last_visit
        FROM customers
        WHERE id = $1
    `
	var c model.Customer
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.TotalSpend, &c.VisitCount, &c.LastVisit,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCustomerNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CustomerRepository) ListAll(ctx context.Context) ([]model.Customer, error) {
	query := `
        SELECT id, name, email, phone, total_spend, visit_count, last_visit
        FROM customers
        ORDER BY id
    `
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []model.Customer{}
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.TotalSpend, &c.VisitCount, &c.LastVisit); err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *CustomerRepository) Delete(ctx context.Context, id int) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewCustomerNotFound(id)
	}
	return nil
}

// FilterIDs resolves an audience filter to customer IDs. The query is a
// single table scan, so the result carries no duplicates.
func (r *CustomerRepository) FilterIDs(ctx context.Context, filter model.AudienceFilter) ([]int, error) {
	query, args := buildFilterQuery(filter)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// buildFilterQuery composes the WHERE clause from the filter's conditions
// with positional args. Zero conditions means no WHERE: match all.
func buildFilterQuery(filter model.AudienceFilter) (string, []interface{}) {
	query := `SELECT id FROM customers`
	conds := filter.Conditions()
	if len(conds) == 0 {
		return query, nil
	}

	exprs := make([]string, 0, len(conds))
	args := make([]interface{}, 0, len(conds))
	for i, cond := range conds {
		exprs = append(exprs, fmt.Sprintf(cond.Expr, i+1))
		args = append(args, cond.Arg)
	}
	query += " WHERE " + strings.Join(exprs, " "+filter.Connector()+" ")
	return query, args
}

var _ CustomerRepositoryInterface = (*CustomerRepository)(nil)
