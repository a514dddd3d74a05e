package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
	"github.com/apexcrm/campaign-manager/internal/model"
)

const pqForeignKeyViolation = "23503"

type OrderRepositoryInterface interface {
	Create(ctx context.Context, o *model.Order) error
	ListByCustomer(ctx context.Context, customerID int) ([]model.Order, error)
}

type OrderRepository struct {
	DB *sql.DB
}

// Create records an order and folds it into the customer's spend and visit
// stats in one transaction. Orders are the only path that mutates those
// fields; the dispatch pipeline reads them and never writes.
func (r *OrderRepository) Create(ctx context.Context, o *model.Order) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insert := `
        INSERT INTO orders (customer_id, order_amount, order_date)
        VALUES ($1, $2, NOW())
        RETURNING id, order_date
    `
	if err := tx.QueryRowContext(ctx, insert, o.CustomerID, o.OrderAmount).Scan(&o.ID, &o.OrderDate); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation {
			return appErrors.NewCustomerNotFound(o.CustomerID)
		}
		return err
	}

	update := `
        UPDATE customers
        SET total_spend = total_spend + $1,
            visit_count = visit_count + 1,
            last_visit = $2
        WHERE id = $3
    `
	res, err := tx.ExecContext(ctx, update, o.OrderAmount, o.OrderDate, o.CustomerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewCustomerNotFound(o.CustomerID)
	}
	return tx.Commit()
}

func (r *OrderRepository) ListByCustomer(ctx context.Context, customerID int) ([]model.Order, error) {
	query := `
        SELECT id, customer_id, order_amount, order_date
        FROM orders
        WHERE customer_id = $1
        ORDER BY order_date DESC, id DESC
    `
	rows, err := r.DB.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []model.Order{}
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.OrderAmount, &o.OrderDate); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

var _ OrderRepositoryInterface = (*OrderRepository)(nil)
