package model

import (
	"time"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
)

type Order struct {
	ID          int       `db:"id" json:"id"`
	CustomerID  int       `db:"customer_id" json:"customer_id"`
	OrderAmount float64   `db:"order_amount" json:"order_amount"`
	OrderDate   time.Time `db:"order_date" json:"order_date"`
}

func (o *Order) Validate() error {
	if o.CustomerID <= 0 {
		return appErrors.NewValidation("customer_id is required")
	}
	if o.OrderAmount <= 0 {
		return appErrors.NewValidation("order_amount must be > 0")
	}
	return nil
}
