package model

import (
	"time"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
)

type Customer struct {
	ID         int        `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	Email      string     `db:"email" json:"email"`
	Phone      string     `db:"phone" json:"phone,omitempty"`
	TotalSpend float64    `db:"total_spend" json:"total_spend"`
	VisitCount int        `db:"visit_count" json:"visit_count"`
	LastVisit  *time.Time `db:"last_visit" json:"last_visit,omitempty"`
}

// Validate checks the fields a caller controls on create. The dispatch
// pipeline never mutates customers; spend and visit stats change only
// through recorded orders.
func (c *Customer) Validate() error {
	if c.Name == "" {
		return appErrors.NewValidation("customer name is required")
	}
	if c.Email == "" {
		return appErrors.NewValidation("customer email is required")
	}
	if c.TotalSpend < 0 {
		return appErrors.NewValidation("total_spend must be >= 0")
	}
	if c.VisitCount < 0 {
		return appErrors.NewValidation("visit_count must be >= 0")
	}
	return nil
}

// AudienceMember is the slice of a customer the task encoder needs.
type AudienceMember struct {
	ID    int    `db:"id" json:"id"`
	Name  string `db:"name" json:"name"`
	Email string `db:"email" json:"email"`
}
