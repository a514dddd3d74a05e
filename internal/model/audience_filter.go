package model

import (
	"time"

	appErrors "github.com/apexcrm/campaign-manager/internal/errors"
)

const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// AudienceFilter selects campaign recipients. Each present field contributes
// one atomic condition; absent fields contribute nothing. A filter with zero
// conditions matches all customers, under AND and OR alike.
type AudienceFilter struct {
	MinTotalSpend   *float64   `json:"min_total_spend,omitempty"`
	MaxVisitCount   *int       `json:"max_visit_count,omitempty"`
	LastVisitBefore *time.Time `json:"last_visit_before,omitempty"`
	Logic           string     `json:"logic,omitempty"`
}

func (f *AudienceFilter) Validate() error {
	switch f.Logic {
	case "", LogicAnd, LogicOr:
	default:
		return appErrors.NewValidation("invalid filter logic %q: must be AND or OR", f.Logic)
	}
	if f.MinTotalSpend != nil && *f.MinTotalSpend < 0 {
		return appErrors.NewValidation("min_total_spend must be >= 0")
	}
	if f.MaxVisitCount != nil && *f.MaxVisitCount < 0 {
		return appErrors.NewValidation("max_visit_count must be >= 0")
	}
	return nil
}

// Connector returns the boolean operator joining the conditions.
func (f *AudienceFilter) Connector() string {
	if f.Logic == LogicOr {
		return "OR"
	}
	return "AND"
}

// FilterCondition is one atomic predicate. Expr holds a $%d placeholder for
// the positional argument index the query builder assigns.
type FilterCondition struct {
	Expr string
	Arg  any
}

func (f *AudienceFilter) Conditions() []FilterCondition {
	var conds []FilterCondition
	if f.MinTotalSpend != nil {
		conds = append(conds, FilterCondition{Expr: "total_spend >= $%d", Arg: *f.MinTotalSpend})
	}
	if f.MaxVisitCount != nil {
		conds = append(conds, FilterCondition{Expr: "visit_count <= $%d", Arg: *f.MaxVisitCount})
	}
	if f.LastVisitBefore != nil {
		conds = append(conds, FilterCondition{Expr: "last_visit <= $%d", Arg: *f.LastVisitBefore})
	}
	return conds
}
