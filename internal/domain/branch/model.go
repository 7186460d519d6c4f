// Package branch provides the Branch collaborator and the explicit
// user → managed-branch index used to resolve the source of a transfer.
package branch

import (
	"context"
	"strings"
	"time"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/entity"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
)

// Branch is a store location that holds lots and sends or receives transfers.
type Branch struct {
	entity.BaseEntity

	Code    string `db:"code" json:"code"`
	Name    string `db:"name" json:"name"`
	Address string `db:"address" json:"address,omitempty"`
	City    string `db:"city" json:"city,omitempty"`
	Phone   string `db:"phone" json:"phone,omitempty"`
	Email   string `db:"email" json:"email,omitempty"`

	// ManagerID mirrors the manager index; the index is authoritative.
	ManagerID *id.ID `db:"manager_id" json:"managerId,omitempty"`

	// SpendLimit caps in-flight transfer cost. Nil means the configured default.
	SpendLimit *types.Money `db:"spend_limit" json:"spendLimit,omitempty"`

	Active bool `db:"active" json:"active"`
}

// NewBranch creates an active branch.
func NewBranch(code, name string, now time.Time) *Branch {
	return &Branch{
		BaseEntity: entity.NewBaseEntity(now),
		Code:       code,
		Name:       name,
		Active:     true,
	}
}

// Validate implements entity.Validatable.
func (b *Branch) Validate(_ context.Context) error {
	if strings.TrimSpace(b.Code) == "" {
		return apperror.NewValidation("code is required").WithDetail("field", "code")
	}
	if strings.TrimSpace(b.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if b.SpendLimit != nil && b.SpendLimit.IsNegative() {
		return apperror.NewValidation("spend limit cannot be negative").WithDetail("field", "spendLimit")
	}
	return nil
}

// EffectiveLimit returns the branch's own limit or fallback.
func (b *Branch) EffectiveLimit(fallback types.Money) types.Money {
	if b.SpendLimit != nil {
		return *b.SpendLimit
	}
	return fallback
}

// ListFilter narrows branch listings.
type ListFilter struct {
	ActiveOnly bool
}

var _ entity.Validatable = (*Branch)(nil)
