// Package product provides the Product collaborator read by allocation and transfers.
package product

import (
	"context"
	"strings"
	"time"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/entity"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
)

// Product is a stockable item. Lots carry their own unit cost;
// UnitCost here is the catalog reference value.
type Product struct {
	entity.BaseEntity

	Code          string      `db:"code" json:"code"`
	Name          string      `db:"name" json:"name"`
	UnitOfMeasure string      `db:"unit_of_measure" json:"unitOfMeasure"`
	UnitCost      types.Money `db:"unit_cost" json:"unitCost"`
	Price         types.Money `db:"price" json:"price"`
	Active        bool        `db:"active" json:"active"`
}

// NewProduct creates an active product.
func NewProduct(code, name, unit string, now time.Time) *Product {
	return &Product{
		BaseEntity:    entity.NewBaseEntity(now),
		Code:          code,
		Name:          name,
		UnitOfMeasure: unit,
		Active:        true,
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(_ context.Context) error {
	if strings.TrimSpace(p.Code) == "" {
		return apperror.NewValidation("code is required").WithDetail("field", "code")
	}
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if p.UnitCost.IsNegative() || p.Price.IsNegative() {
		return apperror.NewValidation("cost and price cannot be negative")
	}
	return nil
}

// Repository defines Product persistence.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetByIDs returns the found products keyed by id; missing ids are absent.
	GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*Product, error)

	List(ctx context.Context, activeOnly bool) ([]*Product, error)
}

// RequireActive loads the product and fails unless it exists and is active.
func RequireActive(ctx context.Context, repo Repository, productID id.ID) (*Product, error) {
	p, err := repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, apperror.NewValidation("product is inactive").
			WithDetail("product_id", productID.String())
	}
	return p, nil
}

var _ entity.Validatable = (*Product)(nil)
