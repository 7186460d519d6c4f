package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"branchstock/internal/core/id"
	"branchstock/internal/domain/product"
	"branchstock/internal/infrastructure/storage/postgres"
)

const productsTable = "products"

// ProductRepo implements product.Repository.
type ProductRepo struct {
	*BaseCatalogRepo[*product.Product]
}

var _ product.Repository = (*ProductRepo)(nil)

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txm,
			productsTable,
			"product",
			postgres.ExtractDBColumns[product.Product](),
			func() *product.Product { return &product.Product{} },
		),
	}
}

// GetByIDs loads several products in one query. Unknown ids are absent from the result.
func (r *ProductRepo) GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*product.Product, error) {
	out := make(map[id.ID]*product.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	items, err := r.selectAll(ctx, r.baseSelect().Where(squirrel.Eq{"id": ids}))
	if err != nil {
		return nil, err
	}
	for _, p := range items {
		out[p.ID] = p
	}
	return out, nil
}

// List returns products ordered by name.
func (r *ProductRepo) List(ctx context.Context, activeOnly bool) ([]*product.Product, error) {
	q := r.baseSelect()
	if activeOnly {
		q = q.Where(squirrel.Eq{"active": true})
	}
	return r.selectAll(ctx, q.OrderBy("name", "id"))
}
