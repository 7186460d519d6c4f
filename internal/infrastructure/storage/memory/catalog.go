package memory

import (
	"context"
	"sort"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/id"
	"branchstock/internal/domain/branch"
	"branchstock/internal/domain/product"
)

// BranchRepo implements branch.Repository.
type BranchRepo struct{ s *Store }

var _ branch.Repository = (*BranchRepo)(nil)

func (r *BranchRepo) Create(ctx context.Context, b *branch.Branch) error {
	return r.s.view(ctx, func(st *state) error {
		if err := r.s.fault("branch.create"); err != nil {
			return err
		}
		if _, ok := st.branches[b.ID]; ok {
			return apperror.NewDuplicate("branch", "id", b.ID.String())
		}
		for _, other := range st.branches {
			if other.Code == b.Code {
				return apperror.NewDuplicate("branch", "code", b.Code)
			}
		}
		st.branches[b.ID] = *b
		return nil
	})
}

func (r *BranchRepo) Update(ctx context.Context, b *branch.Branch) error {
	return r.s.view(ctx, func(st *state) error {
		if _, ok := st.branches[b.ID]; !ok {
			return apperror.NewNotFound("branch", b.ID)
		}
		st.branches[b.ID] = *b
		return nil
	})
}

func (r *BranchRepo) GetByID(ctx context.Context, branchID id.ID) (*branch.Branch, error) {
	var out *branch.Branch
	err := r.s.view(ctx, func(st *state) error {
		b, ok := st.branches[branchID]
		if !ok {
			return apperror.NewNotFound("branch", branchID)
		}
		out = &b
		return nil
	})
	return out, err
}

// GetForUpdate is GetByID; the store lock already serializes transactions.
func (r *BranchRepo) GetForUpdate(ctx context.Context, branchID id.ID) (*branch.Branch, error) {
	return r.GetByID(ctx, branchID)
}

func (r *BranchRepo) List(ctx context.Context, filter branch.ListFilter) ([]*branch.Branch, error) {
	var out []*branch.Branch
	err := r.s.view(ctx, func(st *state) error {
		for _, b := range st.branches {
			if filter.ActiveOnly && !b.Active {
				continue
			}
			b := b
			out = append(out, &b)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, err
}

// ManagerIndex implements branch.ManagerIndex.
type ManagerIndex struct{ s *Store }

var _ branch.ManagerIndex = (*ManagerIndex)(nil)

func (m *ManagerIndex) BranchOf(ctx context.Context, userID id.ID) (id.ID, error) {
	var out id.ID
	err := m.s.view(ctx, func(st *state) error {
		b, ok := st.managers[userID]
		if !ok {
			return apperror.NewNotABranchManager(userID.String())
		}
		out = b
		return nil
	})
	return out, err
}

func (m *ManagerIndex) Assign(ctx context.Context, userID, branchID id.ID) error {
	return m.s.view(ctx, func(st *state) error {
		for u, b := range st.managers {
			if b == branchID && u != userID {
				delete(st.managers, u)
			}
		}
		st.managers[userID] = branchID
		return nil
	})
}

func (m *ManagerIndex) Release(ctx context.Context, branchID id.ID) error {
	return m.s.view(ctx, func(st *state) error {
		for u, b := range st.managers {
			if b == branchID {
				delete(st.managers, u)
			}
		}
		return nil
	})
}

// ProductRepo implements product.Repository.
type ProductRepo struct{ s *Store }

var _ product.Repository = (*ProductRepo)(nil)

func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	return r.s.view(ctx, func(st *state) error {
		for _, other := range st.products {
			if other.Code == p.Code {
				return apperror.NewDuplicate("product", "code", p.Code)
			}
		}
		st.products[p.ID] = *p
		return nil
	})
}

func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	var out *product.Product
	err := r.s.view(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return apperror.NewNotFound("product", productID)
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *ProductRepo) GetByIDs(ctx context.Context, ids []id.ID) (map[id.ID]*product.Product, error) {
	out := make(map[id.ID]*product.Product, len(ids))
	err := r.s.view(ctx, func(st *state) error {
		for _, pid := range ids {
			if p, ok := st.products[pid]; ok {
				out[pid] = &p
			}
		}
		return nil
	})
	return out, err
}

func (r *ProductRepo) List(ctx context.Context, activeOnly bool) ([]*product.Product, error) {
	var out []*product.Product
	err := r.s.view(ctx, func(st *state) error {
		for _, p := range st.products {
			if activeOnly && !p.Active {
				continue
			}
			p := p
			out = append(out, &p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}
