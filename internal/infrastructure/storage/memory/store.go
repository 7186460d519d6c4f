// Package memory provides an in-process implementation of every repository
// and of tx.Manager. A store-wide lock is held for the whole transaction and
// state is restored from a snapshot on error, so transactions are serializable.
// Intended for tests and local tooling.
package memory

import (
	"context"
	"fmt"
	"sync"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/id"
	"branchstock/internal/core/tx"
	"branchstock/internal/domain/audit"
	"branchstock/internal/domain/branch"
	"branchstock/internal/domain/ledger"
	"branchstock/internal/domain/lot"
	"branchstock/internal/domain/product"
	"branchstock/internal/domain/transfer"
)

type state struct {
	branches  map[id.ID]branch.Branch
	managers  map[id.ID]id.ID // user → branch
	products  map[id.ID]product.Product
	lots      map[id.ID]lot.Lot
	transfers map[id.ID]transfer.Transfer
	ledger    []ledger.Entry
	counters  map[string]int64
}

func newState() *state {
	return &state{
		branches:  make(map[id.ID]branch.Branch),
		managers:  make(map[id.ID]id.ID),
		products:  make(map[id.ID]product.Product),
		lots:      make(map[id.ID]lot.Lot),
		transfers: make(map[id.ID]transfer.Transfer),
		counters:  make(map[string]int64),
	}
}

func (s *state) clone() *state {
	c := &state{
		branches:  make(map[id.ID]branch.Branch, len(s.branches)),
		managers:  make(map[id.ID]id.ID, len(s.managers)),
		products:  make(map[id.ID]product.Product, len(s.products)),
		lots:      make(map[id.ID]lot.Lot, len(s.lots)),
		transfers: make(map[id.ID]transfer.Transfer, len(s.transfers)),
		ledger:    append([]ledger.Entry(nil), s.ledger...),
		counters:  make(map[string]int64, len(s.counters)),
	}
	for k, v := range s.branches {
		c.branches[k] = v
	}
	for k, v := range s.managers {
		c.managers[k] = v
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.lots {
		c.lots[k] = v
	}
	for k, v := range s.transfers {
		v.Lines = append([]transfer.Line(nil), v.Lines...)
		c.transfers[k] = v
	}
	for k, v := range s.counters {
		c.counters[k] = v
	}
	return c
}

// Store holds all state. Use the accessor methods to get typed repositories.
type Store struct {
	mu     sync.Mutex
	state  *state
	faults map[string]error

	eventsMu sync.Mutex
	events   []audit.Event
}

// New creates an empty store.
func New() *Store {
	return &Store{
		state:  newState(),
		faults: make(map[string]error),
	}
}

var _ tx.Manager = (*Store)(nil)

type txKey struct{}

func inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(bool)
	return ok
}

// RunInTransaction runs fn holding the store lock. Nested calls join the outer transaction.
func (s *Store) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if inTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return apperror.NewTimeout(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	defer func() {
		if r := recover(); r != nil {
			s.state = snapshot
			panic(r)
		}
		if err != nil {
			s.state = snapshot
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return apperror.NewTimeout(ctxErr)
	}
	return nil
}

// ReadOnly runs fn like RunInTransaction; writes are not prevented.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.RunInTransaction(ctx, fn)
}

// view runs fn against the state, taking the lock unless ctx is already in a transaction.
func (s *Store) view(ctx context.Context, fn func(st *state) error) error {
	if inTx(ctx) {
		return fn(s.state)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// FailOn makes the next call of op return err. Ops are named "<repo>.<method>",
// e.g. "ledger.append" or "transfer.create".
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[op] = err
}

// fault must be called with the state accessible (inside view).
func (s *Store) fault(op string) error {
	if err, ok := s.faults[op]; ok {
		delete(s.faults, op)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Write implements audit.Sink.
func (s *Store) Write(_ context.Context, e audit.Event) error {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// Events returns a copy of the recorded audit events.
func (s *Store) Events() []audit.Event {
	s.eventsMu.Lock()
	defer s.eventsMu.Unlock()
	return append([]audit.Event(nil), s.events...)
}

// Branches returns the branch repository.
func (s *Store) Branches() *BranchRepo { return &BranchRepo{s: s} }

// Managers returns the manager index.
func (s *Store) Managers() *ManagerIndex { return &ManagerIndex{s: s} }

// Products returns the product repository.
func (s *Store) Products() *ProductRepo { return &ProductRepo{s: s} }

// Lots returns the lot repository.
func (s *Store) Lots() *LotRepo { return &LotRepo{s: s} }

// Ledger returns the ledger repository.
func (s *Store) Ledger() *LedgerRepo { return &LedgerRepo{s: s} }

// Transfers returns the transfer repository.
func (s *Store) Transfers() *TransferRepo { return &TransferRepo{s: s} }

var (
	_ audit.Sink = (*Store)(nil)
)
