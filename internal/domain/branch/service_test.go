package branch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
	"branchstock/internal/domain/branch"
	"branchstock/internal/infrastructure/storage/memory"
)

func TestService_AssignManagerKeepsIndexInStep(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	svc := branch.NewService(store.Branches(), store.Managers(), store)

	a := branch.NewBranch("A", "Branch A", time.Now())
	b := branch.NewBranch("B", "Branch B", time.Now())
	require.NoError(t, svc.Create(ctx, a))
	require.NoError(t, svc.Create(ctx, b))

	u1, u2 := id.New(), id.New()
	require.NoError(t, svc.AssignManager(ctx, a.ID, u1))

	got, err := svc.BranchOf(ctx, u1)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got)

	stored, err := svc.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ManagerID)
	assert.Equal(t, u1, *stored.ManagerID)
	assert.Equal(t, 2, stored.Version)

	// One user, one branch.
	err = svc.AssignManager(ctx, b.ID, u1)
	assert.True(t, apperror.Is(err, apperror.CodeConflict))

	// Replacing a branch manager drops the previous mapping.
	require.NoError(t, svc.AssignManager(ctx, a.ID, u2))
	_, err = svc.BranchOf(ctx, u1)
	assert.True(t, apperror.Is(err, apperror.CodeNotABranchManager))
}

func TestService_CreateValidates(t *testing.T) {
	store := memory.New()
	svc := branch.NewService(store.Branches(), store.Managers(), store)

	negative := types.MustMoney("-1")
	b := branch.NewBranch("A", "Branch A", time.Now())
	b.SpendLimit = &negative
	assert.True(t, apperror.Is(svc.Create(context.Background(), b), apperror.CodeValidation))

	assert.Error(t, svc.Create(context.Background(), branch.NewBranch("", "x", time.Now())))
}

func TestService_CreateWithManagerIndexesIt(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	svc := branch.NewService(store.Branches(), store.Managers(), store)

	manager := id.New()
	b := branch.NewBranch("A", "Branch A", time.Now())
	b.ManagerID = &manager
	require.NoError(t, svc.Create(ctx, b))

	got, err := svc.BranchOf(ctx, manager)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got)
}

func TestBranch_EffectiveLimit(t *testing.T) {
	b := branch.NewBranch("A", "A", time.Now())
	assert.True(t, b.EffectiveLimit(types.MustMoney("5000")).Equal(types.MustMoney("5000")))

	own := types.MustMoney("800")
	b.SpendLimit = &own
	assert.True(t, b.EffectiveLimit(types.MustMoney("5000")).Equal(own))
}
