package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"branchstock/internal/core/apperror"
	"branchstock/internal/core/id"
	"branchstock/internal/core/types"
)

func subject(remaining int64) Subject {
	return Subject{
		ProductID: id.New(),
		LotID:     id.New(),
		BranchID:  id.New(),
		Remaining: types.NewQuantity(remaining),
		UnitCost:  types.MustMoney("2.50"),
	}
}

func TestNewOutbound_ComputesRemainingAndCost(t *testing.T) {
	ref := Reference{Kind: RefTransfer, ID: id.New()}
	e := NewOutbound(subject(100), types.NewQuantity(40), ref, id.New(), time.Now())

	assert.Equal(t, MovementOutbound, e.MovementType)
	assert.Equal(t, types.NewQuantity(60), e.NewRemaining)
	assert.True(t, e.TotalCost.Equal(types.MustMoney("100")), "got %s", e.TotalCost)
	assert.Equal(t, types.NewQuantity(-40), e.SignedQuantity())
	require.NoError(t, e.Validate(context.Background()))
}

func TestNewAdjustment_AddsBack(t *testing.T) {
	ref := Reference{Kind: RefCancellation, ID: id.New()}
	e := NewAdjustment(ReasonReversal, subject(0), types.NewQuantity(20), ref, id.New(), time.Now())

	assert.Equal(t, types.NewQuantity(20), e.NewRemaining)
	assert.Equal(t, ReasonReversal, e.Reason)
	assert.NoError(t, e.Validate(context.Background()))
}

func TestEntry_Validate(t *testing.T) {
	ref := Reference{Kind: RefTransfer, ID: id.New()}
	ctx := context.Background()

	t.Run("overdraw", func(t *testing.T) {
		e := NewOutbound(subject(10), types.NewQuantity(11), ref, id.New(), time.Now())
		assert.True(t, apperror.Is(e.Validate(ctx), apperror.CodeValidation))
	})

	t.Run("zero quantity", func(t *testing.T) {
		e := NewOutbound(subject(10), 0, ref, id.New(), time.Now())
		assert.Error(t, e.Validate(ctx))
	})

	t.Run("tampered remaining", func(t *testing.T) {
		e := NewInbound(ReasonReceipt, subject(10), types.NewQuantity(5), ref, id.New(), time.Now())
		e.NewRemaining = types.NewQuantity(16)
		assert.Error(t, e.Validate(ctx))
	})

	t.Run("unknown movement", func(t *testing.T) {
		e := NewInbound(ReasonReceipt, subject(10), types.NewQuantity(5), ref, id.New(), time.Now())
		e.MovementType = "transfer"
		assert.Error(t, e.Validate(ctx))
	})
}

func TestParseMovementType(t *testing.T) {
	for _, s := range []string{"inbound", "outbound", "adjustment"} {
		mt, err := ParseMovementType(s)
		require.NoError(t, err)
		assert.Equal(t, s, string(mt))
	}
	_, err := ParseMovementType("entrada")
	assert.Error(t, err)
}
