package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/oneshop/marketplace-orders/internal/catalog"
)

func TestApplyStockEffect_ReserveGuardsAvailability(t *testing.T) {
	lg := newFakeLedger()
	lg.stock["p1"] = 10

	effects, err := applyStockEffect(context.Background(), lg, zap.NewNop(), EffectReserve,
		[]ItemQty{{ProductRef: "p1", Qty: 7}})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, "reserved", effects[0].Action)
	assert.Equal(t, 7, lg.reserved["p1"])
	assert.Equal(t, 10, lg.stock["p1"])

	// Only 3 available now: a second reservation of 5 must fail and leave
	// the ledger untouched.
	_, err = applyStockEffect(context.Background(), lg, zap.NewNop(), EffectReserve,
		[]ItemQty{{ProductRef: "p1", Qty: 5}})
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)
	assert.Equal(t, 7, lg.reserved["p1"])
	assert.Equal(t, 10, lg.stock["p1"])
}

func TestApplyStockEffect_ConfirmDeductionSettlesBothColumns(t *testing.T) {
	lg := newFakeLedger()
	lg.stock["p1"] = 10
	lg.reserved["p1"] = 7

	effects, err := applyStockEffect(context.Background(), lg, zap.NewNop(), EffectConfirmDeduction,
		[]ItemQty{{ProductRef: "p1", Qty: 7}})
	require.NoError(t, err)
	assert.Equal(t, "deducted", effects[0].Action)
	assert.Equal(t, 3, lg.stock["p1"])
	assert.Equal(t, 0, lg.reserved["p1"])
}

func TestApplyStockEffect_ReleaseFloorsAtZero(t *testing.T) {
	lg := newFakeLedger()
	lg.stock["p1"] = 10
	lg.reserved["p1"] = 2

	// Releasing more than reserved floors at zero rather than going
	// negative.
	effects, err := applyStockEffect(context.Background(), lg, zap.NewNop(), EffectRelease,
		[]ItemQty{{ProductRef: "p1", Qty: 5}})
	require.NoError(t, err)
	assert.Equal(t, "released", effects[0].Action)
	assert.Equal(t, 0, lg.reserved["p1"])
	assert.Equal(t, 10, lg.stock["p1"])
}

func TestApplyStockEffect_ReleaseFailureIsNonFatal(t *testing.T) {
	lg := newFakeLedger()
	lg.stock["p1"] = 10
	lg.reserved["p1"] = 4
	lg.releaseErr = errors.New("row lock timeout")

	effects, err := applyStockEffect(context.Background(), lg, zap.NewNop(), EffectRelease,
		[]ItemQty{{ProductRef: "p1", Qty: 4}})
	require.NoError(t, err)
	require.Len(t, effects, 1)
	assert.Equal(t, "release_failed", effects[0].Action)
	// Reservation stays inflated; the transition itself still goes through.
	assert.Equal(t, 4, lg.reserved["p1"])
}

func TestApplyStockEffect_RestoreAndReserve(t *testing.T) {
	// A delivered order had its stock deducted; re-opening it must put the
	// units back and earmark them again.
	lg := newFakeLedger()
	lg.stock["p1"] = 3

	effects, err := applyStockEffect(context.Background(), lg, zap.NewNop(), EffectRestoreAndReserve,
		[]ItemQty{{ProductRef: "p1", Qty: 7}})
	require.NoError(t, err)
	assert.Equal(t, "restored_and_reserved", effects[0].Action)
	assert.Equal(t, 10, lg.stock["p1"])
	assert.Equal(t, 7, lg.reserved["p1"])
}

func TestApplyStockEffect_FailingLineAbortsBatch(t *testing.T) {
	lg := newFakeLedger()
	lg.stock["p1"] = 10
	lg.stock["p2"] = 1

	_, err := applyStockEffect(context.Background(), lg, zap.NewNop(), EffectReserve, []ItemQty{
		{ProductRef: "p1", Qty: 2},
		{ProductRef: "p2", Qty: 3},
	})
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "p2")
}

func TestPlanCascade_UsesEachSubsOwnStatus(t *testing.T) {
	subs := []Order{
		{ID: "s1", Status: StatusPending},
		{ID: "s2", Status: StatusDelivered},
		{ID: "s3", Status: StatusProcessing},
	}

	steps, err := planCascade(subs, StatusProcessing)
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, "s1", steps[0].Sub.ID)
	assert.Equal(t, EffectReserve, steps[0].Effect)
	assert.Equal(t, "s2", steps[1].Sub.ID)
	assert.Equal(t, EffectRestoreAndReserve, steps[1].Effect)
}

func TestPlanCascade_InvalidSubAbortsAll(t *testing.T) {
	subs := []Order{
		{ID: "s1", Status: StatusProcessing},
		{ID: "s2", Status: StatusPending},
	}

	_, err := planCascade(subs, StatusDelivered)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "s2")
}

func TestCascadeConservesStockForMixedSubs(t *testing.T) {
	// One sub already delivered (its stock deducted), a sibling still
	// pending. Cascading the master to PROCESSING must put the delivered
	// sub's units back and re-reserve them, not double-reserve.
	lg := newFakeLedger()
	lg.stock["p1"] = 8 // pending sub's product, untouched so far
	lg.stock["p2"] = 6 // delivered sub's product, 4 units already deducted
	lines := map[string][]ItemQty{
		"s1": {{ProductRef: "p1", Qty: 3}},
		"s2": {{ProductRef: "p2", Qty: 4}},
	}
	subs := []Order{
		{ID: "s1", Status: StatusPending},
		{ID: "s2", Status: StatusDelivered},
	}

	steps, err := planCascade(subs, StatusProcessing)
	require.NoError(t, err)
	for _, st := range steps {
		_, err := applyStockEffect(context.Background(), lg, zap.NewNop(), st.Effect, lines[st.Sub.ID])
		require.NoError(t, err)
	}

	assert.Equal(t, 8, lg.stock["p1"])
	assert.Equal(t, 3, lg.reserved["p1"])
	assert.Equal(t, 10, lg.stock["p2"])
	assert.Equal(t, 4, lg.reserved["p2"])
}

func TestStatusRoundtripRestoresStockExactly(t *testing.T) {
	// Pending -> Processing -> Delivered -> Processing -> Pending walks
	// every edge of the transition table; at the end the ledger must be
	// back where it started.
	lg := newFakeLedger()
	lg.stock["p1"] = 10
	lg.stock["p2"] = 4
	lines := []ItemQty{{ProductRef: "p1", Qty: 3}, {ProductRef: "p2", Qty: 2}}

	steps := []struct{ from, to Status }{
		{StatusPending, StatusProcessing},
		{StatusProcessing, StatusDelivered},
		{StatusDelivered, StatusProcessing},
		{StatusProcessing, StatusPending},
	}
	for _, st := range steps {
		eff, err := EffectFor(st.from, st.to)
		require.NoError(t, err)
		_, err = applyStockEffect(context.Background(), lg, zap.NewNop(), eff, lines)
		require.NoError(t, err, "%s -> %s", st.from, st.to)
	}

	assert.Equal(t, 10, lg.stock["p1"])
	assert.Equal(t, 0, lg.reserved["p1"])
	assert.Equal(t, 4, lg.stock["p2"])
	assert.Equal(t, 0, lg.reserved["p2"])
}
