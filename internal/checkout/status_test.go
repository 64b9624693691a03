package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectFor_ValidPairs(t *testing.T) {
	cases := []struct {
		from, to Status
		want     StockEffect
	}{
		{StatusPending, StatusProcessing, EffectReserve},
		{StatusProcessing, StatusDelivered, EffectConfirmDeduction},
		{StatusProcessing, StatusPending, EffectRelease},
		{StatusDelivered, StatusProcessing, EffectRestoreAndReserve},
	}
	for _, c := range cases {
		eff, err := EffectFor(c.from, c.to)
		require.NoError(t, err, "%s -> %s", c.from, c.to)
		assert.Equal(t, c.want, eff, "%s -> %s", c.from, c.to)
	}
}

func TestEffectFor_SameStatusRejected(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusProcessing, StatusDelivered} {
		_, err := EffectFor(s, s)
		assert.ErrorIs(t, err, ErrSameStatus)
	}
}

func TestEffectFor_UnlistedPairsInvalid(t *testing.T) {
	cases := []struct{ from, to Status }{
		{StatusPending, StatusDelivered},
		{StatusDelivered, StatusPending},
	}
	for _, c := range cases {
		_, err := EffectFor(c.from, c.to)
		assert.ErrorIs(t, err, ErrInvalidTransition, "%s -> %s", c.from, c.to)
	}
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus("PROCESSING")
	require.True(t, ok)
	assert.Equal(t, StatusProcessing, st)

	_, ok = ParseStatus("SHIPPED")
	assert.False(t, ok)

	_, ok = ParseStatus("pending")
	assert.False(t, ok)
}
