package checkout

import "errors"

var (
	ErrSameStatus        = errors.New("order already in requested status")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// StockEffect is what a status transition does to each line item's product.
type StockEffect int

const (
	EffectNone StockEffect = iota
	EffectReserve
	EffectConfirmDeduction
	EffectRelease
	EffectRestoreAndReserve // undo a delivery: increase then reserve, one tx
)

type transition struct {
	from, to Status
}

// The transition table is a closed set of pairs on purpose; anything outside
// it is invalid input, not a missing edge.
var transitions = map[transition]StockEffect{
	{StatusPending, StatusProcessing}:   EffectReserve,
	{StatusProcessing, StatusDelivered}: EffectConfirmDeduction,
	{StatusProcessing, StatusPending}:   EffectRelease,
	{StatusDelivered, StatusProcessing}: EffectRestoreAndReserve,
}

// EffectFor validates a (from, to) pair against the table.
func EffectFor(from, to Status) (StockEffect, error) {
	if from == to {
		return EffectNone, ErrSameStatus
	}
	eff, ok := transitions[transition{from, to}]
	if !ok {
		return EffectNone, ErrInvalidTransition
	}
	return eff, nil
}
