package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductAvailable(t *testing.T) {
	p := Product{Stock: 10, StockReserved: 7}
	assert.Equal(t, 3, p.Available())

	// Reservation bookkeeping never exceeds stock, but Available stays
	// honest if it somehow does.
	p = Product{Stock: 2, StockReserved: 5}
	assert.Equal(t, -3, p.Available())
}
