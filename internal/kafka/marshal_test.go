package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapPayload(t *testing.T) {
	type payload struct {
		OrderID string `json:"order_id"`
		Qty     int    `json:"qty"`
	}

	raw := json.RawMessage(MustMarshal(payload{OrderID: "o1", Qty: 3}))
	got, err := UnwrapPayload[payload](raw)
	require.NoError(t, err)
	assert.Equal(t, payload{OrderID: "o1", Qty: 3}, got)

	_, err = UnwrapPayload[payload](json.RawMessage(`{broken`))
	assert.Error(t, err)
}
