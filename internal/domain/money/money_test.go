package money

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateRoundsToPaisa(t *testing.T) {
	assert.Equal(t, Rupees(260), Rupees(2000).Rate(0.13))
	assert.Equal(t, Money(13), Money(99).Rate(0.13)) // 12.87 -> 13
}

func TestJSONUsesRupees(t *testing.T) {
	b, err := json.Marshal(struct {
		Price Money `json:"price"`
	}{Price: FromFloat(1299.5)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":1299.5}`, string(b))

	var in struct {
		Price Money `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price":"2460.25"}`), &in))
	assert.Equal(t, Money(246025), in.Price)
	assert.Equal(t, "2460.25", in.Price.String())
}
