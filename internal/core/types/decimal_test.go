package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want Quantity
	}{
		{"120", NewQuantity(120)},
		{"0.5", Quantity(5000)},
		{"-3.25", Quantity(-32500)},
		{"1.123456", Quantity(11234)},
		{"+7", NewQuantity(7)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseQuantity("")
	assert.Error(t, err)
	_, err = ParseQuantity("abc")
	assert.Error(t, err)
}

func TestQuantity_String(t *testing.T) {
	assert.Equal(t, "150.0000", NewQuantity(150).String())
	assert.Equal(t, "-0.2500", Quantity(-2500).String())
}

func TestQuantity_JSON(t *testing.T) {
	var payload struct {
		A Quantity `json:"a"`
		B Quantity `json:"b"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 12.5, "b": "3"}`), &payload))
	assert.Equal(t, Quantity(125000), payload.A)
	assert.Equal(t, NewQuantity(3), payload.B)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 12.5, "b": 3}`, string(out))
}

func TestQuantity_Cost(t *testing.T) {
	cost := NewQuantity(20).Cost(MustMoney("2.75"))
	assert.True(t, cost.Equal(MustMoney("55")), "got %s", cost)

	half := Quantity(5000).Cost(MustMoney("3"))
	assert.True(t, half.Equal(MustMoney("1.5")), "got %s", half)
}

func TestMinQuantity(t *testing.T) {
	assert.Equal(t, NewQuantity(2), MinQuantity(NewQuantity(2), NewQuantity(5)))
	assert.Equal(t, NewQuantity(2), MinQuantity(NewQuantity(5), NewQuantity(2)))
}
