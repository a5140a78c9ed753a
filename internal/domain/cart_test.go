package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entry(id int64) CartEntry {
	return CartEntry{ItemID: ItemID{Value: id, Valid: true}, Quantity: 1}
}

func ids(entries []CartEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ItemID.String())
	}
	return out
}

func TestValidateCart_Threshold(t *testing.T) {
	tests := []struct {
		name      string
		id        int64
		threshold int64
		accepted  bool
	}{
		{"just below threshold", 999999, 1_000_000, true},
		{"at threshold", 1000000, 1_000_000, false},
		{"timestamp id", 1751552825116, DefaultItemIDThreshold, false},
		{"timestamp id with default", 1751552825116, 0, false},
		{"zero", 0, DefaultItemIDThreshold, false},
		{"negative", -5, DefaultItemIDThreshold, false},
		{"small id", 7, DefaultItemIDThreshold, true},
		{"custom threshold", 150, 100, false},
		{"negative threshold falls back", 999999, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accepted, rejected := ValidateCart([]CartEntry{entry(tt.id)}, tt.threshold)
			if tt.accepted {
				assert.Len(t, accepted, 1)
				assert.Empty(t, rejected)
			} else {
				assert.Empty(t, accepted)
				assert.Len(t, rejected, 1)
			}
		})
	}
}

func TestValidateCart_PreservesOrder(t *testing.T) {
	in := []CartEntry{entry(3), entry(1751552825116), entry(1), entry(0), entry(42), entry(-5), entry(2)}

	accepted, rejected := ValidateCart(in, DefaultItemIDThreshold)

	assert.Equal(t, []string{"3", "1", "42", "2"}, ids(accepted))
	assert.Equal(t, []string{"1751552825116", "0", "-5"}, ids(rejected))
	assert.Equal(t, len(in), len(accepted)+len(rejected))
}

func TestValidateCart_Empty(t *testing.T) {
	accepted, rejected := ValidateCart(nil, DefaultItemIDThreshold)
	assert.Empty(t, accepted)
	assert.Empty(t, rejected)

	accepted, _ = ValidateCart([]CartEntry{entry(1751552825116)}, DefaultItemIDThreshold)
	assert.Empty(t, accepted)
}

func TestCartEntry_UnmarshalItemID(t *testing.T) {
	tests := []struct {
		body  string
		valid bool
		value int64
	}{
		{`{"item_id": 12, "quantity": 2}`, true, 12},
		{`{"item_id": 1751552825116}`, true, 1751552825116},
		{`{"item_id": 4.0}`, true, 4},
		{`{"item_id": 4.5}`, false, 0},
		{`{"item_id": "12"}`, false, 0},
		{`{"item_id": null}`, false, 0},
		{`{"item_id": {"id": 3}}`, false, 0},
		{`{"quantity": 1}`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var e CartEntry
			require.NoError(t, json.Unmarshal([]byte(tt.body), &e))
			assert.Equal(t, tt.valid, e.ItemID.Valid)
			assert.Equal(t, tt.value, e.ItemID.Value)
		})
	}
}

func TestValidateCart_RejectsNonIntegerIDs(t *testing.T) {
	var cart []CartEntry
	require.NoError(t, json.Unmarshal([]byte(`[
		{"item_id": 5, "name": "Koshari"},
		{"item_id": "abc", "name": "Broken"},
		{"item_id": 2.5, "name": "Half"}
	]`), &cart))

	accepted, rejected := ValidateCart(cart, DefaultItemIDThreshold)

	require.Len(t, accepted, 1)
	assert.Equal(t, "Koshari", accepted[0].Name)
	require.Len(t, rejected, 2)

	out, err := json.Marshal(rejected)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"item_id":"abc","quantity":0,"name":"Broken"},{"item_id":2.5,"quantity":0,"name":"Half"}]`, string(out))
}
