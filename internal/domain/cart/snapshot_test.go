package cart

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeItems_WireFormat(t *testing.T) {
	item := newItem("12", "79.99", "7.5")
	item.Title = "Wireless Earbuds"
	item.Quantity = 2

	data, err := EncodeItems([]LineItem{item})
	require.NoError(t, err)

	assert.JSONEq(t, `[{
		"id": 12,
		"title": "Wireless Earbuds",
		"price": 79.99,
		"discountPercentage": 7.5,
		"thumbnail": "https://cdn.example.com/12.png",
		"quantity": 2,
		"category": "beauty"
	}]`, data)
}

func TestEncodeItems_StringIDStaysString(t *testing.T) {
	data, err := EncodeItems([]LineItem{{ID: "sku-9", UnitPrice: decimal.NewFromInt(1), Quantity: 1}})
	require.NoError(t, err)

	var raw []map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &raw))
	assert.Equal(t, "sku-9", raw[0]["id"])
}

func TestEncodeItems_NonCanonicalNumericIDStaysString(t *testing.T) {
	for _, id := range []ItemID{"007", "+5", "-0", "1e3", "99999999999999999999"} {
		t.Run(string(id), func(t *testing.T) {
			data, err := EncodeItems([]LineItem{{ID: id, UnitPrice: decimal.NewFromInt(1), Quantity: 1}})
			require.NoError(t, err)
			require.True(t, json.Valid([]byte(data)), data)

			var raw []map[string]any
			require.NoError(t, json.Unmarshal([]byte(data), &raw))
			assert.Equal(t, string(id), raw[0]["id"])

			items, err := DecodeItems(data)
			require.NoError(t, err)
			assert.Equal(t, id, items[0].ID)
		})
	}
}

func TestDecodeItems_QuotedNumericIDKeepsIdentity(t *testing.T) {
	items, err := DecodeItems(`[{"id":"5","title":"Pear","price":1,"quantity":1}]`)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ItemID("5"), items[0].ID)

	data, err := EncodeItems(items)
	require.NoError(t, err)
	again, err := DecodeItems(data)
	require.NoError(t, err)
	assert.Equal(t, ItemID("5"), again[0].ID)
	assert.Equal(t, 0, Find(again, "5"))
}

func TestEncodeItems_EmptyCartIsEmptyArray(t *testing.T) {
	data, err := EncodeItems(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", data)
}

func TestDecodeItems_AcceptsStorefrontPayload(t *testing.T) {
	payload := `[{"id":1,"title":"Essence Mascara","price":9.99,"discountPercentage":7.17,` +
		`"thumbnail":"t.png","quantity":3,"category":"beauty","rating":4.94}]`

	items, err := DecodeItems(payload)
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, ItemID("1"), items[0].ID)
	assert.True(t, decimal.RequireFromString("9.99").Equal(items[0].UnitPrice))
	assert.True(t, decimal.RequireFromString("7.17").Equal(items[0].DiscountPercentage))
	assert.Equal(t, 3, items[0].Quantity)
}

func TestDecodeItems_MissingDiscountDefaultsToZero(t *testing.T) {
	items, err := DecodeItems(`[{"id":"a","title":"x","price":5,"quantity":1}]`)
	require.NoError(t, err)
	assert.True(t, items[0].DiscountPercentage.IsZero())
}

func TestDecodeItems_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"truncated", `[{"id":1,"title":"x"`},
		{"not an array", `{"id":1}`},
		{"bad id", `[{"id":true,"price":1,"quantity":1}]`},
		{"bad price", `[{"id":1,"price":"abc","quantity":1}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeItems(tt.payload)
			assert.True(t, errors.Is(err, ErrMalformedSnapshot), "got %v", err)
		})
	}
}

func TestEncodeDecodeSnapshot(t *testing.T) {
	writtenAt := time.Date(2025, 3, 4, 5, 6, 7, 891_000_000, time.UTC)
	item := newItem("42", "19.99", "0")
	item.Quantity = 1

	fields, err := EncodeSnapshot([]LineItem{item}, writtenAt)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-04T05:06:07.891Z", fields[FieldLastUpdated])

	snap, err := DecodeSnapshot(fields)
	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.True(t, writtenAt.Equal(snap.LastUpdated))
	require.Len(t, snap.Items, 1)
	assert.Equal(t, ItemID("42"), snap.Items[0].ID)
}

func TestDecodeSnapshot_AbsentField(t *testing.T) {
	snap, err := DecodeSnapshot(map[string]string{"theme": "dark"})

	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestDecodeSnapshot_BadTimestampIsZero(t *testing.T) {
	snap, err := DecodeSnapshot(map[string]string{
		FieldCartData:    "[]",
		FieldLastUpdated: "yesterday",
	})

	require.NoError(t, err)
	require.NotNil(t, snap)
	assert.True(t, snap.LastUpdated.IsZero())
	assert.Empty(t, snap.Items)
}

func TestParseTimestamp_AcceptsOffsets(t *testing.T) {
	ts, err := ParseTimestamp("2025-03-04T07:06:07.5+02:00")
	require.NoError(t, err)
	assert.Equal(t, "2025-03-04T05:06:07.500Z", FormatTimestamp(ts))
}
