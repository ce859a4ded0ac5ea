package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidItemID     = errors.New("item id must be a JSON string or number")
	ErrMalformedSnapshot = errors.New("malformed cart snapshot")
)

var hundred = decimal.NewFromInt(100)

// ItemID is the aggregation key of a line item. Catalog ids arrive as JSON
// numbers, so ids in canonical integer form are written back as numbers.
// Anything else, such as "007" or "+5", stays a string.
type ItemID string

func (id ItemID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil && strconv.FormatInt(n, 10) == string(id) {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *ItemID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ErrInvalidItemID
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return ErrInvalidItemID
	}
	*id = ItemID(n.String())
	return nil
}

// LineItem is one product row of the cart.
type LineItem struct {
	ID                 ItemID
	Title              string
	UnitPrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
	Thumbnail          string
	Category           string
	Quantity           int
}

// DiscountedPrice is the unit price after the item's percentage discount.
func (li LineItem) DiscountedPrice() decimal.Decimal {
	return li.UnitPrice.Sub(li.UnitPrice.Mul(li.DiscountPercentage).Div(hundred))
}

// LineTotal is the discounted price times quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.DiscountedPrice().Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// LineSubtotal is the undiscounted price times quantity.
func (li LineItem) LineSubtotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// State is the in-memory cart owned by one identity session.
// A zero LastSynced means the cart has never been reconciled.
type State struct {
	Items      []LineItem
	LastSynced time.Time
}

// Snapshot is the decoded remote record.
type Snapshot struct {
	Items       []LineItem
	LastUpdated time.Time
}

// Total sums discounted line totals without rounding.
func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Count sums quantities, not distinct lines.
func Count(items []LineItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// FormatMoney rounds to currency precision for display.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// IsNewer reports whether a remote write should replace local state.
func IsNewer(remote, lastSynced time.Time) bool {
	if lastSynced.IsZero() {
		return true
	}
	return remote.After(lastSynced)
}

// Find returns the index of the item with the given id, or -1.
func Find(items []LineItem, id ItemID) int {
	for i, item := range items {
		if item.ID == id {
			return i
		}
	}
	return -1
}
