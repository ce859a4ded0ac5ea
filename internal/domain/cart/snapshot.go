package cart

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Profile field names holding the persisted cart.
const (
	FieldCartData    = "cartData"
	FieldLastUpdated = "lastUpdated"
)

// TimestampLayout is ISO-8601 with millisecond precision in UTC.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

type wireItem struct {
	ID                 ItemID      `json:"id"`
	Title              string      `json:"title"`
	Price              json.Number `json:"price"`
	DiscountPercentage json.Number `json:"discountPercentage"`
	Thumbnail          string      `json:"thumbnail"`
	Quantity           int         `json:"quantity"`
	Category           string      `json:"category"`
}

// EncodeItems serializes items as the JSON array stored in the cartData field.
func EncodeItems(items []LineItem) (string, error) {
	wire := make([]wireItem, 0, len(items))
	for _, item := range items {
		wire = append(wire, wireItem{
			ID:                 item.ID,
			Title:              item.Title,
			Price:              json.Number(item.UnitPrice.String()),
			DiscountPercentage: json.Number(item.DiscountPercentage.String()),
			Thumbnail:          item.Thumbnail,
			Quantity:           item.Quantity,
			Category:           item.Category,
		})
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cart items: %w", err)
	}
	return string(data), nil
}

// DecodeItems parses a cartData field value.
func DecodeItems(data string) ([]LineItem, error) {
	var wire []wireItem
	if err := json.Unmarshal([]byte(data), &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	items := make([]LineItem, 0, len(wire))
	for _, w := range wire {
		price, err := parseDecimal(w.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: item %s price: %v", ErrMalformedSnapshot, w.ID, err)
		}
		discount, err := parseDecimal(w.DiscountPercentage)
		if err != nil {
			return nil, fmt.Errorf("%w: item %s discount: %v", ErrMalformedSnapshot, w.ID, err)
		}
		items = append(items, LineItem{
			ID:                 w.ID,
			Title:              w.Title,
			UnitPrice:          price,
			DiscountPercentage: discount,
			Thumbnail:          w.Thumbnail,
			Category:           w.Category,
			Quantity:           w.Quantity,
		})
	}
	return items, nil
}

// FormatTimestamp renders a write timestamp for the lastUpdated field.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseTimestamp accepts any RFC 3339 timestamp, including the millisecond
// form written by FormatTimestamp.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// EncodeSnapshot builds the profile fields for one persist. Both fields are
// written together so the timestamp always describes the array beside it.
func EncodeSnapshot(items []LineItem, writtenAt time.Time) (map[string]string, error) {
	data, err := EncodeItems(items)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		FieldCartData:    data,
		FieldLastUpdated: FormatTimestamp(writtenAt),
	}, nil
}

// DecodeSnapshot reads the cart out of profile fields. A missing cartData
// field yields (nil, nil). An unreadable timestamp decodes as the zero time.
func DecodeSnapshot(fields map[string]string) (*Snapshot, error) {
	data, ok := fields[FieldCartData]
	if !ok || data == "" {
		return nil, nil
	}
	items, err := DecodeItems(data)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Items: items}
	if ts, ok := fields[FieldLastUpdated]; ok {
		if parsed, err := ParseTimestamp(ts); err == nil {
			snap.LastUpdated = parsed
		}
	}
	return snap, nil
}

func parseDecimal(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(n.String())
}
