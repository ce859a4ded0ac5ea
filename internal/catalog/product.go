package catalog

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/example/storefront-cart/internal/domain/cart"
)

// Product as served by the catalog API.
type Product struct {
	ID                 int             `json:"id"`
	Title              string          `json:"title"`
	Description        string          `json:"description"`
	Price              decimal.Decimal `json:"price"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	Rating             float64         `json:"rating"`
	Stock              int             `json:"stock"`
	Brand              string          `json:"brand,omitempty"`
	Category           string          `json:"category"`
	Thumbnail          string          `json:"thumbnail"`
	Images             []string        `json:"images,omitempty"`
}

// DiscountedPrice applies the product's discount percentage.
func (p Product) DiscountedPrice() decimal.Decimal {
	return p.ToLineItem().DiscountedPrice()
}

// ToLineItem copies the fields a cart line keeps. Quantity is left at zero;
// the cart sets it on add.
func (p Product) ToLineItem() cart.LineItem {
	return cart.LineItem{
		ID:                 cart.ItemID(strconv.Itoa(p.ID)),
		Title:              p.Title,
		UnitPrice:          p.Price,
		DiscountPercentage: p.DiscountPercentage,
		Thumbnail:          p.Thumbnail,
		Category:           p.Category,
	}
}
