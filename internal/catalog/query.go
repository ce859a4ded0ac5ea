package catalog

import (
	"sort"
	"strings"
)

// AllCategories matches every product in a Query.
const AllCategories = "All Categories"

type Query struct {
	Search   string
	Category string
}

type SortOption string

const (
	SortDefault      SortOption = "default"
	SortPriceAsc     SortOption = "price-asc"
	SortPriceDesc    SortOption = "price-desc"
	SortRatingDesc   SortOption = "rating-desc"
	SortRatingAsc    SortOption = "rating-asc"
	SortDiscountDesc SortOption = "discount-desc"
	SortDiscountAsc  SortOption = "discount-asc"
)

// Filter keeps products whose title contains q.Search and whose category
// matches q.Category, both case-insensitively.
func Filter(products []Product, q Query) []Product {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	category := strings.TrimSpace(q.Category)
	anyCategory := category == "" || category == AllCategories

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) {
			continue
		}
		if !anyCategory && !strings.EqualFold(p.Category, category) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Sort returns a sorted copy. Ties keep catalog order; unknown options
// return catalog order.
func Sort(products []Product, opt SortOption) []Product {
	out := make([]Product, len(products))
	copy(out, products)

	var less func(a, b Product) bool
	switch opt {
	case SortPriceAsc:
		less = func(a, b Product) bool { return a.Price.LessThan(b.Price) }
	case SortPriceDesc:
		less = func(a, b Product) bool { return a.Price.GreaterThan(b.Price) }
	case SortRatingDesc:
		less = func(a, b Product) bool { return a.Rating > b.Rating }
	case SortRatingAsc:
		less = func(a, b Product) bool { return a.Rating < b.Rating }
	case SortDiscountDesc:
		less = func(a, b Product) bool { return a.DiscountPercentage.GreaterThan(b.DiscountPercentage) }
	case SortDiscountAsc:
		less = func(a, b Product) bool { return a.DiscountPercentage.LessThan(b.DiscountPercentage) }
	default:
		return out
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// Categories returns distinct categories in first-seen order.
func Categories(products []Product) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range products {
		if !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	return out
}

// Group is one category section of a product listing.
type Group struct {
	Category string    `json:"category"`
	Products []Product `json:"products"`
}

// GroupByCategory buckets products in the order of categories. Categories
// with no products are omitted.
func GroupByCategory(categories []string, products []Product) []Group {
	var groups []Group
	for _, c := range categories {
		var members []Product
		for _, p := range products {
			if p.Category == c {
				members = append(members, p)
			}
		}
		if len(members) > 0 {
			groups = append(groups, Group{Category: c, Products: members})
		}
	}
	return groups
}
