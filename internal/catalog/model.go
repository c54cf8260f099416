package catalog

import (
	"github.com/petalcrumb/pos-engine/internal/pricing"
	"github.com/petalcrumb/pos-engine/internal/routing"
)

// Category represents one tile group on the sale screen.
type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// ProductSummary is an entry in list responses. The full price spec is only
// loaded on detail lookups.
type ProductSummary struct {
	ID        string        `json:"id"`
	Slug      string        `json:"slug"`
	Name      string        `json:"name"`
	Category  string        `json:"category"`
	BasePrice pricing.Money `json:"basePrice"`
	ImageURL  *string       `json:"imageUrl,omitempty"`
}

// Product aggregates everything the checkout needs to price and route a line.
// RequiresKitchen and RequiresDesign are explicit routing overrides; nil means
// the category default applies.
type Product struct {
	ID              string            `json:"id"`
	Slug            string            `json:"slug"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	Category        string            `json:"category"`
	ImageURL        *string           `json:"imageUrl,omitempty"`
	Active          bool              `json:"active"`
	RequiresKitchen *bool             `json:"requiresKitchen,omitempty"`
	RequiresDesign  *bool             `json:"requiresDesign,omitempty"`
	Spec            pricing.PriceSpec `json:"spec"`
}

// RoutingItem resolves the product's team demands, applying category defaults
// where no override is stored.
func (p Product) RoutingItem() routing.Item {
	return routing.ItemFor(p.Category, p.RequiresKitchen, p.RequiresDesign)
}

// ProductListResult contains list data and pagination metadata.
type ProductListResult struct {
	Items []ProductSummary
	Total int64
	Page  int
	Limit int
}
