package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item with authoritative price and stock.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	SKU      string          `json:"sku"`
	Category string          `json:"category,omitempty"`
	Price    decimal.Decimal `json:"price"`
	Stock    int64           `json:"stock"`
}

// StudioProduct is a base garment a custom design is rendered onto.
type StudioProduct struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Active bool            `json:"active"`
}

// Design is user-owned artwork bound to a studio product. It has no price of
// its own; orders charge the base studio product's price.
type Design struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	StudioProductID string    `json:"studio_product_id"`
	Name            string    `json:"name"`
	ArtworkURL      string    `json:"artwork_url,omitempty"`
	Placement       string    `json:"placement,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}
