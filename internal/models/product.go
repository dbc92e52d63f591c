package models

import "time"

// Product is read-only catalog data referenced by order items.
type Product struct {
	ID        int       `db:"id" json:"id"`
	SKU       string    `db:"sku" json:"sku"`
	Title     string    `db:"title" json:"title"`
	Price     float64   `db:"price" json:"price"`
	Stock     int       `db:"stock" json:"stock"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Dataset is the document served by the dataset source.
type Dataset struct {
	Products []Product `json:"products"`
	Orders   []Order   `json:"orders"`
}
