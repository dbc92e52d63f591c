package models

import (
	"math"
	"strings"
	"time"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusProcessing OrderStatus = "processing"
)

// StatusFilterAll is the list filter value that disables status filtering.
// It is never stored on an order.
const StatusFilterAll = "all"

// OrderStatuses lists every real order status in tab order.
var OrderStatuses = []OrderStatus{OrderStatusNew, OrderStatusProcessing}

// ParseOrderStatus matches s case-insensitively against the known statuses.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, st := range OrderStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// OrderItem is one product line of an order. Price is the unit price
// captured when the line was added, not a live catalog lookup.
type OrderItem struct {
	ProductID int     `db:"product_id" json:"productId"`
	Qty       int     `db:"qty" json:"qty"`
	Price     float64 `db:"price" json:"price"`
}

// Subtotal returns qty * price for the line.
func (i OrderItem) Subtotal() float64 {
	return float64(i.Qty) * i.Price
}

// Order is a customer purchase with its line items.
type Order struct {
	ID           int         `db:"id" json:"id"`
	Number       string      `db:"number" json:"number"`
	CustomerName string      `db:"customer_name" json:"customerName"`
	Status       OrderStatus `db:"status" json:"status"`
	Items        []OrderItem `db:"-" json:"items"`
	Total        float64     `db:"total" json:"total"`
	CreatedAt    time.Time   `db:"created_at" json:"createdAt"`
}

// ItemsTotal sums qty * price over items, rounded to cents.
func ItemsTotal(items []OrderItem) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Subtotal()
	}
	return RoundCents(sum)
}

// RoundCents rounds v to two decimal places.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	if o.Items != nil {
		c.Items = make([]OrderItem, len(o.Items))
		copy(c.Items, o.Items)
	}
	return &c
}

// CloneOrders deep-copies a slice of orders.
func CloneOrders(orders []Order) []Order {
	if orders == nil {
		return nil
	}
	out := make([]Order, len(orders))
	for i := range orders {
		out[i] = *orders[i].Clone()
	}
	return out
}
