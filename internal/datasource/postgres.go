package datasource

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/GTDGit/order_console/internal/models"
)

// PostgresSource reads the catalog tables created by the migrations.
type PostgresSource struct {
	db *sqlx.DB
}

// NewPostgresSource constructs a PostgresSource.
func NewPostgresSource(db *sqlx.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) Name() string { return "postgres" }

type orderItemRow struct {
	OrderID   int     `db:"order_id"`
	ProductID int     `db:"product_id"`
	Qty       int     `db:"qty"`
	Price     float64 `db:"price"`
}

// Load selects products, orders and items and assembles the dataset.
func (s *PostgresSource) Load(ctx context.Context) (*models.Dataset, error) {
	ds := &models.Dataset{}

	if err := s.db.SelectContext(ctx, &ds.Products, `
		SELECT id, sku, title, price, stock, updated_at
		FROM products
		ORDER BY id
	`); err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	if err := s.db.SelectContext(ctx, &ds.Orders, `
		SELECT id, number, customer_name, status, total, created_at
		FROM orders
		ORDER BY id
	`); err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	var items []orderItemRow
	if err := s.db.SelectContext(ctx, &items, `
		SELECT order_id, product_id, qty, price
		FROM order_items
		ORDER BY order_id, position
	`); err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	byOrder := make(map[int][]models.OrderItem, len(ds.Orders))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], models.OrderItem{
			ProductID: it.ProductID,
			Qty:       it.Qty,
			Price:     it.Price,
		})
	}
	for i := range ds.Orders {
		ds.Orders[i].Items = byOrder[ds.Orders[i].ID]
	}

	normalize(ds)
	return ds, nil
}
