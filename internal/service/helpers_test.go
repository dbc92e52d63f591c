package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/GTDGit/order_console/internal/models"
	"github.com/GTDGit/order_console/internal/repository"
)

var errBackendDown = errors.New("backend down")

type fixtureSource struct {
	mu sync.Mutex
	ds models.Dataset
}

func (s *fixtureSource) Name() string { return "fixture" }

func (s *fixtureSource) Load(ctx context.Context) (*models.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &models.Dataset{
		Products: append([]models.Product(nil), s.ds.Products...),
		Orders:   models.CloneOrders(s.ds.Orders),
	}, nil
}

func testDataset() models.Dataset {
	return models.Dataset{
		Products: []models.Product{
			{ID: 1, SKU: "SKU-1", Title: "Widget", Price: 10, Stock: 5},
			{ID: 2, SKU: "SKU-2", Title: "Gadget", Price: 25.5, Stock: 2},
		},
		Orders: []models.Order{
			{
				ID: 1, Number: "ORD-1", CustomerName: "Acme", Status: models.OrderStatusNew,
				Items:     []models.OrderItem{{ProductID: 1, Qty: 2, Price: 10}},
				Total:     20,
				CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			},
			{
				ID: 2, Number: "ORD-2", CustomerName: "Globex", Status: models.OrderStatusProcessing,
				Items:     []models.OrderItem{{ProductID: 2, Qty: 1, Price: 25.5}},
				Total:     25.5,
				CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
			},
		},
	}
}

func newTestRepo() *repository.OrderRepository {
	return repository.NewOrderRepository(&fixtureSource{ds: testDataset()}, nil, 0)
}

// failingUpdates wraps a real repository and fails every UpdateOrder.
type failingUpdates struct {
	*repository.OrderRepository
}

func (f failingUpdates) UpdateOrder(ctx context.Context, id int, order *models.Order) (*models.Order, error) {
	return nil, errBackendDown
}

// blockingUpdates holds UpdateOrder until release is closed or ctx ends.
type blockingUpdates struct {
	*repository.OrderRepository
	started chan struct{}
	release chan struct{}
	fail    bool
}

func (b *blockingUpdates) UpdateOrder(ctx context.Context, id int, order *models.Order) (*models.Order, error) {
	close(b.started)
	select {
	case <-b.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if b.fail {
		return nil, errBackendDown
	}
	return b.OrderRepository.UpdateOrder(ctx, id, order)
}

type listerFunc func(ctx context.Context) ([]models.Order, error)

func (f listerFunc) GetOrders(ctx context.Context) ([]models.Order, error) { return f(ctx) }
