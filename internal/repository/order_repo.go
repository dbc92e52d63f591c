package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/order_console/internal/datasource"
	"github.com/GTDGit/order_console/internal/models"
	"github.com/GTDGit/order_console/internal/sse"
	"github.com/GTDGit/order_console/internal/utils"
)

// OrderRepository is the data access layer over the dataset source. Orders
// and products are cached as whole collections after the first fetch.
//
// The source is read-only, so writes only touch the cache. Writes are also
// recorded in an overlay that is replayed after every fetch; clearing the
// cache therefore never brings back a deleted order or an edit that was
// already acknowledged.
type OrderRepository struct {
	source   datasource.Source
	notifier sse.OrderNotifier
	latency  time.Duration

	// fetchMu serializes fetches so concurrent cold reads share one call.
	fetchMu sync.Mutex

	mu       sync.RWMutex
	orders   []models.Order
	products []models.Product
	updated  map[int]models.Order
	deleted  map[int]struct{}
	fetches  int
}

// NewOrderRepository constructs an OrderRepository. latency is the simulated
// round-trip applied to UpdateOrder and DeleteOrder.
func NewOrderRepository(source datasource.Source, notifier sse.OrderNotifier, latency time.Duration) *OrderRepository {
	if notifier == nil {
		notifier = sse.NopNotifier{}
	}
	return &OrderRepository{
		source:   source,
		notifier: notifier,
		latency:  latency,
		updated:  make(map[int]models.Order),
		deleted:  make(map[int]struct{}),
	}
}

// FetchAll loads the dataset with a single source call and replaces both
// caches. On failure the caches are left untouched.
func (r *OrderRepository) FetchAll(ctx context.Context) (*models.Dataset, error) {
	r.fetchMu.Lock()
	defer r.fetchMu.Unlock()
	return r.fetchLocked(ctx)
}

func (r *OrderRepository) fetchLocked(ctx context.Context) (*models.Dataset, error) {
	start := time.Now()
	ds, err := r.source.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Str("source", r.source.Name()).Msg("Dataset fetch failed")
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}

	r.mu.Lock()
	orders := r.applyOverlay(ds.Orders)
	r.orders = orders
	r.products = ds.Products
	if r.products == nil {
		r.products = []models.Product{}
	}
	r.fetches++
	out := &models.Dataset{
		Products: cloneProducts(r.products),
		Orders:   models.CloneOrders(r.orders),
	}
	r.mu.Unlock()

	log.Debug().
		Str("source", r.source.Name()).
		Int("orders", len(out.Orders)).
		Int("products", len(out.Products)).
		Dur("duration", time.Since(start)).
		Msg("Dataset loaded")
	return out, nil
}

// applyOverlay replays acknowledged local writes onto freshly fetched orders.
// Caller holds mu.
func (r *OrderRepository) applyOverlay(fetched []models.Order) []models.Order {
	out := make([]models.Order, 0, len(fetched))
	for _, o := range fetched {
		if _, gone := r.deleted[o.ID]; gone {
			continue
		}
		if u, ok := r.updated[o.ID]; ok {
			out = append(out, *u.Clone())
			continue
		}
		out = append(out, *o.Clone())
	}
	return out
}

// GetOrders returns the cached orders, fetching the dataset on a cold cache.
func (r *OrderRepository) GetOrders(ctx context.Context) ([]models.Order, error) {
	r.mu.RLock()
	if r.orders != nil {
		out := models.CloneOrders(r.orders)
		r.mu.RUnlock()
		return out, nil
	}
	r.mu.RUnlock()

	r.fetchMu.Lock()
	defer r.fetchMu.Unlock()

	// another caller may have filled the cache while we waited
	r.mu.RLock()
	if r.orders != nil {
		out := models.CloneOrders(r.orders)
		r.mu.RUnlock()
		return out, nil
	}
	r.mu.RUnlock()

	ds, err := r.fetchLocked(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Orders, nil
}

// GetProducts returns the cached product catalog, fetching on a cold cache.
func (r *OrderRepository) GetProducts(ctx context.Context) ([]models.Product, error) {
	r.mu.RLock()
	if r.products != nil {
		out := cloneProducts(r.products)
		r.mu.RUnlock()
		return out, nil
	}
	r.mu.RUnlock()

	r.fetchMu.Lock()
	defer r.fetchMu.Unlock()

	r.mu.RLock()
	if r.products != nil {
		out := cloneProducts(r.products)
		r.mu.RUnlock()
		return out, nil
	}
	r.mu.RUnlock()

	ds, err := r.fetchLocked(ctx)
	if err != nil {
		return nil, err
	}
	return ds.Products, nil
}

// GetOrderByID finds one order in the cached collection.
func (r *OrderRepository) GetOrderByID(ctx context.Context, id int) (*models.Order, error) {
	orders, err := r.GetOrders(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID == id {
			return &orders[i], nil
		}
	}
	return nil, fmt.Errorf("order %d: %w", id, utils.ErrOrderNotFound)
}

// UpdateOrder simulates a round-trip, then replaces the cached order with
// the same id. An id missing from the cache is a no-op. The submitted order
// is returned as-is.
func (r *OrderRepository) UpdateOrder(ctx context.Context, id int, order *models.Order) (*models.Order, error) {
	if err := r.simulateLatency(ctx); err != nil {
		return nil, err
	}

	saved := order.Clone()
	r.mu.Lock()
	replaced := false
	for i := range r.orders {
		if r.orders[i].ID == id {
			r.orders[i] = *saved.Clone()
			r.updated[id] = *saved.Clone()
			replaced = true
			break
		}
	}
	r.mu.Unlock()

	if replaced {
		log.Info().Int("order_id", id).Float64("total", saved.Total).Msg("Order updated")
		r.notifier.NotifyOrderUpdated(saved)
	} else {
		log.Debug().Int("order_id", id).Msg("Order update skipped: not in cache")
	}
	return saved, nil
}

// DeleteOrder simulates a round-trip, then removes the order from the cache.
func (r *OrderRepository) DeleteOrder(ctx context.Context, id int) error {
	if err := r.simulateLatency(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	for i := range r.orders {
		if r.orders[i].ID == id {
			r.orders = append(r.orders[:i], r.orders[i+1:]...)
			break
		}
	}
	r.deleted[id] = struct{}{}
	delete(r.updated, id)
	r.mu.Unlock()

	log.Info().Int("order_id", id).Msg("Order deleted")
	r.notifier.NotifyOrderDeleted(id)
	return nil
}

// ClearCache drops both caches; the next read fetches again.
func (r *OrderRepository) ClearCache() {
	r.mu.Lock()
	r.orders = nil
	r.products = nil
	r.mu.Unlock()

	log.Debug().Msg("Order cache cleared")
	r.notifier.NotifyCacheCleared()
}

// CacheStats reports cache state for health output.
type CacheStats struct {
	Source         string `json:"source"`
	OrdersCached   bool   `json:"ordersCached"`
	ProductsCached bool   `json:"productsCached"`
	Orders         int    `json:"orders"`
	Fetches        int    `json:"fetches"`
}

// Stats returns a snapshot of the cache state.
func (r *OrderRepository) Stats() CacheStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return CacheStats{
		Source:         r.source.Name(),
		OrdersCached:   r.orders != nil,
		ProductsCached: r.products != nil,
		Orders:         len(r.orders),
		Fetches:        r.fetches,
	}
}

func (r *OrderRepository) simulateLatency(ctx context.Context) error {
	if r.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.latency)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func cloneProducts(products []models.Product) []models.Product {
	if products == nil {
		return nil
	}
	out := make([]models.Product, len(products))
	copy(out, products)
	return out
}
