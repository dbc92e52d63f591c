package service

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/order_console/internal/models"
	"github.com/GTDGit/order_console/internal/state"
	"github.com/GTDGit/order_console/internal/utils"
)

// OrderLister supplies the full order collection.
type OrderLister interface {
	GetOrders(ctx context.Context) ([]models.Order, error)
}

// OrderPage is one rendered page of the order list.
type OrderPage struct {
	View       ViewState      `json:"view"`
	Query      string         `json:"query"`
	Rows       []models.Order `json:"rows"`
	Page       int            `json:"page"`
	TotalItems int            `json:"totalItems"`
	TotalPages int            `json:"totalPages"`
	Loaded     bool           `json:"loaded"`
}

// List event types.
const (
	EventStatus = "status"
	EventSearch = "search"
	EventPage   = "page"
	EventSort   = "sort"
)

// ListEvent is one user interaction with the list view.
type ListEvent struct {
	Type          string `json:"type" binding:"required,oneof=status search page sort"`
	Status        string `json:"status"`
	Search        string `json:"search"`
	Page          int    `json:"page"`
	PageSize      int    `json:"pageSize"`
	SortField     string `json:"sortField"`
	SortDirection string `json:"sortDirection"`
}

// OrderListController derives the visible order rows from the list view.
// The unfiltered collection is fetched once per activation and every event
// re-derives rows from it.
type OrderListController struct {
	orders OrderLister
	view   *state.Store[ViewState]

	mu     sync.RWMutex
	all    []models.Order
	loaded bool
}

// NewOrderListController constructs an OrderListController.
func NewOrderListController(orders OrderLister) *OrderListController {
	return &OrderListController{
		orders: orders,
		view:   state.New(DefaultViewState()),
	}
}

// View exposes the observable view state.
func (c *OrderListController) View() *state.Store[ViewState] {
	return c.view
}

// Activate parses the query, fetches the collection and renders. A fetch
// failure still renders an empty list and the error is returned with it so
// the caller can report it.
func (c *OrderListController) Activate(ctx context.Context, query url.Values) (*OrderPage, error) {
	c.view.Set(ParseViewState(query))

	orders, err := c.orders.GetOrders(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Order list load failed, rendering empty list")
		orders = []models.Order{}
	}

	c.mu.Lock()
	c.all = orders
	c.loaded = true
	c.mu.Unlock()

	return c.Render(), err
}

// SelectStatus switches the status tab and returns to page 1.
func (c *OrderListController) SelectStatus(status string) *OrderPage {
	page := DefaultPage
	return c.update(ViewPatch{StatusFilter: &status, Page: &page})
}

// Search sets the customer search text and returns to page 1.
func (c *OrderListController) Search(text string) *OrderPage {
	page := DefaultPage
	return c.update(ViewPatch{SearchText: &text, Page: &page})
}

// ChangePage moves to page with pageSize rows per page. When the size
// changes, the new page is the one holding the first row of the current
// page. Filters are kept.
func (c *OrderListController) ChangePage(page, pageSize int) *OrderPage {
	cur := c.view.Get()
	if pageSize > 0 && pageSize != cur.PageSize && slices.Contains(PageSizeOptions, pageSize) {
		first := (cur.Page - 1) * cur.PageSize
		page = first/pageSize + 1
	}
	patch := ViewPatch{Page: &page}
	if pageSize > 0 {
		patch.PageSize = &pageSize
	}
	return c.update(patch)
}

// ChangeSort sets the sort column and direction. The page is kept.
func (c *OrderListController) ChangeSort(field string, dir SortDirection) *OrderPage {
	return c.update(ViewPatch{SortField: &field, SortDirection: &dir})
}

// Apply dispatches ev to the matching event method.
func (c *OrderListController) Apply(ev ListEvent) (*OrderPage, error) {
	switch ev.Type {
	case EventStatus:
		return c.SelectStatus(ev.Status), nil
	case EventSearch:
		return c.Search(ev.Search), nil
	case EventPage:
		return c.ChangePage(ev.Page, ev.PageSize), nil
	case EventSort:
		return c.ChangeSort(ev.SortField, SortDirection(strings.ToLower(ev.SortDirection))), nil
	default:
		return nil, fmt.Errorf("%w: unknown list event %q", utils.ErrValidation, ev.Type)
	}
}

func (c *OrderListController) update(p ViewPatch) *OrderPage {
	c.view.Update(func(v ViewState) ViewState { return v.Merge(p) })
	return c.Render()
}

// Render derives the current page from the view and the loaded collection.
func (c *OrderListController) Render() *OrderPage {
	v := c.view.Get()

	c.mu.RLock()
	visible := FilterOrders(c.all, v.StatusFilter, v.SearchText)
	loaded := c.loaded
	c.mu.RUnlock()

	SortOrders(visible, v.SortField, v.SortDirection)
	rows, page, totalPages := paginate(visible, v.Page, v.PageSize)

	return &OrderPage{
		View:       v,
		Query:      v.Encode(),
		Rows:       rows,
		Page:       page,
		TotalItems: len(visible),
		TotalPages: totalPages,
		Loaded:     loaded,
	}
}

// FilterOrders returns copies of the orders matching status (unless "all")
// whose customer name contains search. Both comparisons ignore case; search
// is matched as given, surrounding spaces included.
func FilterOrders(orders []models.Order, status, search string) []models.Order {
	needle := strings.ToLower(search)
	out := make([]models.Order, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		if status != models.StatusFilterAll && !strings.EqualFold(string(o.Status), status) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(o.CustomerName), needle) {
			continue
		}
		out = append(out, *o.Clone())
	}
	return out
}

// SortOrders stable-sorts orders in place. Unknown fields sort by createdAt.
func SortOrders(orders []models.Order, field string, dir SortDirection) {
	cmp, ok := sortFields[field]
	if !ok {
		cmp = sortFields[DefaultSortField]
	}
	slices.SortStableFunc(orders, func(a, b models.Order) int {
		if dir == SortDesc {
			return cmp(&b, &a)
		}
		return cmp(&a, &b)
	})
}

// paginate slices one page out of orders. page is clamped to the last page.
func paginate(orders []models.Order, page, size int) (rows []models.Order, clamped, totalPages int) {
	totalPages = (len(orders) + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	clamped = min(max(page, 1), totalPages)
	start := (clamped - 1) * size
	end := min(start+size, len(orders))
	if start >= end {
		return []models.Order{}, clamped, totalPages
	}
	return orders[start:end], clamped, totalPages
}
