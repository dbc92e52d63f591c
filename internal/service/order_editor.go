package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/order_console/internal/models"
	"github.com/GTDGit/order_console/internal/state"
	"github.com/GTDGit/order_console/internal/utils"
)

// OrderStore is the data access the order editor needs.
type OrderStore interface {
	GetOrderByID(ctx context.Context, id int) (*models.Order, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
	UpdateOrder(ctx context.Context, id int, order *models.Order) (*models.Order, error)
	DeleteOrder(ctx context.Context, id int) error
	ClearCache()
}

// EditorPhase is the lifecycle phase of an order editor.
type EditorPhase string

const (
	PhaseLoading   EditorPhase = "loading"
	PhaseReady     EditorPhase = "ready"
	PhaseSaving    EditorPhase = "saving"
	PhaseNavigated EditorPhase = "navigated"
)

// SyncState tells how the last save ended.
type SyncState string

const (
	SyncNone       SyncState = ""
	SyncSynced     SyncState = "synced"
	SyncRolledBack SyncState = "rolled_back"
)

// EditorState is the observable state of one order editor.
type EditorState struct {
	OrderID int          `json:"orderId"`
	Phase   EditorPhase  `json:"phase"`
	Sync    SyncState    `json:"sync,omitempty"`
	Form    OrderForm    `json:"form"`
	Total   float64      `json:"total"`
	Touched bool         `json:"touched"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// ItemPatch changes some fields of one order line. Nil fields are kept.
type ItemPatch struct {
	ProductID *int     `json:"productId"`
	Qty       *int     `json:"qty"`
	Price     *float64 `json:"price"`
}

// OrderEditor edits one order with optimistic save and rollback. The
// baseline is a deep copy of the last known-good order; a failed save
// resets the form to it.
type OrderEditor struct {
	orders OrderStore
	id     int
	state  *state.Store[EditorState]

	life   context.Context
	cancel context.CancelFunc

	mu       sync.RWMutex
	baseline *models.Order
	catalog  []models.Product
	prices   map[int]float64
}

// NewOrderEditor constructs an editor for order id in the loading phase.
func NewOrderEditor(orders OrderStore, id int) *OrderEditor {
	life, cancel := context.WithCancel(context.Background())
	return &OrderEditor{
		orders: orders,
		id:     id,
		state:  state.New(EditorState{OrderID: id, Phase: PhaseLoading}),
		life:   life,
		cancel: cancel,
	}
}

// ID returns the edited order id.
func (e *OrderEditor) ID() int { return e.id }

// State exposes the observable editor state.
func (e *OrderEditor) State() *state.Store[EditorState] { return e.state }

// Snapshot returns the current editor state with a private copy of the form.
func (e *OrderEditor) Snapshot() EditorState {
	st := e.state.Get()
	st.Form = st.Form.Clone()
	return st
}

// Products returns the catalog loaded with the order.
func (e *OrderEditor) Products() []models.Product {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]models.Product(nil), e.catalog...)
}

// Baseline returns a copy of the rollback baseline.
func (e *OrderEditor) Baseline() *models.Order {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.baseline.Clone()
}

// Load fetches the order and the product catalog. On failure the editor
// navigates away.
func (e *OrderEditor) Load(ctx context.Context) error {
	ctx, stop := e.bind(ctx)
	defer stop()

	order, err := e.orders.GetOrderByID(ctx, e.id)
	if err == nil {
		var products []models.Product
		if products, err = e.orders.GetProducts(ctx); err == nil {
			e.mu.Lock()
			e.baseline = order.Clone()
			e.catalog = products
			e.prices = make(map[int]float64, len(products))
			for _, p := range products {
				e.prices[p.ID] = p.Price
			}
			e.mu.Unlock()
		}
	}
	if err != nil {
		e.navigate()
		log.Warn().Err(err).Int("order_id", e.id).Msg("Order editor load failed")
		return fmt.Errorf("load order %d: %w", e.id, err)
	}

	form := OrderToForm(order)
	e.state.Update(func(s EditorState) EditorState {
		if s.Phase == PhaseNavigated {
			return s
		}
		s.Phase = PhaseReady
		s.Sync = SyncNone
		s.Form = form
		s.Total = form.Total()
		s.Touched = false
		s.Errors = nil
		return s
	})
	return e.closedErr()
}

// SetCustomerName edits the customer name.
func (e *OrderEditor) SetCustomerName(name string) error {
	return e.edit(func(f *OrderForm) error {
		f.CustomerName = name
		return nil
	})
}

// SetStatus edits the order status.
func (e *OrderEditor) SetStatus(status string) error {
	return e.edit(func(f *OrderForm) error {
		f.Status = status
		return nil
	})
}

// SetItem patches line index. Choosing another product sets the unit price
// from the catalog.
func (e *OrderEditor) SetItem(index int, patch ItemPatch) error {
	return e.edit(func(f *OrderForm) error {
		if index < 0 || index >= len(f.Items) {
			return fmt.Errorf("item %d: %w", index, utils.ErrItemIndex)
		}
		it := &f.Items[index]
		if patch.ProductID != nil && *patch.ProductID != it.ProductID {
			it.ProductID = *patch.ProductID
			if price, ok := e.productPrice(it.ProductID); ok {
				it.Price = price
			}
		}
		if patch.Qty != nil {
			it.Qty = *patch.Qty
		}
		if patch.Price != nil {
			it.Price = *patch.Price
		}
		return nil
	})
}

// AddItem appends a blank line with quantity 1.
func (e *OrderEditor) AddItem() error {
	return e.edit(func(f *OrderForm) error {
		f.Items = append(f.Items, ItemForm{ProductID: 0, Qty: 1, Price: 0})
		return nil
	})
}

// RemoveItem drops line index. The last remaining line cannot be removed.
func (e *OrderEditor) RemoveItem(index int) error {
	return e.edit(func(f *OrderForm) error {
		if index < 0 || index >= len(f.Items) {
			return fmt.Errorf("item %d: %w", index, utils.ErrItemIndex)
		}
		if len(f.Items) <= 1 {
			return utils.ErrLastItem
		}
		f.Items = append(f.Items[:index], f.Items[index+1:]...)
		return nil
	})
}

// ApplyForm replaces the whole form.
func (e *OrderEditor) ApplyForm(form OrderForm) error {
	return e.edit(func(f *OrderForm) error {
		*f = form.Clone()
		return nil
	})
}

// Total is the sum of qty * price over the current lines.
func (e *OrderEditor) Total() float64 {
	return e.state.Get().Form.Total()
}

// Subtotal is qty * price of line index.
func (e *OrderEditor) Subtotal(index int) (float64, error) {
	items := e.state.Get().Form.Items
	if index < 0 || index >= len(items) {
		return 0, fmt.Errorf("item %d: %w", index, utils.ErrItemIndex)
	}
	return models.RoundCents(float64(items[index].Qty) * items[index].Price), nil
}

// edit applies fn to a copy of the form and commits it unless fn fails.
// Edits are accepted while a save is in flight.
func (e *OrderEditor) edit(fn func(*OrderForm) error) error {
	var err error
	e.state.Update(func(s EditorState) EditorState {
		if s.Phase != PhaseReady && s.Phase != PhaseSaving {
			err = e.phaseErr(s.Phase)
			return s
		}
		form := s.Form.Clone()
		if err = fn(&form); err != nil {
			return s
		}
		s.Form = form
		s.Total = form.Total()
		if s.Touched {
			s.Errors = fieldErrors(ValidateForm(form))
		}
		return s
	})
	return err
}

// Save validates the form and submits it. Invalid forms never reach the
// store. A failed save restores the baseline and drops every edit made
// since, including edits made while the save was in flight.
func (e *OrderEditor) Save(ctx context.Context) (*models.Order, error) {
	var (
		form    OrderForm
		invalid error
		err     error
	)
	e.state.Update(func(s EditorState) EditorState {
		if s.Phase != PhaseReady {
			err = e.phaseErr(s.Phase)
			return s
		}
		if verr := ValidateForm(s.Form); verr != nil {
			invalid = verr
			s.Touched = true
			s.Errors = fieldErrors(verr)
			return s
		}
		form = s.Form.Clone()
		s.Phase = PhaseSaving
		s.Touched = false
		s.Errors = nil
		return s
	})
	if err != nil {
		return nil, err
	}
	if invalid != nil {
		return nil, invalid
	}

	e.mu.RLock()
	order := FormToOrder(e.baseline, form)
	e.mu.RUnlock()

	opCtx, stop := e.bind(ctx)
	saved, saveErr := e.orders.UpdateOrder(opCtx, e.id, order)
	stop()

	if saveErr == nil {
		e.mu.Lock()
		e.baseline = saved.Clone()
		e.mu.Unlock()
	}

	e.mu.RLock()
	baselineForm := OrderToForm(e.baseline)
	e.mu.RUnlock()

	var discarded bool
	e.state.Update(func(s EditorState) EditorState {
		if s.Phase != PhaseSaving {
			discarded = true
			return s
		}
		s.Phase = PhaseReady
		if saveErr != nil {
			s.Sync = SyncRolledBack
			s.Form = baselineForm
			s.Total = baselineForm.Total()
			return s
		}
		s.Sync = SyncSynced
		return s
	})
	if discarded {
		return nil, utils.ErrEditorClosed
	}
	if saveErr != nil {
		log.Warn().Err(saveErr).Int("order_id", e.id).Msg("Order save failed, form rolled back")
		return nil, fmt.Errorf("save order %d: %w", e.id, saveErr)
	}

	log.Info().Int("order_id", e.id).Float64("total", saved.Total).Msg("Order saved")
	return saved.Clone(), nil
}

// Delete removes the order once confirmed. On success the order cache is
// cleared, the editor navigates away and the list view to return to is
// returned.
func (e *OrderEditor) Delete(ctx context.Context, confirmed bool) (ViewState, error) {
	if !confirmed {
		return ViewState{}, utils.ErrConfirmationRequired
	}
	if ph := e.state.Get().Phase; ph != PhaseReady {
		return ViewState{}, e.phaseErr(ph)
	}

	opCtx, stop := e.bind(ctx)
	err := e.orders.DeleteOrder(opCtx, e.id)
	stop()
	if err != nil {
		log.Warn().Err(err).Int("order_id", e.id).Msg("Order delete failed")
		return ViewState{}, fmt.Errorf("delete order %d: %w", e.id, err)
	}

	e.orders.ClearCache()
	e.navigate()
	return DefaultViewState(), nil
}

// Cancel discards unsaved edits and leaves the editor.
func (e *OrderEditor) Cancel() {
	e.navigate()
}

// Close cancels any in-flight operation and leaves the editor. Results
// that arrive afterwards are discarded.
func (e *OrderEditor) Close() {
	e.cancel()
	e.navigate()
}

func (e *OrderEditor) navigate() {
	e.state.Update(func(s EditorState) EditorState {
		s.Phase = PhaseNavigated
		return s
	})
}

// bind derives a context from ctx that is also cancelled by Close.
func (e *OrderEditor) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(e.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (e *OrderEditor) closedErr() error {
	if e.state.Get().Phase == PhaseNavigated {
		return utils.ErrEditorClosed
	}
	return nil
}

func (e *OrderEditor) phaseErr(ph EditorPhase) error {
	switch ph {
	case PhaseSaving:
		return utils.ErrSaveInProgress
	case PhaseNavigated:
		return utils.ErrEditorClosed
	default:
		return utils.ErrEditorNotOpen
	}
}

func (e *OrderEditor) productPrice(id int) (float64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.prices[id]
	return p, ok
}

func fieldErrors(err error) []FieldError {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Fields
	}
	return nil
}
