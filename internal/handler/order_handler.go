package handler

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/order_console/internal/middleware"
	"github.com/GTDGit/order_console/internal/notice"
	"github.com/GTDGit/order_console/internal/service"
	"github.com/GTDGit/order_console/internal/utils"
)

// OrderRepository is the order data access used by the order handlers.
type OrderRepository interface {
	service.OrderStore
	service.OrderLister
}

// OrderHandler serves the order list and one-shot order operations.
type OrderHandler struct {
	orders  OrderRepository
	editors *service.EditorRegistry
}

// NewOrderHandler constructs an OrderHandler.
func NewOrderHandler(orders OrderRepository, editors *service.EditorRegistry) *OrderHandler {
	return &OrderHandler{orders: orders, editors: editors}
}

// ListOrders handles GET /v1/orders. The query string is the list view.
func (h *OrderHandler) ListOrders(c *gin.Context) {
	ctrl := service.NewOrderListController(h.orders)
	page, err := ctrl.Activate(c.Request.Context(), c.Request.URL.Query())
	if err != nil && reportLoadFailure(c, err) {
		return
	}
	writePage(c, page, loadNotice(err))
}

// ApplyViewEvent handles POST /v1/orders/view: activates the list from
// query, applies one event and returns the new query and rows.
func (h *OrderHandler) ApplyViewEvent(c *gin.Context) {
	var req struct {
		Query string            `json:"query"`
		Event service.ListEvent `json:"event" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}
	query, err := url.ParseQuery(req.Query)
	if err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid query string")
		return
	}

	ctrl := service.NewOrderListController(h.orders)
	_, loadErr := ctrl.Activate(c.Request.Context(), query)
	if loadErr != nil && reportLoadFailure(c, loadErr) {
		return
	}
	page, err := ctrl.Apply(req.Event)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	writePage(c, page, loadNotice(loadErr))
}

// reportLoadFailure hands list load failures that end the session to the
// error presenter. It reports whether the request was answered that way.
func reportLoadFailure(c *gin.Context, err error) bool {
	if !middleware.Present(err).ForceLogout {
		return false
	}
	middleware.Fail(c, err)
	return true
}

func loadNotice(err error) *notice.Notice {
	if err == nil {
		return nil
	}
	n := notice.FromError(err)
	return &n
}

func writePage(c *gin.Context, page *service.OrderPage, n *notice.Notice) {
	utils.SuccessWithPagination(c, 200, "Orders retrieved successfully", page,
		page.Page, page.View.PageSize, page.TotalItems, n)
}

// GetOrder handles GET /v1/orders/:id.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	order, err := h.orders.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	utils.Success(c, 200, "Order retrieved successfully", order)
}

// UpdateOrder handles PUT /v1/orders/:id: the whole form is applied to the
// session's editor and saved. A failed save answers with the rolled back
// editor state.
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	var form service.OrderForm
	if err := c.ShouldBindJSON(&form); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}

	ed, err := h.editors.Open(c.Request.Context(), middleware.GetToken(c), id)
	if err != nil {
		middleware.Fail(c, err, notice.OrderLoadFailed)
		return
	}
	if err := ed.ApplyForm(form); err != nil {
		middleware.Fail(c, err)
		return
	}
	saveEditor(c, ed)
}

// DeleteOrder handles DELETE /v1/orders/:id?confirm=true.
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	if !confirmed {
		middleware.Fail(c, utils.ErrConfirmationRequired)
		return
	}

	ed, err := h.editors.Open(c.Request.Context(), middleware.GetToken(c), id)
	if err != nil {
		middleware.Fail(c, err, notice.OrderLoadFailed)
		return
	}
	deleteEditor(c, ed, confirmed)
}

func saveEditor(c *gin.Context, ed *service.OrderEditor) {
	saved, err := ed.Save(c.Request.Context())
	if err != nil {
		var verr *service.ValidationError
		if errors.As(err, &verr) || errors.Is(err, utils.ErrSaveInProgress) || errors.Is(err, utils.ErrEditorClosed) {
			middleware.Fail(c, err)
			return
		}
		p := middleware.Present(err)
		n := notice.SaveFailed
		utils.ErrorWithNotice(c, p.Status, "SAVE_FAILED", "Save failed, changes reverted", ed.Snapshot(), &n)
		return
	}
	n := notice.SaveSucceeded
	utils.SuccessWithNotice(c, 200, "Order saved successfully", gin.H{
		"order":  saved,
		"editor": ed.Snapshot(),
	}, &n)
}

func deleteEditor(c *gin.Context, ed *service.OrderEditor, confirmed bool) {
	view, err := ed.Delete(c.Request.Context(), confirmed)
	if err != nil {
		if errors.Is(err, utils.ErrConfirmationRequired) || errors.Is(err, utils.ErrSaveInProgress) {
			middleware.Fail(c, err)
			return
		}
		middleware.Fail(c, err, notice.DeleteFailed)
		return
	}
	query := view.Encode()
	n := notice.OrderDeleted.WithRedirect(notice.OrdersPath + "?" + query)
	utils.SuccessWithNotice(c, 200, "Order deleted", gin.H{
		"view":  view,
		"query": query,
	}, &n)
}

func orderID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		utils.Error(c, 400, "INVALID_ID", "Invalid order id")
		return 0, false
	}
	return id, true
}
