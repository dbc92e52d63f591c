package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/order_console/internal/middleware"
	"github.com/GTDGit/order_console/internal/notice"
	"github.com/GTDGit/order_console/internal/service"
	"github.com/GTDGit/order_console/internal/utils"
)

// OrderEditHandler drives a session's order editor step by step.
type OrderEditHandler struct {
	editors *service.EditorRegistry
}

// NewOrderEditHandler constructs an OrderEditHandler.
func NewOrderEditHandler(editors *service.EditorRegistry) *OrderEditHandler {
	return &OrderEditHandler{editors: editors}
}

// Open handles GET /v1/orders/:id/edit. The editor is loaded on first use.
func (h *OrderEditHandler) Open(c *gin.Context) {
	id, ok := orderID(c)
	if !ok {
		return
	}
	ed, err := h.editors.Open(c.Request.Context(), middleware.GetToken(c), id)
	if err != nil {
		middleware.Fail(c, err, notice.OrderLoadFailed)
		return
	}
	utils.Success(c, 200, "Order editor ready", gin.H{
		"editor":   ed.Snapshot(),
		"products": ed.Products(),
	})
}

// Update handles PATCH /v1/orders/:id/edit.
func (h *OrderEditHandler) Update(c *gin.Context) {
	var req struct {
		CustomerName *string `json:"customerName"`
		Status       *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}
	h.withEditor(c, func(ed *service.OrderEditor) error {
		if req.CustomerName != nil {
			if err := ed.SetCustomerName(*req.CustomerName); err != nil {
				return err
			}
		}
		if req.Status != nil {
			return ed.SetStatus(*req.Status)
		}
		return nil
	})
}

// AddItem handles POST /v1/orders/:id/edit/items.
func (h *OrderEditHandler) AddItem(c *gin.Context) {
	h.withEditor(c, func(ed *service.OrderEditor) error {
		return ed.AddItem()
	})
}

// UpdateItem handles PATCH /v1/orders/:id/edit/items/:index.
func (h *OrderEditHandler) UpdateItem(c *gin.Context) {
	index, ok := itemIndex(c)
	if !ok {
		return
	}
	var patch service.ItemPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid request body")
		return
	}
	h.withEditor(c, func(ed *service.OrderEditor) error {
		return ed.SetItem(index, patch)
	})
}

// RemoveItem handles DELETE /v1/orders/:id/edit/items/:index.
func (h *OrderEditHandler) RemoveItem(c *gin.Context) {
	index, ok := itemIndex(c)
	if !ok {
		return
	}
	h.withEditor(c, func(ed *service.OrderEditor) error {
		return ed.RemoveItem(index)
	})
}

// Save handles POST /v1/orders/:id/edit/save.
func (h *OrderEditHandler) Save(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	saveEditor(c, ed)
}

// Cancel handles POST /v1/orders/:id/edit/cancel.
func (h *OrderEditHandler) Cancel(c *gin.Context) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	ed.Cancel()
	utils.Success(c, 200, "Edits discarded", gin.H{
		"redirect": notice.OrdersPath,
	})
}

// withEditor applies fn to the open editor and answers with its state.
func (h *OrderEditHandler) withEditor(c *gin.Context, fn func(*service.OrderEditor) error) {
	ed, ok := h.editor(c)
	if !ok {
		return
	}
	if err := fn(ed); err != nil {
		middleware.Fail(c, err)
		return
	}
	utils.Success(c, 200, "Order editor updated", gin.H{
		"editor": ed.Snapshot(),
	})
}

func (h *OrderEditHandler) editor(c *gin.Context) (*service.OrderEditor, bool) {
	id, ok := orderID(c)
	if !ok {
		return nil, false
	}
	ed, err := h.editors.Get(middleware.GetToken(c), id)
	if err != nil {
		middleware.Fail(c, err)
		return nil, false
	}
	return ed, true
}

func itemIndex(c *gin.Context) (int, bool) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		utils.Error(c, 400, "INVALID_ITEM_INDEX", "Invalid item index")
		return 0, false
	}
	return index, true
}
