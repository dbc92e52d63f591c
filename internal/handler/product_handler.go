package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/order_console/internal/middleware"
	"github.com/GTDGit/order_console/internal/models"
	"github.com/GTDGit/order_console/internal/utils"
)

// ProductLister supplies the product catalog.
type ProductLister interface {
	GetProducts(ctx context.Context) ([]models.Product, error)
}

// ProductHandler handles product-related HTTP endpoints.
type ProductHandler struct {
	products ProductLister
}

// NewProductHandler constructs a ProductHandler.
func NewProductHandler(products ProductLister) *ProductHandler {
	return &ProductHandler{products: products}
}

// GetProducts returns the product catalog used by order line pickers.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	products, err := h.products.GetProducts(c.Request.Context())
	if err != nil {
		middleware.Fail(c, err)
		return
	}
	utils.Success(c, 200, "Products retrieved successfully", gin.H{
		"products": products,
	})
}
