package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/order_console/internal/cache"
	"github.com/GTDGit/order_console/internal/config"
	"github.com/GTDGit/order_console/internal/datasource"
	"github.com/GTDGit/order_console/internal/middleware"
	"github.com/GTDGit/order_console/internal/models"
	"github.com/GTDGit/order_console/internal/notice"
	"github.com/GTDGit/order_console/internal/repository"
	"github.com/GTDGit/order_console/internal/service"
	"github.com/GTDGit/order_console/internal/sse"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memorySource struct{}

func (memorySource) Name() string { return "memory" }

func (memorySource) Load(ctx context.Context) (*models.Dataset, error) {
	return &models.Dataset{
		Products: []models.Product{
			{ID: 1, SKU: "SKU-1", Title: "Widget", Price: 10, Stock: 5},
			{ID: 2, SKU: "SKU-2", Title: "Gadget", Price: 25.5, Stock: 2},
		},
		Orders: []models.Order{
			{ID: 1, Number: "ORD-1", CustomerName: "Acme", Status: models.OrderStatusNew,
				Items: []models.OrderItem{{ProductID: 1, Qty: 2, Price: 10}}, Total: 20,
				CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
			{ID: 2, Number: "ORD-2", CustomerName: "Globex", Status: models.OrderStatusProcessing,
				Items: []models.OrderItem{{ProductID: 2, Qty: 1, Price: 25.5}}, Total: 25.5,
				CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
		},
	}, nil
}

type failingSaves struct {
	*repository.OrderRepository
}

func (failingSaves) UpdateOrder(ctx context.Context, id int, order *models.Order) (*models.Order, error) {
	return nil, errors.New("backend down")
}

// unreachableOrders fails every list read with the given dataset status.
type unreachableOrders struct {
	*repository.OrderRepository
	status int
}

func (u unreachableOrders) GetOrders(ctx context.Context) ([]models.Order, error) {
	return nil, &datasource.TransportError{StatusCode: u.status}
}

type testApp struct {
	router *gin.Engine
	repo   *repository.OrderRepository
	token  string
}

func newTestApp(t *testing.T, wrap func(*repository.OrderRepository) OrderRepository) *testApp {
	t.Helper()
	repo := repository.NewOrderRepository(memorySource{}, nil, 0)
	var orders OrderRepository = repo
	if wrap != nil {
		orders = wrap(repo)
	}

	sessions := service.NewSessionService(cache.NewMemorySessionStore(), &config.Config{JWTSecret: "secret", SessionTTL: time.Hour})
	editors := service.NewEditorRegistry(orders)
	limiter := middleware.NewLoginRateLimiter(5, time.Minute)
	t.Cleanup(limiter.Stop)
	hub := sse.NewHub()

	auth := NewAuthHandler(sessions, limiter)
	order := NewOrderHandler(orders, editors)
	edit := NewOrderEditHandler(editors)
	product := NewProductHandler(orders)
	health := NewHealthHandler(repo, "memory", hub.ClientCount, editors.Len)

	r := gin.New()
	r.Use(middleware.ErrorPresenter(sessions))
	r.GET("/v1/health", health.GetHealth)
	r.POST("/v1/auth/login", auth.Login)
	v1 := r.Group("/v1")
	v1.Use(middleware.NewSessionMiddleware(sessions).Handle())
	{
		v1.POST("/auth/logout", auth.Logout)
		v1.GET("/auth/me", auth.Me)
		v1.GET("/products", product.GetProducts)
		v1.GET("/orders", order.ListOrders)
		v1.POST("/orders/view", order.ApplyViewEvent)
		v1.GET("/orders/:id", order.GetOrder)
		v1.PUT("/orders/:id", order.UpdateOrder)
		v1.DELETE("/orders/:id", order.DeleteOrder)
		v1.GET("/orders/:id/edit", edit.Open)
		v1.PATCH("/orders/:id/edit", edit.Update)
		v1.POST("/orders/:id/edit/items", edit.AddItem)
		v1.PATCH("/orders/:id/edit/items/:index", edit.UpdateItem)
		v1.DELETE("/orders/:id/edit/items/:index", edit.RemoveItem)
		v1.POST("/orders/:id/edit/save", edit.Save)
		v1.POST("/orders/:id/edit/cancel", edit.Cancel)
	}

	app := &testApp{router: r, repo: repo}
	var login struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	w := app.do(t, http.MethodPost, "/v1/auth/login", gin.H{"email": "jane@example.com", "password": "pw1"})
	require.Equal(t, 200, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	app.token = login.Data.Token
	return app
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

type pageResponse struct {
	Success bool              `json:"success"`
	Notice  *notice.Notice    `json:"notice"`
	Data    service.OrderPage `json:"data"`
	Meta    struct {
		Pagination struct {
			Page       int `json:"page"`
			Limit      int `json:"limit"`
			TotalItems int `json:"totalItems"`
			TotalPages int `json:"totalPages"`
		} `json:"pagination"`
	} `json:"meta"`
}

type editorResponse struct {
	Success bool           `json:"success"`
	Notice  *notice.Notice `json:"notice"`
	Data    struct {
		Editor service.EditorState `json:"editor"`
	} `json:"data"`
}

type errorResponse struct {
	Success bool           `json:"success"`
	Notice  *notice.Notice `json:"notice"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func rowIDs(rows []models.Order) []int {
	ids := make([]int, len(rows))
	for i, o := range rows {
		ids[i] = o.ID
	}
	return ids
}
