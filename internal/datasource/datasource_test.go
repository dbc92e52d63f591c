package datasource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/order_console/internal/config"
	"github.com/GTDGit/order_console/internal/models"
	"github.com/GTDGit/order_console/internal/notice"
)

const sampleDataset = `{
  "products": [
    {"id": 1, "sku": "SKU-1", "title": "Widget", "price": 10, "stock": 5, "updatedAt": "2024-01-01T10:00:00Z"}
  ],
  "orders": [
    {"id": 1, "number": "ORD-1", "customerName": "Acme", "status": "new",
     "items": [{"productId": 1, "qty": 2, "price": 10}], "total": 999,
     "createdAt": "2024-01-02T10:00:00Z"}
  ]
}`

func TestHTTPSourceLoad(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleDataset))
	}))
	defer srv.Close()

	ds, err := NewHTTPSource(srv.URL+"/data.json", time.Second, true).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Orders, 1)
	require.Len(t, ds.Products, 1)
	assert.Equal(t, models.OrderStatusNew, ds.Orders[0].Status)
	// stored total disagrees with items and is recomputed
	assert.Equal(t, 20.0, ds.Orders[0].Total)
}

func TestHTTPSourceStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad fixture"}`))
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, time.Second, false).Load(context.Background())
	require.Error(t, err)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 400, te.StatusCode)
	assert.Equal(t, "bad fixture", notice.FromError(err).Message)
}

func TestHTTPSourceUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewHTTPSource(url, time.Second, false).Load(context.Background())
	require.Error(t, err)
	status, _, ok := notice.Status(err)
	assert.True(t, ok)
	assert.Equal(t, 0, status)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleDataset), 0o600))

	ds, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Acme", ds.Orders[0].CustomerName)

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.json")).Load(context.Background())
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 404, te.StatusCode)
}

func TestDecodeCanonicalisesStatus(t *testing.T) {
	const capitalised = `{"products": [], "orders": [
  {"id": 1, "customerName": "Acme", "status": "New", "items": [{"productId": 1, "qty": 1, "price": 5}]},
  {"id": 2, "customerName": "Globex", "status": "Processing", "items": []},
  {"id": 3, "customerName": "Initech", "status": "Shipped", "items": []}
]}`
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(capitalised), 0o600))

	ds, err := NewFileSource(path).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, ds.Orders, 3)
	assert.Equal(t, models.OrderStatusNew, ds.Orders[0].Status)
	assert.Equal(t, models.OrderStatusProcessing, ds.Orders[1].Status)
	// unknown statuses are kept as delivered
	assert.Equal(t, models.OrderStatus("Shipped"), ds.Orders[2].Status)
}

func TestS3SourceSignsAndDecodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/catalog/orders/data.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		auth := r.Header.Get("Authorization")
		assert.True(t, strings.HasPrefix(auth, "AWS4-HMAC-SHA256 "), auth)
		assert.Contains(t, auth, "Credential=AKIDTEST/")
		assert.Contains(t, auth, "/ap-southeast-3/s3/aws4_request")
		assert.Equal(t, emptyPayloadHash, r.Header.Get("X-Amz-Content-Sha256"))
		assert.NotEmpty(t, r.Header.Get("X-Amz-Date"))
		_, _ = w.Write([]byte(sampleDataset))
	}))
	defer srv.Close()

	cfg := &config.S3Config{
		Region:          "ap-southeast-3",
		Endpoint:        srv.URL + "/",
		AccessKeyID:     "AKIDTEST",
		SecretAccessKey: "secret",
	}
	ctx := context.Background()

	src, err := NewS3Source(ctx, cfg, "catalog", "orders/data.json", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "s3://catalog/orders/data.json", src.Name())

	ds, err := src.Load(ctx)
	require.NoError(t, err)
	require.Len(t, ds.Orders, 1)
	assert.Equal(t, "Acme", ds.Orders[0].CustomerName)
	assert.Equal(t, 20.0, ds.Orders[0].Total)

	missing, err := NewS3Source(ctx, cfg, "catalog", "absent.json", time.Second)
	require.NoError(t, err)
	_, err = missing.Load(ctx)
	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 404, te.StatusCode)
}

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation("file://fixtures/data.json")
	require.NoError(t, err)
	assert.Equal(t, "fixtures/data.json", loc.Path)

	loc, err = ParseLocation("file:///srv/data.json")
	require.NoError(t, err)
	assert.Equal(t, "/srv/data.json", loc.Path)

	loc, err = ParseLocation("s3://bucket/path/data.json")
	require.NoError(t, err)
	assert.Equal(t, "bucket", loc.Host)
	assert.Equal(t, "path/data.json", loc.Path)

	loc, err = ParseLocation("fixtures/data.json")
	require.NoError(t, err)
	assert.Equal(t, "file", loc.Scheme)

	loc, err = ParseLocation("postgres")
	require.NoError(t, err)
	assert.Equal(t, "postgres", loc.Scheme)

	_, err = ParseLocation("ftp://host/data.json")
	assert.Error(t, err)
	_, err = ParseLocation("s3://bucket")
	assert.Error(t, err)
}

func TestPostgresSourceLoad(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	db := sqlx.NewDb(mockDB, "sqlmock")
	created := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT id, sku, title, price, stock, updated_at FROM products").
		WillReturnRows(sqlmock.NewRows([]string{"id", "sku", "title", "price", "stock", "updated_at"}).
			AddRow(1, "SKU-1", "Widget", 10.0, 5, created))
	mock.ExpectQuery("SELECT id, number, customer_name, status, total, created_at FROM orders").
		WillReturnRows(sqlmock.NewRows([]string{"id", "number", "customer_name", "status", "total", "created_at"}).
			AddRow(1, "ORD-1", "Acme", "new", 20.0, created).
			AddRow(2, "ORD-2", "Globex", "processing", 0.0, created))
	mock.ExpectQuery("SELECT order_id, product_id, qty, price FROM order_items").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "product_id", "qty", "price"}).
			AddRow(1, 1, 2, 10.0))

	ds, err := NewPostgresSource(db).Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, ds.Orders, 2)
	assert.Len(t, ds.Orders[0].Items, 1)
	assert.Equal(t, 20.0, ds.Orders[0].Total)
	assert.NotNil(t, ds.Orders[1].Items)
	assert.Equal(t, models.OrderStatusProcessing, ds.Orders[1].Status)
}
