// Package datasource loads the {products, orders} dataset the console works on.
package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/order_console/internal/models"
)

// Source loads the whole dataset in one call.
type Source interface {
	Load(ctx context.Context) (*models.Dataset, error)
	Name() string
}

// TransportError is a failed dataset fetch. StatusCode 0 means the source
// could not be reached at all.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dataset transport error (status %d): %v", e.StatusCode, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("dataset transport error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("dataset transport error (status %d)", e.StatusCode)
}

func (e *TransportError) Unwrap() error { return e.Err }

// HTTPStatus implements notice.StatusError.
func (e *TransportError) HTTPStatus() int { return e.StatusCode }

// ServerMessage implements notice.StatusError.
func (e *TransportError) ServerMessage() string { return e.Message }

// Location is a parsed DATA_SOURCE value.
type Location struct {
	Scheme string
	Host   string
	Path   string
	Raw    string
}

// ParseLocation splits a DATA_SOURCE value. A bare path is treated as file://.
func ParseLocation(raw string) (Location, error) {
	if raw == "postgres" {
		return Location{Scheme: "postgres", Raw: raw}, nil
	}
	if !strings.Contains(raw, "://") {
		return Location{Scheme: "file", Path: raw, Raw: raw}, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return Location{}, fmt.Errorf("invalid data source %q: %w", raw, err)
	}
	loc := Location{Scheme: strings.ToLower(u.Scheme), Host: u.Host, Raw: raw}
	switch loc.Scheme {
	case "file":
		// file://fixtures/data.json puts "fixtures" in Host.
		loc.Path = strings.TrimPrefix(u.Host+u.Path, "/")
		if strings.HasPrefix(raw, "file:///") {
			loc.Path = u.Path
		}
	case "s3":
		loc.Path = strings.TrimPrefix(u.Path, "/")
		if loc.Host == "" || loc.Path == "" {
			return Location{}, fmt.Errorf("invalid s3 data source %q: expected s3://bucket/key", raw)
		}
	case "http", "https":
		loc.Path = u.Path
	default:
		return Location{}, fmt.Errorf("unsupported data source scheme %q", u.Scheme)
	}
	return loc, nil
}

// decodeDataset parses a dataset document and normalizes it.
func decodeDataset(r io.Reader) (*models.Dataset, error) {
	var ds models.Dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("failed to decode dataset: %w", err)
	}
	normalize(&ds)
	return &ds, nil
}

// normalize guarantees non-nil collections, canonical statuses and totals
// that match the items.
func normalize(ds *models.Dataset) {
	if ds.Products == nil {
		ds.Products = []models.Product{}
	}
	if ds.Orders == nil {
		ds.Orders = []models.Order{}
	}
	for i := range ds.Orders {
		o := &ds.Orders[i]
		if o.Items == nil {
			o.Items = []models.OrderItem{}
		}
		if st, ok := models.ParseOrderStatus(string(o.Status)); ok {
			o.Status = st
		} else {
			log.Warn().Int("order_id", o.ID).Str("status", string(o.Status)).Msg("Order has unknown status")
		}
		total := models.ItemsTotal(o.Items)
		if total != o.Total {
			log.Debug().
				Int("order_id", o.ID).
				Float64("stored_total", o.Total).
				Float64("computed_total", total).
				Msg("Order total recomputed from items")
			o.Total = total
		}
	}
}
