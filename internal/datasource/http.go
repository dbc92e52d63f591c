package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/GTDGit/order_console/internal/models"
)

// HTTPSource fetches the dataset document with a single GET.
type HTTPSource struct {
	httpClient *http.Client
	url        string
	debug      bool
}

// NewHTTPSource constructs an HTTPSource with the given request timeout.
func NewHTTPSource(url string, timeout time.Duration, debug bool) *HTTPSource {
	return &HTTPSource{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		debug:      debug,
	}
}

// Name identifies the source in logs and health output.
func (s *HTTPSource) Name() string { return s.url }

// Load performs the GET and decodes the document. Non-2xx responses and
// unreachable hosts are reported as *TransportError.
func (s *HTTPSource) Load(ctx context.Context) (*models.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &TransportError{StatusCode: 0, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if s.debug {
		log.Debug().
			Str("url", s.url).
			Int("status_code", resp.StatusCode).
			Int("bytes", len(body)).
			Msg("[DATASET] Incoming response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}

	return decodeDataset(bytesReader(body))
}

// errorMessage extracts {"message": "..."} from an error body, if present.
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Message
}
