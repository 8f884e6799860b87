package marketplace

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/readar/backend/internal/domain"
)

// APIError is a non-2xx answer from the marketplace API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("marketplace API: status %d", e.StatusCode)
	}
	return fmt.Sprintf("marketplace API: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps the status back to the domain sentinel so callers can use errors.Is
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusNotFound:
		return domain.ErrListingNotFound
	case http.StatusConflict:
		return domain.ErrStockConflict
	default:
		return domain.ErrAPIFailure
	}
}

// newAPIError extracts the {"error": "..."} message from body when present
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		msg = payload.Error
	}
	return &APIError{StatusCode: status, Message: msg}
}
