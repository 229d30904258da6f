package services

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/plcover/internal/shared"
)

const (
	defaultLimit = 20
	maxLimit     = 50
	tracksLimit  = 100
)

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items  []T `json:"items"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// HasNext reports whether another page follows this one.
func (p *Page[T]) HasNext() bool {
	return p.Offset+p.Limit < p.Total
}

// NextOffset is the offset of the following page.
func (p *Page[T]) NextOffset() int {
	return p.Offset + p.Limit
}

// APIError is a non-2xx response from the Spotify API.
type APIError struct {
	Status   int
	Message  string
	Endpoint string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify %s: status %d %s", e.Endpoint, e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("spotify %s: status %d: %s", e.Endpoint, e.Status, e.Message)
}

// Is matches [shared.ErrUnauthorized] for 401 responses and [shared.ErrAPIRequest] otherwise.
func (e *APIError) Is(target error) bool {
	switch target {
	case shared.ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case shared.ErrAPIRequest:
		return e.Status != http.StatusUnauthorized
	}
	return false
}

// IsUnauthorized reports whether err is a 401 from the provider.
func IsUnauthorized(err error) bool {
	return errors.Is(err, shared.ErrUnauthorized)
}

func clampLimit(limit, upper int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > upper {
		return upper
	}
	return limit
}
