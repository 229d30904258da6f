package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig   = fmt.Errorf("invalid configuration")
	ErrMissingClientID = fmt.Errorf("missing spotify client id")

	// Authentication errors
	ErrNotAuthenticated    = fmt.Errorf("not authenticated")
	ErrStateMismatch       = fmt.Errorf("state mismatch")
	ErrTokenExchangeFailed = fmt.Errorf("token exchange failed")
	ErrTokenRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrSessionExpired      = fmt.Errorf("session expired")
	ErrUnauthorized        = fmt.Errorf("unauthorized")
	ErrTimeout             = fmt.Errorf("operation timed out")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPayloadTooLarge    = fmt.Errorf("payload too large")

	// Cover errors
	ErrEncodingFailed = fmt.Errorf("encoding failed")
	ErrInvalidQuality = fmt.Errorf("quality must be in (0, 1]")

	// Selection errors
	ErrSelectionFull  = fmt.Errorf("selection already has 4 albums")
	ErrDuplicateAlbum = fmt.Errorf("album already selected")
	ErrAlbumNotFound  = fmt.Errorf("album not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
