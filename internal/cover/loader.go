package cover

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/plcover/internal/shared"
)

// maxImageBytes bounds a single cover download.
const maxImageBytes = 16 << 20

// HTTPLoader downloads cover images anonymously: no cookies and no authorization header.
type HTTPLoader struct {
	client  *http.Client
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewHTTPLoader creates a new [HTTPLoader] allowing perSecond requests, unlimited when perSecond <= 0.
func NewHTTPLoader(client *http.Client, perSecond float64, logger *log.Logger) *HTTPLoader {
	if client == nil {
		client = http.DefaultClient
	}
	anonymous := *client
	anonymous.Jar = nil

	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}

	return &HTTPLoader{
		client:  &anonymous,
		limiter: rate.NewLimiter(limit, gridSide*gridSide),
		logger:  shared.WithLogger(logger, "component", "loader"),
	}
}

// Load fetches url and decodes it as JPEG or PNG.
func (l *HTTPLoader) Load(ctx context.Context, url string) (image.Image, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: album has no cover url", shared.ErrInvalidArgument)
	}
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: GET %s: status %d", shared.ErrAPIRequest, url, resp.StatusCode)
	}

	img, format, err := image.Decode(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", url, err)
	}

	l.logger.Debug("cover loaded", "url", url, "format", format, "size", img.Bounds().Size())
	return img, nil
}
