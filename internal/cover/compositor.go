package cover

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"math"
	"os"

	"github.com/charmbracelet/log"
	"golang.org/x/image/draw"

	"github.com/desertthunder/plcover/internal/models"
	"github.com/desertthunder/plcover/internal/shared"
)

// Compositor renders selections onto fresh canvases.
type Compositor struct {
	loader Loader
	logger *log.Logger
}

// NewCompositor creates a new [Compositor] that fetches covers with loader.
func NewCompositor(loader Loader, logger *log.Logger) *Compositor {
	return &Compositor{loader: loader, logger: shared.WithLogger(logger, "component", "cover")}
}

// Composite allocates a canvas of side size and renders sel onto it.
func (c *Compositor) Composite(ctx context.Context, sel models.Selection, size int) (*Canvas, error) {
	if size == 0 {
		size = DefaultSize
	}

	canvas, err := newCanvas(size, c.logger)
	if err != nil {
		return nil, err
	}
	if err := canvas.Render(ctx, c.loader, sel); err != nil {
		return nil, err
	}
	return canvas, nil
}

// Resize scales the full extent of img to w x h with bilinear filtering. img is not modified.
func Resize(img image.Image, w, h int) (*image.RGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty source image", shared.ErrInvalidArgument)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: target size %dx%d", shared.ErrInvalidArgument, w, h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst, nil
}

// Blob is an encoded JPEG.
type Blob struct {
	Data    []byte
	Quality float64
	Width   int
	Height  int
}

// Base64 returns the upload body: standard base64 with no data URL prefix.
func (b *Blob) Base64() string {
	return base64.StdEncoding.EncodeToString(b.Data)
}

// Base64Size is the length of [Blob.Base64] without encoding it.
func (b *Blob) Base64Size() int {
	return base64.StdEncoding.EncodedLen(len(b.Data))
}

// WriteFile writes the JPEG bytes to path.
func (b *Blob) WriteFile(path string) error {
	if err := os.WriteFile(path, b.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Encode encodes img as JPEG at quality in (0, 1].
func Encode(img image.Image, quality float64) (*Blob, error) {
	if math.IsNaN(quality) || quality <= 0 || quality > 1 {
		return nil, fmt.Errorf("%w: got %v", shared.ErrInvalidQuality, quality)
	}
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: image has no pixels", shared.ErrEncodingFailed)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality(quality)}); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrEncodingFailed, err)
	}

	b := img.Bounds()
	return &Blob{Data: buf.Bytes(), Quality: quality, Width: b.Dx(), Height: b.Dy()}, nil
}

// FitQuality encodes img starting at quality start and lowers it by step until the base64 payload
// is at most maxBytes. It fails with [shared.ErrPayloadTooLarge] when no quality above zero fits.
func FitQuality(img image.Image, start, step float64, maxBytes int) (*Blob, error) {
	if step <= 0 || step >= 1 {
		return nil, fmt.Errorf("%w: step %v must be in (0, 1)", shared.ErrInvalidArgument, step)
	}

	var last *Blob
	for n := 0; ; n++ {
		q := math.Round((start-float64(n)*step)*100) / 100
		if q <= 0 {
			break
		}

		blob, err := Encode(img, q)
		if err != nil {
			return nil, err
		}
		if blob.Base64Size() <= maxBytes {
			return blob, nil
		}
		last = blob
	}

	if last == nil {
		return nil, fmt.Errorf("%w: got %v", shared.ErrInvalidQuality, start)
	}
	return nil, fmt.Errorf("%w: %d bytes at quality %.2f exceeds %d", shared.ErrPayloadTooLarge, last.Base64Size(), last.Quality, maxBytes)
}

// jpegQuality maps (0, 1] onto the encoder's 1..100 scale.
func jpegQuality(q float64) int {
	return min(max(int(math.Round(q*100)), 1), 100)
}
