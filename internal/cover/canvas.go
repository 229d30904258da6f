package cover

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/desertthunder/plcover/internal/models"
	"github.com/desertthunder/plcover/internal/shared"
)

// DefaultSize is the side length of a composited canvas.
const DefaultSize = 1280

const gridSide = 2

// Palette fills cells that have no album.
var Palette = [models.MaxSelection]string{"#17191C", "#202428", "#343a40", "#41474E"}

// Loader fetches and decodes a cover image.
type Loader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// CellKind is what a grid cell currently holds.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellLoading
	CellImage
	CellPlaceholder
	CellFailed
)

func (k CellKind) String() string {
	switch k {
	case CellLoading:
		return "loading"
	case CellImage:
		return "image"
	case CellPlaceholder:
		return "placeholder"
	case CellFailed:
		return "failed"
	default:
		return "empty"
	}
}

// Cell describes one grid cell.
type Cell struct {
	Kind CellKind
	// AlbumID is set for image, loading, and failed cells.
	AlbumID string
	// PaletteIndex is set for placeholder cells.
	PaletteIndex int
}

// Canvas is a square, versioned drawing surface.
type Canvas struct {
	mu      sync.Mutex
	dc      *gg.Context
	size    int
	version uint64
	cells   [models.MaxSelection]Cell
	logger  *log.Logger
}

// NewCanvas allocates a canvas of side size. Size must be even and at least 2.
func NewCanvas(size int) (*Canvas, error) {
	return newCanvas(size, nil)
}

func newCanvas(size int, logger *log.Logger) (*Canvas, error) {
	if size < gridSide || size%gridSide != 0 {
		return nil, fmt.Errorf("%w: canvas size %d must be even and at least %d", shared.ErrInvalidArgument, size, gridSide)
	}
	return &Canvas{
		dc:     gg.NewContext(size, size),
		size:   size,
		logger: shared.WithLogger(logger, "canvas", shared.GenerateID()),
	}, nil
}

// Size returns the side length in pixels.
func (c *Canvas) Size() int { return c.size }

// Version returns the current render version.
func (c *Canvas) Version() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.version
}

// Cells returns the state of each grid cell.
func (c *Canvas) Cells() [models.MaxSelection]Cell {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cells
}

// Image returns a copy of the current pixels.
func (c *Canvas) Image() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()

	src := c.rgba()
	out := image.NewRGBA(src.Bounds())
	copy(out.Pix, src.Pix)
	return out
}

// Render draws sel onto the canvas.
//
// Placeholder cells are painted immediately. Album cells are cleared and filled as their images load;
// a load that fails leaves its cell clear and marked [CellFailed]. Render returns once every load has
// settled, or with ctx's error when ctx is done first. sel is never modified.
func (c *Canvas) Render(ctx context.Context, loader Loader, sel models.Selection) error {
	if err := sel.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	c.version++
	version := c.version

	var pending []int
	for i := range c.cells {
		if album, ok := sel.At(i); ok {
			c.clearCell(i)
			c.cells[i] = Cell{Kind: CellLoading, AlbumID: album.ID}
			pending = append(pending, i)
			continue
		}
		c.fillPlaceholder(i)
		c.cells[i] = Cell{Kind: CellPlaceholder, PaletteIndex: i}
	}
	c.mu.Unlock()

	c.logger.Debug("render started", "version", version, "albums", len(sel))

	var wg sync.WaitGroup
	for _, i := range pending {
		album := sel[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			img, err := loader.Load(ctx, album.ImageURL)
			c.commit(version, i, album, img, err)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// commit draws a loaded image if version is still current.
func (c *Canvas) commit(version uint64, i int, album models.Album, img image.Image, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version != c.version {
		c.logger.Debug("discarding stale load", "cell", i, "album", album.ID, "version", version, "current", c.version)
		return
	}

	if err == nil && (img == nil || img.Bounds().Empty()) {
		err = fmt.Errorf("%w: empty image", shared.ErrInvalidInput)
	}
	if err != nil {
		c.logger.Warn("cover failed to load", "cell", i, "album", album.ID, "error", err)
		c.cells[i] = Cell{Kind: CellFailed, AlbumID: album.ID}
		return
	}

	c.drawCell(i, img)
	c.cells[i] = Cell{Kind: CellImage, AlbumID: album.ID}
}

func (c *Canvas) rgba() *image.RGBA {
	return c.dc.Image().(*image.RGBA)
}

func (c *Canvas) cellRect(i int) image.Rectangle {
	side := c.size / gridSide
	x, y := (i%gridSide)*side, (i/gridSide)*side
	return image.Rect(x, y, x+side, y+side)
}

// drawCell crops one pixel from each source edge and scales the rest into cell i.
func (c *Canvas) drawCell(i int, img image.Image) {
	src := img.Bounds()
	if src.Dx() > 2 && src.Dy() > 2 {
		src = src.Inset(1)
	}
	draw.BiLinear.Scale(c.rgba(), c.cellRect(i), img, src, draw.Src, nil)
}

func (c *Canvas) fillPlaceholder(i int) {
	r := c.cellRect(i)
	c.dc.SetHexColor(Palette[i])
	c.dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	c.dc.Fill()
}

func (c *Canvas) clearCell(i int) {
	draw.Draw(c.rgba(), c.cellRect(i), image.Transparent, image.Point{}, draw.Src)
}
