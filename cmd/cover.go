package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/signal"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plcover/internal/cover"
	"github.com/desertthunder/plcover/internal/shared"
	"github.com/desertthunder/plcover/internal/ui"
)

const qualityStep = 0.05

// CoverRender composites the selection and writes it as a JPEG file.
func (r *Runner) CoverRender(ctx context.Context, cmd *cli.Command) error {
	size := cmd.Int("size")
	if size == 0 {
		size = r.config.Cover.Size
	}

	canvas, err := r.composite(ctx, size)
	if err != nil {
		return err
	}

	blob, err := cover.Encode(canvas.Image(), cmd.Float("quality"))
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if err := blob.WriteFile(output); err != nil {
		return err
	}

	r.logger.Info("cover written", "path", output, "bytes", len(blob.Data), "quality", blob.Quality)
	return r.writePlain("%s\n", ui.Styles.OK(fmt.Sprintf("wrote %dx%d cover to %s", blob.Width, blob.Height, output)))
}

// CoverUpload composites the selection, scales it to the upload size and replaces the playlist image.
func (r *Runner) CoverUpload(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("playlist")
	quality := cmd.Float("quality")
	if quality == 0 {
		quality = r.config.Cover.Quality
	}

	canvas, err := r.composite(ctx, r.config.Cover.Size)
	if err != nil {
		return err
	}

	var img image.Image = canvas.Image()
	if up := r.config.Cover.UploadSize; up > 0 && up != canvas.Size() {
		if img, err = cover.Resize(img, up, up); err != nil {
			return err
		}
	}

	blob, err := r.encodeForUpload(img, quality, cmd.Bool("auto-quality"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	r.logger.Info("uploading cover", "playlist", playlistID, "bytes", blob.Base64Size(), "quality", blob.Quality)
	if _, err := call(ctx, r, func(ctx context.Context, token string) (struct{}, error) {
		return struct{}{}, r.gateway.UploadCover(ctx, token, playlistID, blob.Data)
	}); err != nil {
		return err
	}

	return r.writePlain("%s\n", ui.Styles.OK(fmt.Sprintf("uploaded %dx%d cover to playlist %s", blob.Width, blob.Height, playlistID)))
}

func (r *Runner) composite(ctx context.Context, size int) (*cover.Canvas, error) {
	sel, err := r.selections.Load(ctx)
	if err != nil {
		return nil, err
	}

	canvas, err := r.compositor.Composite(ctx, sel, size)
	if err != nil {
		return nil, err
	}

	for i, cell := range canvas.Cells() {
		if cell.Kind == cover.CellFailed {
			r.logger.Warn("album cover could not be loaded", "position", i+1, "album", cell.AlbumID)
		}
	}
	return canvas, nil
}

// encodeForUpload returns a JPEG whose base64 body fits cover.max_upload_bytes.
func (r *Runner) encodeForUpload(img image.Image, quality float64, auto bool) (*cover.Blob, error) {
	limit := r.config.Cover.MaxUploadBytes
	if auto {
		return cover.FitQuality(img, quality, qualityStep, limit)
	}

	blob, err := cover.Encode(img, quality)
	if err != nil {
		return nil, err
	}
	if blob.Base64Size() > limit {
		return nil, fmt.Errorf("%w: %d bytes at quality %.2f exceeds %d, retry with --auto-quality",
			shared.ErrPayloadTooLarge, blob.Base64Size(), blob.Quality, limit)
	}
	return blob, nil
}
