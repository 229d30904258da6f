package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plcover/internal/formatter"
	"github.com/desertthunder/plcover/internal/models"
	"github.com/desertthunder/plcover/internal/shared"
	"github.com/desertthunder/plcover/internal/ui"
)

const selectionTitle = "Cover selection"

// SelectAdd looks the album up and appends it to the selection.
func (r *Runner) SelectAdd(ctx context.Context, cmd *cli.Command) error {
	albumID := strings.TrimSpace(cmd.StringArg("album-id"))
	if albumID == "" {
		return fmt.Errorf("%w: album-id", shared.ErrMissingArgument)
	}

	sel, err := r.selections.Load(ctx)
	if err != nil {
		return err
	}
	if len(sel) >= models.MaxSelection {
		return shared.ErrSelectionFull
	}
	if sel.Contains(albumID) {
		return fmt.Errorf("%w: %s", shared.ErrDuplicateAlbum, albumID)
	}

	album, err := call(ctx, r, func(ctx context.Context, token string) (*models.Album, error) {
		return r.gateway.Album(ctx, token, albumID)
	})
	if err != nil {
		return err
	}

	if sel, err = sel.Add(*album); err != nil {
		return err
	}
	if err := r.selections.Save(ctx, sel); err != nil {
		return err
	}

	r.logger.Debug("album selected", "id", album.ID, "position", len(sel))
	r.writePlain("%s\n", ui.Styles.OK(fmt.Sprintf("added %s - %s at position %d", album.Name, album.Artist, len(sel))))
	return r.writePlain("%s\n", ui.SelectionGrid(sel))
}

// SelectRemove drops an album, shifting the later ones up.
func (r *Runner) SelectRemove(ctx context.Context, cmd *cli.Command) error {
	albumID := strings.TrimSpace(cmd.StringArg("album-id"))
	if albumID == "" {
		return fmt.Errorf("%w: album-id", shared.ErrMissingArgument)
	}

	sel, err := r.selections.Load(ctx)
	if err != nil {
		return err
	}
	if sel, err = sel.Remove(albumID); err != nil {
		return err
	}
	if err := r.selections.Save(ctx, sel); err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Styles.OK("removed "+albumID))
	return r.writePlain("%s\n", ui.SelectionGrid(sel))
}

// SelectMove reorders the selection. Positions are 1-based.
func (r *Runner) SelectMove(ctx context.Context, cmd *cli.Command) error {
	from, err := position(cmd.StringArg("from"))
	if err != nil {
		return err
	}
	to, err := position(cmd.StringArg("to"))
	if err != nil {
		return err
	}

	sel, err := r.selections.Load(ctx)
	if err != nil {
		return err
	}
	if sel, err = sel.Move(from-1, to-1); err != nil {
		return err
	}
	if err := r.selections.Save(ctx, sel); err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Styles.OK(fmt.Sprintf("moved %d to %d", from, to)))
	return r.writePlain("%s\n", ui.SelectionGrid(sel))
}

// SelectShow prints the selection.
func (r *Runner) SelectShow(ctx context.Context, cmd *cli.Command) error {
	sel, err := r.selections.Load(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(sel, cmd.Bool("pretty"))
	}

	r.writePlain("%s\n", ui.Styles.Title(fmt.Sprintf("Selection (%d/%d)", len(sel), models.MaxSelection)))
	r.writePlain("%s\n", ui.SelectionGrid(sel))
	for i, album := range sel {
		r.writePlain("%d. %s - %s  %s\n", i+1, album.Name, album.Artist, ui.Styles.Help(album.ID))
	}
	return nil
}

// SelectExport writes the selection in a text format, to a file or stdout.
func (r *Runner) SelectExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	sel, err := r.selections.Load(ctx)
	if err != nil {
		return err
	}

	output := cmd.String("output")
	if output == "" {
		data, err := formatter.Render(format, selectionTitle, sel, cmd.String("cover"))
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	if err := formatter.WriteExport(output, format, selectionTitle, sel, cmd.String("cover")); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.OK(fmt.Sprintf("exported %d albums to %s", len(sel), output)))
}

// SelectClear empties the selection.
func (r *Runner) SelectClear(ctx context.Context, cmd *cli.Command) error {
	if err := r.selections.Clear(ctx); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.OK("selection cleared"))
}

func position(arg string) (int, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return 0, fmt.Errorf("%w: position", shared.ErrMissingArgument)
	}
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > models.MaxSelection {
		return 0, fmt.Errorf("%w: position %q must be 1-%d", shared.ErrInvalidArgument, arg, models.MaxSelection)
	}
	return n, nil
}
