package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plcover/internal/formatter"
	"github.com/desertthunder/plcover/internal/models"
	"github.com/desertthunder/plcover/internal/services"
	"github.com/desertthunder/plcover/internal/shared"
	"github.com/desertthunder/plcover/internal/ui"
)

// AlbumsSearch searches the catalog for albums.
func (r *Runner) AlbumsSearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}
	offset, limit := cmd.Int("offset"), cmd.Int("limit")

	page, err := call(ctx, r, func(ctx context.Context, token string) (*services.Page[models.Album], error) {
		return r.gateway.SearchAlbums(ctx, token, query, offset, limit)
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}

	r.writePlain("%s\n", ui.Styles.Title(fmt.Sprintf("Albums matching %q", query)))
	for i, album := range page.Items {
		r.writePlain("%3d. %s - %s  %s\n", page.Offset+i+1, album.Name, album.Artist, ui.Styles.Help(album.ID))
	}
	r.writeFooter(page.Offset, len(page.Items), page.Total, page.HasNext(), page.NextOffset())
	return nil
}

// PlaylistsList lists the current user's playlists.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	offset, limit := cmd.Int("offset"), cmd.Int("limit")

	page, err := call(ctx, r, func(ctx context.Context, token string) (*services.Page[models.Playlist], error) {
		return r.gateway.Playlists(ctx, token, offset, limit)
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, cmd.Bool("pretty"))
	}

	r.writePlain("%s\n", ui.Styles.Title("Playlists"))
	for i, p := range page.Items {
		r.writePlain("%3d. %s (%d tracks)  %s\n", page.Offset+i+1, p.Name, p.TrackCount, ui.Styles.Help(p.ID))
	}
	r.writeFooter(page.Offset, len(page.Items), page.Total, page.HasNext(), page.NextOffset())
	return nil
}

// PlaylistsAlbums lists the distinct albums of a playlist's tracks.
func (r *Runner) PlaylistsAlbums(ctx context.Context, cmd *cli.Command) error {
	playlistID := strings.TrimSpace(cmd.StringArg("playlist-id"))
	if playlistID == "" {
		return fmt.Errorf("%w: playlist-id", shared.ErrMissingArgument)
	}

	albums, err := call(ctx, r, func(ctx context.Context, token string) ([]models.Album, error) {
		return r.gateway.PlaylistAlbums(ctx, token, playlistID)
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(albums, cmd.Bool("pretty"))
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	if format != formatter.Text {
		data, err := formatter.Render(format, "Albums in playlist "+playlistID, albums, "")
		if err != nil {
			return err
		}
		return r.writePlain("%s", data)
	}

	r.writePlain("%s\n", ui.Styles.Title("Albums in playlist"))
	for i, album := range albums {
		r.writePlain("%3d. %s - %s  %s\n", i+1, album.Name, album.Artist, ui.Styles.Help(album.ID))
	}
	return nil
}

func (r *Runner) writeFooter(offset, count, total int, hasNext bool, next int) {
	if count == 0 {
		r.writePlain("%s\n", ui.Styles.Warn("no results"))
		return
	}
	r.writePlain("%s\n", ui.Styles.Help(fmt.Sprintf("showing %d-%d of %d", offset+1, offset+count, total)))
	if hasNext {
		r.writePlain("%s\n", ui.Styles.Help(fmt.Sprintf("next page: --offset %d", next)))
	}
}
