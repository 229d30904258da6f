package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plcover/internal/cover"
	"github.com/desertthunder/plcover/internal/models"
	"github.com/desertthunder/plcover/internal/repositories"
	"github.com/desertthunder/plcover/internal/services"
	"github.com/desertthunder/plcover/internal/session"
	"github.com/desertthunder/plcover/internal/shared"
)

// Gateway is the provider surface the commands use.
type Gateway interface {
	session.Authenticator
	SearchAlbums(ctx context.Context, token, query string, offset, limit int) (*services.Page[models.Album], error)
	Album(ctx context.Context, token, albumID string) (*models.Album, error)
	Playlists(ctx context.Context, token string, offset, limit int) (*services.Page[models.Playlist], error)
	PlaylistAlbums(ctx context.Context, token, playlistID string) ([]models.Album, error)
	UploadCover(ctx context.Context, token, playlistID string, jpeg []byte) error
}

// Selections persists the current album selection.
type Selections interface {
	Load(ctx context.Context) (models.Selection, error)
	Save(ctx context.Context, sel models.Selection) error
	Clear(ctx context.Context) error
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	gateway     Gateway
	session     *session.Manager
	selections  Selections
	compositor  *cover.Compositor
	logger      *log.Logger
	output      io.Writer
	openBrowser func(url string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	KV         repositories.KV
	Selections Selections
	Gateway    Gateway
	// Loader defaults to a rate limited [cover.HTTPLoader]
	Loader      cover.Loader
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	OpenBrowser func(url string) error
	Now         func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.KV == nil {
		opts.KV = repositories.NewMemoryKV()
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if opts.Gateway == nil {
		opts.Gateway = services.NewSpotifyGateway(services.SpotifyOpts{
			ClientID:    opts.Config.Spotify.ClientID,
			RedirectURL: opts.Config.Spotify.RedirectURI,
			AuthURL:     opts.Config.Spotify.AuthURL,
			TokenURL:    opts.Config.Spotify.TokenURL,
			APIURL:      opts.Config.Spotify.APIURL,
			HTTPClient:  opts.HTTPClient,
			Logger:      opts.Logger,
		})
	}
	if opts.Loader == nil {
		opts.Loader = cover.NewHTTPLoader(opts.HTTPClient, opts.Config.Cover.FetchRate, opts.Logger)
	}

	manager := session.NewManager(session.ManagerOpts{
		Store:    session.NewTokenStore(opts.KV),
		Auth:     opts.Gateway,
		ClientID: opts.Config.Spotify.ClientID,
		Logger:   opts.Logger,
		Now:      opts.Now,
	})

	return &Runner{
		config:      opts.Config,
		gateway:     opts.Gateway,
		session:     manager,
		selections:  opts.Selections,
		compositor:  cover.NewCompositor(opts.Loader, opts.Logger),
		logger:      opts.Logger,
		output:      opts.Output,
		openBrowser: opts.OpenBrowser,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, albumsCommand, playlistsCommand, selectCommand, coverCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// call runs op through the session so that a rejected access token is refreshed once.
func call[T any](ctx context.Context, r *Runner, op func(ctx context.Context, token string) (T, error)) (T, error) {
	return session.Call(ctx, r.session, op)
}

var _ Gateway = (*services.SpotifyGateway)(nil)

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
