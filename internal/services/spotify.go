// Spotify Web API gateway built on [spotify.Client] and [oauth2.Config]
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	spotifyendpoint "golang.org/x/oauth2/spotify"

	"github.com/desertthunder/plcover/internal/models"
	"github.com/desertthunder/plcover/internal/shared"
)

// Scopes requested at login.
var Scopes = []string{
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopeImageUpload,
}

// SpotifyOpts configures a [SpotifyGateway]. Empty URLs fall back to Spotify's production endpoints.
type SpotifyOpts struct {
	ClientID    string
	RedirectURL string
	AuthURL     string
	TokenURL    string
	// APIURL is the Web API base, ending in "/"
	APIURL     string
	HTTPClient *http.Client
	Logger     *log.Logger
}

// SpotifyGateway implements token exchange and the data endpoints plcover uses.
type SpotifyGateway struct {
	config     *oauth2.Config
	apiURL     string
	httpClient *http.Client
	logger     *log.Logger
}

// NewSpotifyGateway creates a new [SpotifyGateway].
//
// The gateway is a public PKCE client: no client secret is sent and client_id travels in the request body.
func NewSpotifyGateway(opts SpotifyOpts) *SpotifyGateway {
	endpoint := spotifyendpoint.Endpoint
	if opts.AuthURL != "" {
		endpoint.AuthURL = opts.AuthURL
	}
	if opts.TokenURL != "" {
		endpoint.TokenURL = opts.TokenURL
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.APIURL != "" && !strings.HasSuffix(opts.APIURL, "/") {
		opts.APIURL += "/"
	}

	return &SpotifyGateway{
		config: &oauth2.Config{
			ClientID:    opts.ClientID,
			RedirectURL: opts.RedirectURL,
			Scopes:      Scopes,
			Endpoint:    endpoint,
		},
		apiURL:     opts.APIURL,
		httpClient: opts.HTTPClient,
		logger:     shared.WithLogger(opts.Logger, "component", "spotify"),
	}
}

// AuthCodeURL returns the authorize URL carrying state and the S256 code challenge.
func (g *SpotifyGateway) AuthCodeURL(state, challenge string) string {
	return g.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// ExchangeCode redeems an authorization code with its PKCE verifier.
func (g *SpotifyGateway) ExchangeCode(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	tok, err := g.config.Exchange(g.oauthContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return tok, nil
}

// RefreshToken trades a refresh token for a new access token.
//
// The returned token carries the old refresh token when the provider does not rotate it.
func (g *SpotifyGateway) RefreshToken(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	tok, err := g.config.TokenSource(g.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	return tok, nil
}

// SearchAlbums searches the catalog for albums matching query.
func (g *SpotifyGateway) SearchAlbums(ctx context.Context, token, query string, offset, limit int) (*Page[models.Album], error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty search query", shared.ErrInvalidArgument)
	}
	limit = clampLimit(limit, maxLimit)

	client, status := g.client(ctx, token)
	res, err := client.Search(ctx, query, spotify.SearchTypeAlbum, spotify.Offset(offset), spotify.Limit(limit))
	if err != nil {
		return nil, g.apiError("search", status, err)
	}

	page := &Page[models.Album]{Items: []models.Album{}, Offset: offset, Limit: limit}
	if res.Albums == nil {
		return page, nil
	}

	page.Offset, page.Limit, page.Total = int(res.Albums.Offset), int(res.Albums.Limit), int(res.Albums.Total)
	for _, a := range res.Albums.Albums {
		page.Items = append(page.Items, albumFromSpotify(a))
	}
	return page, nil
}

// Album fetches a single album.
func (g *SpotifyGateway) Album(ctx context.Context, token, albumID string) (*models.Album, error) {
	if albumID == "" {
		return nil, fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}

	client, status := g.client(ctx, token)
	res, err := client.GetAlbum(ctx, spotify.ID(albumID))
	if err != nil {
		return nil, g.apiError("albums/"+albumID, status, err)
	}

	album := albumFromSpotify(res.SimpleAlbum)
	return &album, nil
}

// Playlists lists the current user's playlists.
func (g *SpotifyGateway) Playlists(ctx context.Context, token string, offset, limit int) (*Page[models.Playlist], error) {
	limit = clampLimit(limit, maxLimit)

	client, status := g.client(ctx, token)
	res, err := client.CurrentUsersPlaylists(ctx, spotify.Offset(offset), spotify.Limit(limit))
	if err != nil {
		return nil, g.apiError("me/playlists", status, err)
	}

	page := &Page[models.Playlist]{Items: []models.Playlist{}, Offset: int(res.Offset), Limit: int(res.Limit), Total: int(res.Total)}
	for _, p := range res.Playlists {
		pl := models.Playlist{
			ID:         string(p.ID),
			Name:       p.Name,
			Owner:      p.Owner.DisplayName,
			TrackCount: int(p.Tracks.Total),
		}
		if len(p.Images) > 0 {
			pl.ImageURL = p.Images[0].URL
		}
		page.Items = append(page.Items, pl)
	}
	return page, nil
}

// PlaylistTracks returns the album of each track on one page of a playlist.
//
// Items without an album (local files, episodes) are skipped, so a page may hold fewer items than its limit.
func (g *SpotifyGateway) PlaylistTracks(ctx context.Context, token, playlistID string, offset, limit int) (*Page[models.Album], error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	limit = clampLimit(limit, tracksLimit)

	client, status := g.client(ctx, token)
	res, err := client.GetPlaylistTracks(ctx, spotify.ID(playlistID), spotify.Offset(offset), spotify.Limit(limit))
	if err != nil {
		return nil, g.apiError("playlists/"+playlistID+"/tracks", status, err)
	}

	page := &Page[models.Album]{Items: []models.Album{}, Offset: int(res.Offset), Limit: int(res.Limit), Total: int(res.Total)}
	for _, item := range res.Tracks {
		if item.Track.Album.Name == "" {
			continue
		}
		page.Items = append(page.Items, albumFromSpotify(item.Track.Album))
	}
	return page, nil
}

// PlaylistAlbums walks every page of a playlist and returns its albums, unique by name, in first-seen order.
func (g *SpotifyGateway) PlaylistAlbums(ctx context.Context, token, playlistID string) ([]models.Album, error) {
	albums := []models.Album{}
	seen := map[string]bool{}

	offset := 0
	for {
		page, err := g.PlaylistTracks(ctx, token, playlistID, offset, tracksLimit)
		if err != nil {
			return nil, err
		}

		for _, a := range page.Items {
			if seen[a.Name] {
				continue
			}
			seen[a.Name] = true
			albums = append(albums, a)
		}

		if !page.HasNext() || page.Limit == 0 {
			break
		}
		offset = page.NextOffset()
		g.logger.Debug("fetching next page of playlist tracks", "playlist", playlistID, "offset", offset)
	}
	return albums, nil
}

// UploadCover replaces a playlist's cover image with a JPEG.
//
// The body is sent base64 encoded with Content-Type image/jpeg.
func (g *SpotifyGateway) UploadCover(ctx context.Context, token, playlistID string, jpeg []byte) error {
	if playlistID == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	if len(jpeg) == 0 {
		return fmt.Errorf("%w: empty image", shared.ErrInvalidArgument)
	}

	client, status := g.client(ctx, token)
	if err := client.SetPlaylistImage(ctx, spotify.ID(playlistID), bytes.NewReader(jpeg)); err != nil {
		return g.apiError("playlists/"+playlistID+"/images", status, err)
	}

	g.logger.Info("uploaded playlist cover", "playlist", playlistID, "bytes", len(jpeg))
	return nil
}

// client builds a [spotify.Client] for a single bearer token.
// The returned recorder holds the status of the most recent response.
func (g *SpotifyGateway) client(ctx context.Context, token string) (*spotify.Client, *statusRecorder) {
	base := g.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	rec := &statusRecorder{base: base}
	httpClient := oauth2.NewClient(
		context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: rec, Timeout: g.httpClient.Timeout}),
		oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
	)

	var opts []spotify.ClientOption
	if g.apiURL != "" {
		opts = append(opts, spotify.WithBaseURL(g.apiURL))
	}
	return spotify.New(httpClient, opts...), rec
}

func (g *SpotifyGateway) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
}

// apiError converts a client error into an [*APIError] when a response was received.
func (g *SpotifyGateway) apiError(endpoint string, rec *statusRecorder, err error) error {
	var spErr spotify.Error
	if errors.As(err, &spErr) && spErr.Status != 0 {
		return &APIError{Status: spErr.Status, Message: spErr.Message, Endpoint: endpoint}
	}

	if status := int(rec.status.Load()); status >= 400 {
		return &APIError{Status: status, Message: err.Error(), Endpoint: endpoint}
	}
	return fmt.Errorf("request to %s failed: %w", endpoint, err)
}

type statusRecorder struct {
	base   http.RoundTripper
	status atomic.Int32
}

func (r *statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := r.base.RoundTrip(req)
	if err == nil {
		r.status.Store(int32(resp.StatusCode))
	}
	return resp, err
}

func albumFromSpotify(a spotify.SimpleAlbum) models.Album {
	album := models.Album{ID: string(a.ID), Name: a.Name}

	artists := make([]string, 0, len(a.Artists))
	for _, artist := range a.Artists {
		artists = append(artists, artist.Name)
	}
	album.Artist = strings.Join(artists, ", ")

	if len(a.Images) > 0 {
		album.ImageURL = a.Images[0].URL
	}
	return album
}
