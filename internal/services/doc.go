// Package services talks to the Spotify Web API.
//
// [SpotifyGateway] is stateless with respect to credentials: the OAuth flows return tokens to the caller,
// and every data call takes the bearer token as a plain argument. Token storage and refresh belong to
// the session package.
//
// # Endpoints
//
//   - POST /api/token : code exchange and refresh via [oauth2.Config]
//   - GET /v1/search : album search
//   - GET /v1/me/playlists : current user's playlists
//   - GET /v1/playlists/{id}/tracks : playlist tracks, reduced to their albums
//   - PUT /v1/playlists/{id}/images : base64 JPEG cover upload
//
// # Error Handling
//
// Provider errors are returned as [*APIError]:
//   - status 401 matches [shared.ErrUnauthorized]
//   - every other status matches [shared.ErrAPIRequest]
//
// Transport errors (including context cancellation) are returned wrapped but otherwise unchanged.
package services
