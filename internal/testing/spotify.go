package testing

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/plcover/internal/models"
)

// FakeSpotify is an in-process stand-in for the Spotify accounts service and Web API.
//
// Tokens are issued as access-1, access-2, ... Only the most recently issued access token is accepted.
type FakeSpotify struct {
	Server *httptest.Server

	mu            sync.Mutex
	Code          string
	RefreshToken  string
	OmitRefresh   bool
	RejectRefresh bool
	ExpiresIn     int

	Albums    []models.Album
	Playlists []models.Playlist
	Tracks    map[string][]models.Album
	Uploads   map[string][]byte

	issued        int
	accessToken   string
	TokenRequests []map[string]string
	APIRequests   []string
}

// NewFakeSpotify starts a [FakeSpotify]. The server is closed when the test ends.
func NewFakeSpotify(t testing.TB) *FakeSpotify {
	t.Helper()
	f := &FakeSpotify{
		Code:         "auth-code",
		RefreshToken: "refresh-1",
		ExpiresIn:    3600,
		Tracks:       map[string][]models.Album{},
		Uploads:      map[string][]byte{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", f.token)
	mux.HandleFunc("GET /v1/search", f.authorized(f.search))
	mux.HandleFunc("GET /v1/albums/{id}", f.authorized(f.album))
	mux.HandleFunc("GET /v1/me/playlists", f.authorized(f.playlists))
	mux.HandleFunc("GET /v1/playlists/{id}/tracks", f.authorized(f.tracks))
	mux.HandleFunc("PUT /v1/playlists/{id}/images", f.authorized(f.upload))

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Server.Close)
	return f
}

// AuthURL is the fake authorize endpoint.
func (f *FakeSpotify) AuthURL() string { return f.Server.URL + "/authorize" }

// TokenURL is the fake token endpoint.
func (f *FakeSpotify) TokenURL() string { return f.Server.URL + "/api/token" }

// APIURL is the fake Web API base.
func (f *FakeSpotify) APIURL() string { return f.Server.URL + "/v1/" }

// AccessToken returns the currently valid access token.
func (f *FakeSpotify) AccessToken() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.accessToken
}

// Revoke invalidates the current access token so the next API call gets a 401.
func (f *FakeSpotify) Revoke() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accessToken = ""
}

// Upload returns the decoded bytes uploaded for a playlist.
func (f *FakeSpotify) Upload(id string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Uploads[id]
}

// TokenRequestCount returns the number of token endpoint calls.
func (f *FakeSpotify) TokenRequestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.TokenRequests)
}

func (f *FakeSpotify) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	form := map[string]string{}
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	f.TokenRequests = append(f.TokenRequests, form)

	switch form["grant_type"] {
	case "authorization_code":
		if form["code"] != f.Code || form["code_verifier"] == "" || form["client_id"] == "" {
			writeOAuthError(w, "invalid_grant")
			return
		}
	case "refresh_token":
		if f.RejectRefresh || form["refresh_token"] != f.RefreshToken {
			writeOAuthError(w, "invalid_grant")
			return
		}
	default:
		writeOAuthError(w, "unsupported_grant_type")
		return
	}

	f.issued++
	f.accessToken = "access-" + strconv.Itoa(f.issued)
	body := map[string]any{
		"access_token": f.accessToken,
		"token_type":   "Bearer",
		"expires_in":   f.ExpiresIn,
		"scope":        "playlist-read-private ugc-image-upload",
	}
	if form["grant_type"] == "authorization_code" && !f.OmitRefresh {
		body["refresh_token"] = f.RefreshToken
	}
	writeJSON(w, http.StatusOK, body)
}

func (f *FakeSpotify) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.APIRequests = append(f.APIRequests, r.Method+" "+r.URL.Path)
		valid := f.accessToken != "" && r.Header.Get("Authorization") == "Bearer "+f.accessToken
		f.mu.Unlock()

		if !valid {
			writeError(w, http.StatusUnauthorized, "The access token expired")
			return
		}
		next(w, r)
	}
}

func (f *FakeSpotify) search(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(r.URL.Query().Get("q"))
	if r.URL.Query().Get("type") != "album" {
		writeError(w, http.StatusBadRequest, "unsupported type")
		return
	}

	f.mu.Lock()
	var matches []models.Album
	for _, a := range f.Albums {
		if strings.Contains(strings.ToLower(a.Name+" "+a.Artist), query) {
			matches = append(matches, a)
		}
	}
	f.mu.Unlock()

	offset, limit := paging(r)
	items := []any{}
	for _, a := range window(matches, offset, limit) {
		items = append(items, albumJSON(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"albums": pageJSON(items, offset, limit, len(matches)),
	})
}

func (f *FakeSpotify) album(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.Albums {
		if a.ID == r.PathValue("id") {
			writeJSON(w, http.StatusOK, albumJSON(a))
			return
		}
	}
	writeError(w, http.StatusNotFound, "non existing id")
}

func (f *FakeSpotify) playlists(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	all := append([]models.Playlist(nil), f.Playlists...)
	f.mu.Unlock()

	offset, limit := paging(r)
	items := []any{}
	for _, p := range window(all, offset, limit) {
		items = append(items, map[string]any{
			"id":     p.ID,
			"name":   p.Name,
			"owner":  map[string]any{"id": "owner", "display_name": p.Owner},
			"tracks": map[string]any{"total": p.TrackCount},
			"images": []any{map[string]any{"url": p.ImageURL, "width": 640, "height": 640}},
		})
	}
	writeJSON(w, http.StatusOK, pageJSON(items, offset, limit, len(all)))
}

func (f *FakeSpotify) tracks(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	albums, ok := f.Tracks[r.PathValue("id")]
	f.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}

	offset, limit := paging(r)
	items := []any{}
	for i, a := range window(albums, offset, limit) {
		items = append(items, map[string]any{
			"added_at": "2024-01-01T00:00:00Z",
			"is_local": false,
			"track": map[string]any{
				"id":    fmt.Sprintf("track-%d", offset+i),
				"name":  fmt.Sprintf("Track %d", offset+i),
				"album": albumJSON(a),
			},
		})
	}
	writeJSON(w, http.StatusOK, pageJSON(items, offset, limit, len(albums)))
}

func (f *FakeSpotify) upload(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Content-Type") != "image/jpeg" {
		writeError(w, http.StatusBadRequest, "unexpected content type")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if len(body) > 256*1024 {
		writeError(w, http.StatusRequestEntityTooLarge, "Payload too large")
		return
	}

	data, err := base64.StdEncoding.DecodeString(string(body))
	if err != nil {
		writeError(w, http.StatusBadRequest, "body is not base64")
		return
	}

	f.mu.Lock()
	f.Uploads[r.PathValue("id")] = data
	f.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func paging(r *http.Request) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	return offset, limit
}

func window[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return nil
	}
	return items[offset:min(offset+limit, len(items))]
}

func pageJSON(items []any, offset, limit, total int) map[string]any {
	return map[string]any{
		"items":  items,
		"offset": offset,
		"limit":  limit,
		"total":  total,
	}
}

func albumJSON(a models.Album) map[string]any {
	return map[string]any{
		"id":      a.ID,
		"name":    a.Name,
		"artists": []any{map[string]any{"id": "artist-" + a.ID, "name": a.Artist}},
		"images":  []any{map[string]any{"url": a.ImageURL, "width": 640, "height": 640}},
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": message}})
}

func writeOAuthError(w http.ResponseWriter, code string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"error": code})
}
