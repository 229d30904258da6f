package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plcover/internal/models"
	"github.com/desertthunder/plcover/internal/repositories"
	"github.com/desertthunder/plcover/internal/services"
	"github.com/desertthunder/plcover/internal/shared"
	tu "github.com/desertthunder/plcover/internal/testing"
)

type fixture struct {
	fake    *tu.FakeSpotify
	loader  *tu.FakeLoader
	kv      *repositories.MemoryKV
	config  *shared.Config
	out     *bytes.Buffer
	runner  *Runner
	browser []string
}

func newFixture(t *testing.T, configure ...func(*shared.Config)) *fixture {
	t.Helper()

	fake := tu.NewFakeSpotify(t)
	fake.Albums = []models.Album{
		{ID: "a1", Name: "Blue", Artist: "Joni Mitchell", ImageURL: "https://img.test/a1"},
		{ID: "a2", Name: "Blue Train", Artist: "John Coltrane", ImageURL: "https://img.test/a2"},
		{ID: "a3", Name: "Kind of Blue", Artist: "Miles Davis", ImageURL: "https://img.test/a3"},
		{ID: "a4", Name: "Hounds of Love", Artist: "Kate Bush", ImageURL: "https://img.test/a4"},
		{ID: "a5", Name: "Pink Moon", Artist: "Nick Drake", ImageURL: "https://img.test/a5"},
	}
	fake.Playlists = []models.Playlist{
		{ID: "p1", Name: "Sunday", Owner: "me", TrackCount: 3},
		{ID: "p2", Name: "Focus", Owner: "me", TrackCount: 0},
	}
	fake.Tracks["p1"] = []models.Album{fake.Albums[0], fake.Albums[0], fake.Albums[2]}

	loader := tu.NewFakeLoader(map[string]image.Image{
		"https://img.test/a1": tu.SolidImage(32, 32, color.RGBA{R: 255, A: 255}),
		"https://img.test/a2": tu.SolidImage(32, 32, color.RGBA{G: 255, A: 255}),
		"https://img.test/a3": tu.SolidImage(32, 32, color.RGBA{B: 255, A: 255}),
		"https://img.test/a4": tu.GradientImage(32, 32),
	})

	config := shared.DefaultConfig()
	config.Spotify.ClientID = "client-1"
	config.Spotify.AuthURL = fake.AuthURL()
	config.Spotify.TokenURL = fake.TokenURL()
	config.Spotify.APIURL = fake.APIURL()
	config.Cover.Size = 64
	config.Cover.UploadSize = 32
	for _, fn := range configure {
		fn(config)
	}

	db, err := shared.OpenDatabase(shared.MemoryDatabase)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		fake:   fake,
		loader: loader,
		kv:     repositories.NewMemoryKV(),
		config: config,
		out:    &bytes.Buffer{},
	}
	f.runner = NewRunner(RunnerOpts{
		Config:      config,
		KV:          f.kv,
		Selections:  repositories.NewSelectionRepository(db),
		Loader:      loader,
		HTTPClient:  fake.Server.Client(),
		Logger:      shared.NewLogger(io.Discard),
		Output:      f.out,
		OpenBrowser: func(u string) error { f.browser = append(f.browser, u); return nil },
	})
	return f
}

func (f *fixture) run(t *testing.T, args ...string) error {
	t.Helper()
	f.out.Reset()
	app := &cli.Command{
		Name:      "plcover",
		Writer:    io.Discard,
		ErrWriter: io.Discard,
		Commands:  f.runner.register(),
	}
	return app.Run(context.Background(), append([]string{"plcover"}, args...))
}

func (f *fixture) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	if err := f.run(t, args...); err != nil {
		t.Fatalf("plcover %s: %v", strings.Join(args, " "), err)
	}
	return f.out.String()
}

// login starts a login and completes it with a pasted redirect URL.
func (f *fixture) login(t *testing.T) {
	t.Helper()
	authURL, err := f.runner.session.BeginLogin(context.Background())
	if err != nil {
		t.Fatalf("BeginLogin: %v", err)
	}
	f.mustRun(t, "auth", "complete", "--url", redirectFor(t, authURL, "auth-code"))
}

func redirectFor(t *testing.T, authURL, code string) string {
	t.Helper()
	u, err := url.Parse(authURL)
	if err != nil {
		t.Fatalf("invalid auth url: %v", err)
	}
	q := u.Query()
	return q.Get("redirect_uri") + "?" + url.Values{"code": {code}, "state": {q.Get("state")}}.Encode()
}

func mustQuery(t *testing.T, rawURL string) url.Values {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("invalid url %q: %v", rawURL, err)
	}
	return u.Query()
}

func (f *fixture) status(t *testing.T) statusOutput {
	t.Helper()
	f.mustRun(t, "auth", "status", "--json")
	var out statusOutput
	if err := json.Unmarshal(f.out.Bytes(), &out); err != nil {
		t.Fatalf("invalid status json %q: %v", f.out.String(), err)
	}
	return out
}

func freeRedirectURI(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve port: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return "http://" + addr + "/callback"
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with nil options uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.gateway == nil || runner.session == nil || runner.compositor == nil {
				t.Error("expected gateway, session and compositor to be built")
			}
			if runner.openBrowser == nil {
				t.Error("expected browser opener to be set")
			}
		})

		t.Run("with gateway provided", func(t *testing.T) {
			gateway := services.NewSpotifyGateway(services.SpotifyOpts{ClientID: "id"})
			runner := NewRunner(RunnerOpts{Gateway: gateway})

			if runner.gateway != gateway {
				t.Error("expected gateway to be set")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, name := range []string{"setup", "auth", "albums", "playlists", "select", "cover"} {
			if !names[name] {
				t.Errorf("expected %s command to be registered", name)
			}
		}
	})
}

func TestAuthCommands(t *testing.T) {
	t.Run("status before login is unauthenticated", func(t *testing.T) {
		f := newFixture(t)

		if got := f.status(t); got.State != "unauthenticated" || got.ExpiresAt != nil {
			t.Errorf("unexpected status %+v", got)
		}
	})

	t.Run("complete with pasted url stores the session", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)

		got := f.status(t)
		if got.State != "active" || got.Expired || got.ExpiresAt == nil {
			t.Errorf("unexpected status %+v", got)
		}
		if got.ClientID != "client-1" {
			t.Errorf("expected client id to be stored, got %q", got.ClientID)
		}
	})

	t.Run("complete with a foreign state is rejected", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.runner.session.BeginLogin(context.Background()); err != nil {
			t.Fatalf("BeginLogin: %v", err)
		}

		err := f.run(t, "auth", "complete", "--url", "http://127.0.0.1:3000/callback?code=auth-code&state=forged")
		if !errors.Is(err, shared.ErrStateMismatch) {
			t.Fatalf("expected ErrStateMismatch, got %v", err)
		}
		if got := f.status(t); got.State != "pending" {
			t.Errorf("expected login to stay pending, got %s", got.State)
		}
	})

	t.Run("complete with a provider error", func(t *testing.T) {
		f := newFixture(t)

		err := f.run(t, "auth", "complete", "--url", "http://127.0.0.1:3000/callback?error=access_denied&state=s")
		if !errors.Is(err, shared.ErrTokenExchangeFailed) {
			t.Errorf("expected ErrTokenExchangeFailed, got %v", err)
		}
	})

	t.Run("pasted denial clears the pending login", func(t *testing.T) {
		f := newFixture(t)
		authURL, err := f.runner.session.BeginLogin(context.Background())
		if err != nil {
			t.Fatalf("BeginLogin: %v", err)
		}
		state := mustQuery(t, authURL).Get("state")

		err = f.run(t, "auth", "complete", "--url", "http://127.0.0.1:3000/callback?error=access_denied&state="+state)
		if !errors.Is(err, shared.ErrTokenExchangeFailed) {
			t.Fatalf("expected ErrTokenExchangeFailed, got %v", err)
		}
		if got := f.status(t); got.State != "unauthenticated" {
			t.Errorf("expected unauthenticated after denial, got %s", got.State)
		}
	})

	t.Run("denied consent on the loopback server clears the pending login", func(t *testing.T) {
		redirectURI := freeRedirectURI(t)
		f := newFixture(t, func(c *shared.Config) { c.Spotify.RedirectURI = redirectURI })

		f.runner.openBrowser = func(authURL string) error {
			q := mustQuery(t, authURL)
			denied := q.Get("redirect_uri") + "?" + url.Values{"error": {"access_denied"}, "state": {q.Get("state")}}.Encode()
			resp, err := http.Get(denied)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("callback page returned %d", resp.StatusCode)
			}
			return nil
		}

		err := f.run(t, "auth", "login", "--timeout", "5s")
		if !errors.Is(err, shared.ErrTokenExchangeFailed) {
			t.Fatalf("expected ErrTokenExchangeFailed, got %v", err)
		}
		if got := f.status(t); got.State != "unauthenticated" {
			t.Errorf("expected unauthenticated after denial, got %s", got.State)
		}
		if f.fake.TokenRequestCount() != 0 {
			t.Error("denied login must not reach the token endpoint")
		}
	})

	t.Run("login receives the redirect on the loopback server", func(t *testing.T) {
		redirectURI := freeRedirectURI(t)
		f := newFixture(t, func(c *shared.Config) { c.Spotify.RedirectURI = redirectURI })

		f.runner.openBrowser = func(authURL string) error {
			resp, err := http.Get(redirectFor(t, authURL, "auth-code"))
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				t.Errorf("callback page returned %d", resp.StatusCode)
			}
			return nil
		}

		out := f.mustRun(t, "auth", "login", "--timeout", "5s")
		if !strings.Contains(out, "logged in") {
			t.Errorf("expected success message, got %q", out)
		}
		if !strings.Contains(out, f.fake.AuthURL()) {
			t.Errorf("expected authorize url to be printed, got %q", out)
		}
		if got := f.status(t); got.State != "active" {
			t.Errorf("expected active session, got %s", got.State)
		}
	})

	t.Run("login times out without a redirect", func(t *testing.T) {
		redirectURI := freeRedirectURI(t)
		f := newFixture(t, func(c *shared.Config) { c.Spotify.RedirectURI = redirectURI })

		err := f.run(t, "auth", "login", "--no-browser", "--timeout", "50ms")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Fatalf("expected ErrTimeout, got %v", err)
		}
		if len(f.browser) != 0 {
			t.Error("expected browser not to be opened with --no-browser")
		}
		if got := f.status(t); got.State != "pending" {
			t.Errorf("timeout should keep the login open for auth complete, got %s", got.State)
		}
	})

	t.Run("login without a client id", func(t *testing.T) {
		redirectURI := freeRedirectURI(t)
		f := newFixture(t, func(c *shared.Config) {
			c.Spotify.RedirectURI = redirectURI
			c.Spotify.ClientID = ""
		})

		if err := f.run(t, "auth", "login"); !errors.Is(err, shared.ErrMissingClientID) {
			t.Errorf("expected ErrMissingClientID, got %v", err)
		}
	})

	t.Run("logout clears the session", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)

		f.mustRun(t, "auth", "logout")
		if f.kv.Len() != 0 {
			t.Errorf("expected store to be empty, has %d keys", f.kv.Len())
		}
		if err := f.run(t, "albums", "search", "blue"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestCatalogCommands(t *testing.T) {
	t.Run("search requires a session", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run(t, "albums", "search", "blue"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("search lists matches", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)

		out := f.mustRun(t, "albums", "search", "blue")
		for _, want := range []string{"Blue - Joni Mitchell", "Kind of Blue", "showing 1-3 of 3"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output %q", want, out)
			}
		}
		if strings.Contains(out, "Pink Moon") {
			t.Error("unexpected non-matching album")
		}
	})

	t.Run("search pages as json", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)

		f.mustRun(t, "albums", "search", "--limit", "2", "--json", "blue")
		var page services.Page[models.Album]
		if err := json.Unmarshal(f.out.Bytes(), &page); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if len(page.Items) != 2 || page.Total != 3 || !page.HasNext() {
			t.Errorf("unexpected page %+v", page)
		}
	})

	t.Run("search without a query", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)

		if err := f.run(t, "albums", "search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("revoked token is refreshed once", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)
		before := f.fake.TokenRequestCount()
		f.fake.Revoke()

		f.mustRun(t, "albums", "search", "pink")
		if got := f.fake.TokenRequestCount() - before; got != 1 {
			t.Errorf("expected one refresh, got %d token requests", got)
		}
		if !strings.Contains(f.out.String(), "Pink Moon") {
			t.Errorf("expected retried search results, got %q", f.out.String())
		}
	})

	t.Run("rejected refresh ends the session", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)
		f.fake.Revoke()
		f.fake.RejectRefresh = true

		if err := f.run(t, "albums", "search", "pink"); !errors.Is(err, shared.ErrSessionExpired) {
			t.Fatalf("expected ErrSessionExpired, got %v", err)
		}
		if got := f.status(t); got.State != "unauthenticated" {
			t.Errorf("expected session to be removed, got %s", got.State)
		}
	})

	t.Run("playlists list", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)

		out := f.mustRun(t, "playlists", "list")
		if !strings.Contains(out, "Sunday (3 tracks)") || !strings.Contains(out, "Focus (0 tracks)") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("playlist albums are distinct", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)

		f.mustRun(t, "playlists", "albums", "--json", "p1")
		var albums []models.Album
		if err := json.Unmarshal(f.out.Bytes(), &albums); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if len(albums) != 2 || albums[0].ID != "a1" || albums[1].ID != "a3" {
			t.Errorf("unexpected albums %+v", albums)
		}
	})

	t.Run("playlist albums as csv", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)

		out := f.mustRun(t, "playlists", "albums", "--format", "csv", "p1")
		if lines := strings.Split(strings.TrimSpace(out), "\n"); len(lines) != 3 {
			t.Errorf("expected header and two albums, got %q", out)
		}
	})

	t.Run("unknown playlist", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)

		if err := f.run(t, "playlists", "albums", "missing"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})
}

func TestSelectCommands(t *testing.T) {
	selection := func(t *testing.T, f *fixture) models.Selection {
		t.Helper()
		f.mustRun(t, "select", "show", "--json")
		var sel models.Selection
		if err := json.Unmarshal(f.out.Bytes(), &sel); err != nil {
			t.Fatalf("invalid json %q: %v", f.out.String(), err)
		}
		return sel
	}
	ids := func(sel models.Selection) string {
		var out []string
		for _, a := range sel {
			out = append(out, a.ID)
		}
		return strings.Join(out, ",")
	}

	t.Run("add looks up and appends albums", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)

		out := f.mustRun(t, "select", "add", "a2")
		if !strings.Contains(out, "Blue Train") {
			t.Errorf("expected album name in output %q", out)
		}
		f.mustRun(t, "select", "add", "a1")

		sel := selection(t, f)
		if ids(sel) != "a2,a1" {
			t.Fatalf("expected a2,a1, got %s", ids(sel))
		}
		if sel[0].Artist != "John Coltrane" || sel[0].ImageURL != "https://img.test/a2" {
			t.Errorf("expected album details to be stored, got %+v", sel[0])
		}
	})

	t.Run("add rejects duplicates", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)
		f.mustRun(t, "select", "add", "a1")

		if err := f.run(t, "select", "add", "a1"); !errors.Is(err, shared.ErrDuplicateAlbum) {
			t.Errorf("expected ErrDuplicateAlbum, got %v", err)
		}
	})

	t.Run("add to a full selection does not call the api", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)
		for _, id := range []string{"a1", "a2", "a3", "a4"} {
			f.mustRun(t, "select", "add", id)
		}
		requests := len(f.fake.APIRequests)

		if err := f.run(t, "select", "add", "a5"); !errors.Is(err, shared.ErrSelectionFull) {
			t.Fatalf("expected ErrSelectionFull, got %v", err)
		}
		if len(f.fake.APIRequests) != requests {
			t.Error("expected no api request for a full selection")
		}
	})

	t.Run("add unknown album", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)

		if err := f.run(t, "select", "add", "nope"); !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
		if len(selection(t, f)) != 0 {
			t.Error("expected selection to stay empty")
		}
	})

	t.Run("move and remove keep order", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)
		for _, id := range []string{"a1", "a2", "a3"} {
			f.mustRun(t, "select", "add", id)
		}

		f.mustRun(t, "select", "move", "3", "1")
		if got := ids(selection(t, f)); got != "a3,a1,a2" {
			t.Errorf("after move expected a3,a1,a2, got %s", got)
		}

		f.mustRun(t, "select", "remove", "a1")
		if got := ids(selection(t, f)); got != "a3,a2" {
			t.Errorf("after remove expected a3,a2, got %s", got)
		}
	})

	t.Run("move validates positions", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)
		f.mustRun(t, "select", "add", "a1")

		tests := []struct {
			name string
			args []string
			want error
		}{
			{"zero", []string{"0", "1"}, shared.ErrInvalidArgument},
			{"not a number", []string{"one", "1"}, shared.ErrInvalidArgument},
			{"past the end", []string{"1", "2"}, shared.ErrInvalidArgument},
			{"missing", []string{"1"}, shared.ErrMissingArgument},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				err := f.run(t, append([]string{"select", "move"}, tt.args...)...)
				if !errors.Is(err, tt.want) {
					t.Errorf("expected %v, got %v", tt.want, err)
				}
			})
		}
	})

	t.Run("remove unknown album", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run(t, "select", "remove", "a1"); !errors.Is(err, shared.ErrAlbumNotFound) {
			t.Errorf("expected ErrAlbumNotFound, got %v", err)
		}
	})

	t.Run("export as csv and markdown", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)
		f.mustRun(t, "select", "add", "a1")
		f.mustRun(t, "select", "add", "a3")

		out := f.mustRun(t, "select", "export", "--format", "csv")
		if !strings.HasPrefix(out, "Position,ID,Name,Artist,ImageURL\n1,a1,Blue,") {
			t.Errorf("unexpected csv %q", out)
		}

		path := filepath.Join(t.TempDir(), "selection.md")
		f.mustRun(t, "select", "export", "--format", "md", "--output", path, "--cover", "cover.jpg")
		content := tu.MustReadFile(t, path)
		for _, want := range []string{"# Cover selection", "![Cover](cover.jpg)", "2. Miles Davis - Kind of Blue"} {
			if !strings.Contains(content, want) {
				t.Errorf("expected %q in %q", want, content)
			}
		}
	})

	t.Run("export rejects unknown formats", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run(t, "select", "export", "--format", "yaml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("show and clear", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)
		f.mustRun(t, "select", "add", "a4")

		out := f.mustRun(t, "select", "show")
		if !strings.Contains(out, "Selection (1/4)") || !strings.Contains(out, "Hounds of Love") {
			t.Errorf("unexpected output %q", out)
		}

		f.mustRun(t, "select", "clear")
		if len(selection(t, f)) != 0 {
			t.Error("expected empty selection after clear")
		}
	})
}

func TestCoverCommands(t *testing.T) {
	decode := func(t *testing.T, data []byte) image.Config {
		t.Helper()
		cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("output is not a jpeg: %v", err)
		}
		return cfg
	}

	t.Run("render writes the composite", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)
		f.mustRun(t, "select", "add", "a1")
		f.mustRun(t, "select", "add", "a2")

		path := filepath.Join(t.TempDir(), "cover.jpg")
		f.mustRun(t, "cover", "render", "--output", path)
		tu.AssertFileExists(t, path)

		cfg := decode(t, []byte(tu.MustReadFile(t, path)))
		if cfg.Width != 64 || cfg.Height != 64 {
			t.Errorf("expected 64x64, got %dx%d", cfg.Width, cfg.Height)
		}
		if calls := f.loader.Calls(); len(calls) != 2 {
			t.Errorf("expected two cover loads, got %v", calls)
		}
	})

	t.Run("render an empty selection", func(t *testing.T) {
		f := newFixture(t)

		path := filepath.Join(t.TempDir(), "empty.jpg")
		f.mustRun(t, "cover", "render", "--output", path, "--size", "32")

		cfg := decode(t, []byte(tu.MustReadFile(t, path)))
		if cfg.Width != 32 {
			t.Errorf("expected --size to win, got %d", cfg.Width)
		}
	})

	t.Run("render rejects invalid quality", func(t *testing.T) {
		f := newFixture(t)

		err := f.run(t, "cover", "render", "--output", filepath.Join(t.TempDir(), "x.jpg"), "--quality", "1.5")
		if !errors.Is(err, shared.ErrInvalidQuality) {
			t.Errorf("expected ErrInvalidQuality, got %v", err)
		}
	})

	t.Run("upload scales to the upload size", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)
		for _, id := range []string{"a1", "a2", "a3", "a4"} {
			f.mustRun(t, "select", "add", id)
		}

		f.mustRun(t, "cover", "upload", "--playlist", "p1")
		data := f.fake.Upload("p1")
		if data == nil {
			t.Fatal("expected upload to reach the api")
		}
		if cfg := decode(t, data); cfg.Width != 32 || cfg.Height != 32 {
			t.Errorf("expected 32x32, got %dx%d", cfg.Width, cfg.Height)
		}
	})

	t.Run("upload retries after a revoked token", func(t *testing.T) {
		f := newFixture(t)
		f.login(t)
		f.fake.Revoke()

		f.mustRun(t, "cover", "upload", "--playlist", "p2")
		if f.fake.Upload("p2") == nil {
			t.Error("expected upload after refresh")
		}
	})

	t.Run("upload over the limit", func(t *testing.T) {
		f := newFixture(t, func(c *shared.Config) { c.Cover.MaxUploadBytes = 100 })
		f.login(t)

		for _, args := range [][]string{
			{"cover", "upload", "--playlist", "p1"},
			{"cover", "upload", "--playlist", "p1", "--auto-quality"},
		} {
			if err := f.run(t, args...); !errors.Is(err, shared.ErrPayloadTooLarge) {
				t.Errorf("%v: expected ErrPayloadTooLarge, got %v", args, err)
			}
		}
		if f.fake.Upload("p1") != nil {
			t.Error("expected nothing to be uploaded")
		}
	})

	t.Run("upload requires a session", func(t *testing.T) {
		f := newFixture(t)

		if err := f.run(t, "cover", "upload", "--playlist", "p1"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	t.Run("creates config and database", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		t.Chdir(dir)

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output, Logger: shared.NewLogger(io.Discard)})
		app := &cli.Command{Name: "plcover", Writer: io.Discard, Commands: runner.register()}

		if err := app.Run(context.Background(), []string{"plcover", "setup", "--config", path}); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		tu.AssertFileExists(t, path)
		tu.AssertFileExists(t, filepath.Join(dir, "plcover.db"))
		if !strings.Contains(output.String(), "plcover auth login") {
			t.Errorf("expected next steps, got %q", output.String())
		}
	})
}

func TestPosition(t *testing.T) {
	tests := []struct {
		arg  string
		want int
		err  error
	}{
		{"1", 1, nil},
		{" 4 ", 4, nil},
		{"5", 0, shared.ErrInvalidArgument},
		{"-1", 0, shared.ErrInvalidArgument},
		{"", 0, shared.ErrMissingArgument},
	}
	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			got, err := position(tt.arg)
			if !errors.Is(err, tt.err) || (tt.err == nil && err != nil) {
				t.Fatalf("expected error %v, got %v", tt.err, err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}
