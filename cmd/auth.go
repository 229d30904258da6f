package main

import (
	"context"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/plcover/internal/server"
	"github.com/desertthunder/plcover/internal/session"
	"github.com/desertthunder/plcover/internal/ui"
)

// AuthLogin runs the PKCE flow: it starts the loopback receiver, opens the authorize URL and
// exchanges the code once the browser is redirected back.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	receiver, err := server.NewReceiver(r.config.Spotify.RedirectURI, r.logger)
	if err != nil {
		return err
	}
	receiver.Start()

	authURL, err := r.session.BeginLogin(ctx)
	if err != nil {
		receiver.Shutdown()
		return err
	}

	r.writePlain("Open this URL to authorize plcover:\n\n%s\n\n", authURL)
	if !cmd.Bool("no-browser") {
		if err := r.openBrowser(authURL); err != nil {
			r.logger.Warn("could not open browser", "error", err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	r.logger.Info("waiting for authorization", "redirect_uri", r.config.Spotify.RedirectURI)
	res, err := receiver.Wait(waitCtx)
	if err != nil {
		r.abandonLogin(ctx, res)
		return err
	}

	sess, err := r.session.CompleteLogin(ctx, res.Code, res.State)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.OK("logged in, token valid until "+sess.ExpiresAt.Local().Format(time.Kitchen)))
}

// AuthComplete finishes a login from a redirect URL pasted by the user.
func (r *Runner) AuthComplete(ctx context.Context, cmd *cli.Command) error {
	res, err := server.ParseRedirectURL(cmd.String("url"))
	if err != nil {
		r.abandonLogin(ctx, res)
		return err
	}

	sess, err := r.session.CompleteLogin(ctx, res.Code, res.State)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.OK("logged in, token valid until "+sess.ExpiresAt.Local().Format(time.Kitchen)))
}

// abandonLogin clears the pending login when the redirect reported a provider error.
// Timeouts and unparsable URLs carry no state and leave the login open for `auth complete`.
func (r *Runner) abandonLogin(ctx context.Context, res server.CallbackResult) {
	if res.State == "" {
		return
	}
	if err := r.session.AbandonLogin(ctx, res.State); err != nil {
		r.logger.Warn("pending login kept", "error", err)
	}
}

// AuthLogout removes the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.session.EndSession(ctx); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.OK("logged out"))
}

type statusOutput struct {
	State     string     `json:"state"`
	ClientID  string     `json:"client_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
}

// AuthStatus prints the session state without contacting the provider.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	status, err := r.session.Status(ctx)
	if err != nil {
		return err
	}

	out := statusOutput{State: status.State.String(), ClientID: status.ClientID, Expired: status.Expired}
	if status.State == session.Active {
		out.ExpiresAt = &status.ExpiresAt
	}
	if cmd.Bool("json") {
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	r.writePlain("%s\n", ui.Styles.Title("Session"))
	switch status.State {
	case session.Active:
		if status.Expired {
			r.writePlain("%s\n", ui.Styles.Warn("access token expired, it will be refreshed on the next request"))
		} else {
			r.writePlain("%s\n", ui.Styles.OK("active"))
		}
		r.writePlain("Expires: %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	case session.PendingAuth:
		r.writePlain("%s\n", ui.Styles.Warn("login in progress"))
	default:
		r.writePlain("%s\n", ui.Styles.Err("not logged in"))
	}
	if status.ClientID != "" {
		r.writePlain("Client ID: %s\n", status.ClientID)
	}
	return nil
}
