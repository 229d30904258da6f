package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/plcover/internal/shared"
)

// Receiver is a short-lived loopback server that waits for one OAuth redirect.
type Receiver struct {
	server   *http.Server
	listener net.Listener
	handler  *CallbackHandler
	logger   *log.Logger
	errs     chan error
}

// NewReceiver listens on the host and port of redirectURI and serves its path.
func NewReceiver(redirectURI string, logger *log.Logger) (*Receiver, error) {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("%w: redirect uri %q", shared.ErrInvalidConfig, redirectURI)
	}

	logger = shared.WithLogger(logger, "component", "receiver")
	handler := NewCallbackHandler(u.Path)

	router := NewBasicRouter()
	router.Use(Logging(logger))
	router.Handler(handler)
	logger.Debug("callback routes", "patterns", router.Patterns())

	ln, err := net.Listen("tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", u.Host, err)
	}

	return &Receiver{
		server:   &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second},
		listener: ln,
		handler:  handler,
		logger:   logger,
		errs:     make(chan error, 1),
	}, nil
}

// Addr returns the address the receiver is listening on.
func (r *Receiver) Addr() string {
	return r.listener.Addr().String()
}

// Start serves in the background.
func (r *Receiver) Start() {
	go func() {
		r.logger.Debug("listening for redirect", "addr", r.Addr())
		if err := r.server.Serve(r.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.errs <- err
		}
	}()
}

// Wait blocks until the redirect arrives or ctx is done, then shuts the server down.
func (r *Receiver) Wait(ctx context.Context) (CallbackResult, error) {
	defer r.Shutdown()

	select {
	case res := <-r.handler.Result():
		return res, res.Error()
	case err := <-r.errs:
		return CallbackResult{}, fmt.Errorf("callback server failed: %w", err)
	case <-ctx.Done():
		return CallbackResult{}, fmt.Errorf("%w: waiting for authorization: %w", shared.ErrTimeout, ctx.Err())
	}
}

// Shutdown stops the server, allowing in-flight responses a moment to finish.
func (r *Receiver) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.server.Shutdown(ctx); err != nil {
		r.logger.Warn("callback server shutdown", "error", err)
	}
	_ = r.listener.Close()
}
