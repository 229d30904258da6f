package server

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sync"

	"github.com/desertthunder/plcover/internal/shared"
)

// CallbackResult is what the provider sent back on the redirect.
type CallbackResult struct {
	Code  string
	State string
	err   error
}

func (c *CallbackResult) Error() error {
	return c.err
}

// ParseRedirect extracts code and state from a redirect URL's query.
//
// A provider error (?error=access_denied) or a missing code is reported as [shared.ErrTokenExchangeFailed].
func ParseRedirect(query url.Values) CallbackResult {
	res := CallbackResult{Code: query.Get("code"), State: query.Get("state")}

	if errParam := query.Get("error"); errParam != "" {
		res.err = fmt.Errorf("%w: authorization failed: %s %s", shared.ErrTokenExchangeFailed, errParam, query.Get("error_description"))
		return res
	}
	if res.Code == "" {
		res.err = fmt.Errorf("%w: redirect carried no code", shared.ErrTokenExchangeFailed)
	}
	return res
}

// ParseRedirectURL parses a full redirect URL, as pasted by a user, with [ParseRedirect].
func ParseRedirectURL(raw string) (CallbackResult, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return CallbackResult{}, fmt.Errorf("%w: redirect url: %w", shared.ErrInvalidArgument, err)
	}
	res := ParseRedirect(u.Query())
	return res, res.err
}

// CallbackHandler receives the OAuth redirect and delivers one [CallbackResult].
type CallbackHandler struct {
	path        string
	resultChan  chan CallbackResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewCallbackHandler creates a new handler serving path.
func NewCallbackHandler(path string) *CallbackHandler {
	if path == "" {
		path = "/callback"
	}
	return &CallbackHandler{path: path, resultChan: make(chan CallbackResult, 1)}
}

// Routes returns the HTTP routes this handler serves. Only GET can deliver the redirect.
func (h *CallbackHandler) Routes() []string {
	return []string{http.MethodGet + " " + h.path}
}

// ServeHTTP handles the redirect request.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	res := ParseRedirect(r.URL.Query())
	h.Send(res)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if res.err != nil {
		w.WriteHeader(http.StatusBadRequest)
		_ = page.Execute(w, pageData{Title: "Authorization Failed", Message: "Return to the terminal for details.", Class: "fail"})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = page.Execute(w, pageData{Title: "Authorization Received", Message: "You can close this window and return to the terminal.", Class: "ok"})
}

// Send sends the result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel. It receives exactly one result and is then closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

type pageData struct {
	Title   string
	Message string
	Class   string
}

var page = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #17191C; }
        .container { text-align: center; background: #202428; padding: 2rem; border-radius: 8px; }
        h1 { margin: 0 0 1rem 0; }
        .ok { color: #1DB954; }
        .fail { color: #E22134; }
        p { color: #ADB5BD; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1 class="{{.Class}}">{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))
