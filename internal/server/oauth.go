package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/shared"
	"golang.org/x/oauth2"
)

const (
	callbackPath           = "/callback"
	defaultCallbackAddr    = "127.0.0.1:0"
	defaultCallbackTimeout = 2 * time.Minute
)

const successPage = `<!DOCTYPE html>
<html>
<head><title>ytsync authorized</title></head>
<body style="font-family: sans-serif; text-align: center; margin-top: 20vh">
  <h1 style="color: #ff0033">✓ YouTube access granted</h1>
  <p>You can close this window and return to the terminal.</p>
</body>
</html>
`

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	Err   error
}

// OAuthHandler receives the authorization code redirect, checks state and exchanges the code for a token.
//
// Only the first callback is processed; later requests get 400.
type OAuthHandler struct {
	config *oauth2.Config
	state  string
	result chan OAuthResult
	once   sync.Once
	mu     sync.Mutex
	hit    bool
}

// NewOAuthHandler creates a handler for config that accepts only callbacks carrying state.
func NewOAuthHandler(config *oauth2.Config, state string) *OAuthHandler {
	return &OAuthHandler{config: config, state: state, result: make(chan OAuthResult, 1)}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{callbackPath}
}

func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.hit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.hit = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.send(OAuthResult{Err: fmt.Errorf("%w: invalid state parameter", shared.ErrAuthFailed)})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.send(OAuthResult{Err: fmt.Errorf("%w: %s %s", shared.ErrAuthFailed, q.Get("error"), q.Get("error_description"))})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.send(OAuthResult{Err: fmt.Errorf("%w: token exchange failed: %v", shared.ErrAuthFailed, err)})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	h.send(OAuthResult{Token: token})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, successPage)
}

func (h *OAuthHandler) send(result OAuthResult) {
	h.once.Do(func() {
		h.result <- result
		close(h.result)
	})
}

// Result receives exactly one result and is then closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.result
}

// GenerateState returns a random URL-safe token for CSRF protection of the callback.
func GenerateState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// AuthorizeOpts configures [Authorize].
type AuthorizeOpts struct {
	// Timeout bounds the wait for the browser callback. Defaults to two minutes.
	Timeout time.Duration
	// Open is called with the consent URL. Defaults to [shared.OpenBrowser].
	Open   func(url string) error
	Logger *log.Logger
	// Out receives user-facing instructions. Defaults to [io.Discard].
	Out io.Writer
}

// Authorize runs the installed-app authorization code flow against config.
//
// A local callback server listens on the host of config.RedirectURL, or on a random loopback port when it is empty.
// Offline access is requested so the returned token carries a refresh token.
func Authorize(ctx context.Context, config *oauth2.Config, opts AuthorizeOpts) (*oauth2.Token, error) {
	if config == nil || config.ClientID == "" {
		return nil, fmt.Errorf("%w: youtube client_id is required", shared.ErrMissingCredentials)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultCallbackTimeout
	}
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	addr, err := callbackAddr(config.RedirectURL)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}

	cfg := *config
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = "http://" + ln.Addr().String() + callbackPath
	}

	state, err := GenerateState()
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	handler := NewOAuthHandler(&cfg, state)
	router := NewBasicRouter()
	router.Use(RequestLogger(opts.Logger))
	router.Handler(handler)

	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
	serverErrors := make(chan error, 1)
	go func() {
		opts.Logger.Debug("callback server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			opts.Logger.Warn("error shutting down callback server", "error", err)
		}
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintln(opts.Out, "→ Opening browser for YouTube authorization...")
	if err := opts.Open(authURL); err != nil {
		opts.Logger.Warn("failed to open browser automatically", "error", err)
		fmt.Fprintf(opts.Out, "⚠ Could not open browser automatically.\nPlease open this URL in your browser:\n%s\n\n", authURL)
	}
	fmt.Fprintf(opts.Out, "→ Waiting for authorization (%s timeout)...\n", opts.Timeout)

	timer := time.NewTimer(opts.Timeout)
	defer timer.Stop()

	var result OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("callback server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, opts.Timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Err != nil {
		return nil, result.Err
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

func callbackAddr(redirectURL string) (string, error) {
	if redirectURL == "" {
		return defaultCallbackAddr, nil
	}

	u, err := url.Parse(redirectURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid redirect_uri %q", shared.ErrInvalidConfig, redirectURL)
	}
	if u.Path != callbackPath {
		return "", fmt.Errorf("%w: redirect_uri path must be %s", shared.ErrInvalidConfig, callbackPath)
	}
	return u.Host, nil
}
