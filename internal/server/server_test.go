package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytsync/internal/shared"
	"golang.org/x/oauth2"
)

type staticHandler struct{ body string }

func (h staticHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) { fmt.Fprint(w, h.body) }
func (h staticHandler) Routes() []string                                 { return []string{"/a", "/b"} }

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at","refresh_token":"rt","token_type":"Bearer","expires_in":3600}`)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   "https://accounts.example.com/auth",
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

func TestBasicRouter(t *testing.T) {
	t.Run("Handle filters methods", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handle("get", "/ping", staticHandler{body: "pong"})

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
		if rec.Code != http.StatusOK || rec.Body.String() != "pong" {
			t.Errorf("GET /ping = %d %q", rec.Code, rec.Body.String())
		}

		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ping", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST /ping = %d, want 405", rec.Code)
		}
	})

	t.Run("Handler registers all routes", func(t *testing.T) {
		r := NewBasicRouter()
		r.Handler(staticHandler{body: "ok"})

		want := []string{"GET /a", "GET /b"}
		got := r.Patterns()
		if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("Patterns() = %v, want %v", got, want)
		}

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/b", nil))
		if rec.Body.String() != "ok" {
			t.Errorf("GET /b = %q", rec.Body.String())
		}
	})

	t.Run("Middleware order", func(t *testing.T) {
		var order []string
		mw := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mw("first"), mw("second"))
		r.Handle(http.MethodGet, "/x", staticHandler{})
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

		if strings.Join(order, ",") != "first,second" {
			t.Errorf("middleware order = %v", order)
		}
	})

	t.Run("RequestLogger omits query", func(t *testing.T) {
		var buf bytes.Buffer
		logger := log.New(&buf)
		logger.SetLevel(log.DebugLevel)

		r := NewBasicRouter()
		r.Use(RequestLogger(logger))
		r.Handle(http.MethodGet, "/callback", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTeapot)
		}))
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?code=secret", nil))

		out := buf.String()
		if !strings.Contains(out, "/callback") || !strings.Contains(out, "418") {
			t.Errorf("expected path and status in log, got %q", out)
		}
		if strings.Contains(out, "secret") {
			t.Errorf("query string leaked into log: %q", out)
		}
	})
}

func TestOAuthHandler(t *testing.T) {
	tokens := newTokenServer(t)

	t.Run("exchanges code", func(t *testing.T) {
		h := NewOAuthHandler(testConfig(tokens.URL), "s1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=good-code", nil))

		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "YouTube access granted") {
			t.Errorf("unexpected response %d %q", rec.Code, rec.Body.String())
		}

		result := <-h.Result()
		if result.Err != nil {
			t.Fatalf("unexpected error: %v", result.Err)
		}
		if result.Token.AccessToken != "at" || result.Token.RefreshToken != "rt" {
			t.Errorf("unexpected token %+v", result.Token)
		}
	})

	t.Run("rejects bad state", func(t *testing.T) {
		h := NewOAuthHandler(testConfig(tokens.URL), "s1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=other&code=good-code", nil))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if result := <-h.Result(); !errors.Is(result.Err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", result.Err)
		}
	})

	t.Run("reports consent error", func(t *testing.T) {
		h := NewOAuthHandler(testConfig(tokens.URL), "s1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&error=access_denied", nil))

		result := <-h.Result()
		if result.Err == nil || !strings.Contains(result.Err.Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", result.Err)
		}
	})

	t.Run("failed exchange", func(t *testing.T) {
		h := NewOAuthHandler(testConfig(tokens.URL), "s1")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=bad-code", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
		if result := <-h.Result(); !errors.Is(result.Err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", result.Err)
		}
	})

	t.Run("single use", func(t *testing.T) {
		h := NewOAuthHandler(testConfig(tokens.URL), "s1")
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=good-code", nil))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s1&code=good-code", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected second callback rejected, got %d", rec.Code)
		}

		<-h.Result()
		if _, ok := <-h.Result(); ok {
			t.Error("expected result channel closed after one value")
		}
	})
}

func TestGenerateState(t *testing.T) {
	a, err := GenerateState()
	if err != nil {
		t.Fatalf("GenerateState failed: %v", err)
	}
	b, _ := GenerateState()
	if a == "" || a == b {
		t.Errorf("expected distinct non-empty states, got %q and %q", a, b)
	}
}

func TestAuthorize(t *testing.T) {
	tokens := newTokenServer(t)

	t.Run("completes flow", func(t *testing.T) {
		var out bytes.Buffer
		open := func(authURL string) error {
			u, err := url.Parse(authURL)
			if err != nil {
				return err
			}
			q := u.Query()
			if q.Get("access_type") != "offline" {
				t.Errorf("expected offline access, got %q", q.Get("access_type"))
			}

			cb := q.Get("redirect_uri") + "?" + url.Values{"state": {q.Get("state")}, "code": {"good-code"}}.Encode()
			resp, err := http.Get(cb)
			if err != nil {
				return err
			}
			return resp.Body.Close()
		}

		token, err := Authorize(context.Background(), testConfig(tokens.URL), AuthorizeOpts{Open: open, Out: &out, Timeout: 5 * time.Second})
		if err != nil {
			t.Fatalf("Authorize failed: %v", err)
		}
		if token.RefreshToken != "rt" {
			t.Errorf("expected refresh token rt, got %q", token.RefreshToken)
		}
		if !strings.Contains(out.String(), "Waiting for authorization") {
			t.Errorf("expected instructions, got %q", out.String())
		}
	})

	t.Run("browser failure prints URL", func(t *testing.T) {
		var out bytes.Buffer
		open := func(string) error { return errors.New("no browser") }

		_, err := Authorize(context.Background(), testConfig(tokens.URL), AuthorizeOpts{Open: open, Out: &out, Timeout: 50 * time.Millisecond})
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if !strings.Contains(out.String(), "accounts.example.com/auth") {
			t.Errorf("expected consent URL in output, got %q", out.String())
		}
	})

	t.Run("context canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		open := func(string) error { cancel(); return nil }

		_, err := Authorize(ctx, testConfig(tokens.URL), AuthorizeOpts{Open: open})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("missing client id", func(t *testing.T) {
		_, err := Authorize(context.Background(), &oauth2.Config{}, AuthorizeOpts{})
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("invalid redirect", func(t *testing.T) {
		cfg := testConfig(tokens.URL)
		cfg.RedirectURL = "http://127.0.0.1:0/elsewhere"

		_, err := Authorize(context.Background(), cfg, AuthorizeOpts{})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
