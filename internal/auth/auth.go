// Package auth obtains and refreshes the OAuth token used for the
// analytics API. Tokens come from Google's installed-app flow and are kept
// in a JSON file; refreshed tokens are written back.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/ignite/ga-deep-dive/internal/domain"
	"github.com/ignite/ga-deep-dive/internal/pkg/logger"
)

// Scope is the read-only analytics scope.
const Scope = "https://www.googleapis.com/auth/analytics.readonly"

// LoadClientConfig reads a Google client secrets file ("installed" or
// "web" application). tokenURL overrides the token endpoint when non-empty.
func LoadClientConfig(credentialsPath, tokenURL string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read client secrets %s: %w", domain.ErrAuthentication, credentialsPath, err)
	}
	cfg, err := google.ConfigFromJSON(data, Scope)
	if err != nil {
		return nil, fmt.Errorf("%w: parse client secrets: %w", domain.ErrAuthentication, err)
	}
	if tokenURL != "" {
		cfg.Endpoint.TokenURL = tokenURL
	}
	return cfg, nil
}

// Manager hands out token sources backed by a TokenStore.
type Manager struct {
	oauth2Config *oauth2.Config
	store        TokenStore
}

// NewManager creates a new authentication manager
func NewManager(cfg *oauth2.Config, store TokenStore) *Manager {
	return &Manager{oauth2Config: cfg, store: store}
}

// TokenSource returns a refreshing source seeded from the store. Every
// newly minted access token is persisted.
func (m *Manager) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := m.store.Load()
	if err != nil {
		return nil, err
	}
	if tok.RefreshToken == "" && !tok.Valid() {
		return nil, fmt.Errorf("%w: token expired and has no refresh token; run `ga-report auth login`", domain.ErrAuthentication)
	}
	ps := &persistingSource{
		base:  m.oauth2Config.TokenSource(ctx, tok),
		store: m.store,
		last:  tok.AccessToken,
	}
	return oauth2.ReuseTokenSource(tok, ps), nil
}

// HTTPClient returns an authorized client. base carries transport
// settings and is used for both API calls and token refreshes.
func (m *Manager) HTTPClient(ctx context.Context, base *http.Client) (*http.Client, error) {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	ts, err := m.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	client := oauth2.NewClient(ctx, ts)
	if base != nil {
		client.Timeout = base.Timeout
	}
	return client, nil
}

type persistingSource struct {
	base  oauth2.TokenSource
	store TokenStore
	last  string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh token: %w", domain.ErrAuthentication, err)
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := s.store.Save(tok); err != nil {
			logger.Warn("could not persist refreshed token", "err", err)
		}
	}
	return tok, nil
}

// Login runs the installed-app flow on a loopback redirect. open receives
// the consent URL; the CLI prints it and tries a browser. The resulting
// token is saved to the store.
func (m *Manager) Login(ctx context.Context, open func(url string) error) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("listen for oauth redirect: %w", err)
	}
	defer ln.Close()

	cfg := *m.oauth2Config
	cfg.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())

	state, err := generateState()
	if err != nil {
		return nil, err
	}
	verifier := oauth2.GenerateVerifier()

	type result struct {
		code string
		err  error
	}
	done := make(chan result, 1)
	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			var res result
			switch {
			case q.Get("state") != state:
				res.err = errors.New("state mismatch")
			case q.Get("error") != "":
				res.err = fmt.Errorf("consent denied: %s", q.Get("error"))
			case q.Get("code") == "":
				res.err = errors.New("missing authorization code")
			default:
				res.code = q.Get("code")
			}
			if res.err != nil {
				http.Error(w, res.err.Error(), http.StatusBadRequest)
			} else {
				fmt.Fprintln(w, "Authorized. You can close this window.")
			}
			select {
			case done <- res:
			default:
			}
		}),
	}
	go srv.Serve(ln)
	defer srv.Close()

	url := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce, oauth2.S256ChallengeOption(verifier))
	if err := open(url); err != nil {
		return nil, fmt.Errorf("open consent url: %w", err)
	}

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthentication, res.err)
	}

	tok, err := cfg.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: exchange code: %w", domain.ErrAuthentication, err)
	}
	if err := m.store.Save(tok); err != nil {
		return nil, fmt.Errorf("save token: %w", err)
	}
	logger.Info("oauth login complete", "expiry", tok.Expiry.Format(time.RFC3339))
	return tok, nil
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
