package spotify

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	DefaultRedirectURL = "http://127.0.0.1:8000/callback"
	TokenService       = "spotify"
	callbackTimeout    = 2 * time.Minute
)

var (
	ErrMissingCredentials = errors.New("missing Spotify client ID or secret")
	ErrNoToken            = errors.New("no Spotify token stored, run `mood-tools authenticate` first")
	ErrAuthTimeout        = errors.New("authentication timed out waiting for callback")
	ErrStateMismatch      = errors.New("OAuth state mismatch")
)

// TokenStore persists OAuth tokens by service name.
type TokenStore interface {
	LoadToken(service string) (*oauth2.Token, error)
	SaveToken(service string, token *oauth2.Token) error
}

type AuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Authenticator runs the authorization code flow and builds clients from
// the stored token.
type Authenticator struct {
	auth     *spotifyauth.Authenticator
	redirect *url.URL
	tokens   TokenStore
	log      *zap.Logger
	opts     []spotify.ClientOption
}

func NewAuthenticator(cfg AuthConfig, tokens TokenStore, log *zap.Logger, opts ...spotify.ClientOption) (*Authenticator, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = DefaultRedirectURL
	}
	redirect, err := url.Parse(cfg.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redirect URL %q: %w", cfg.RedirectURL, err)
	}
	if log == nil {
		log = zap.NewNop()
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithRedirectURL(cfg.RedirectURL),
		spotifyauth.WithScopes(spotifyauth.ScopeUserReadRecentlyPlayed),
	)

	return &Authenticator{
		auth:     auth,
		redirect: redirect,
		tokens:   tokens,
		log:      log,
		opts:     append([]spotify.ClientOption{spotify.WithRetry(true)}, opts...),
	}, nil
}

// Client builds an API client from the stored token. oauth2 refreshes it
// as needed; call SaveRefreshed afterwards to keep the refreshed token.
func (a *Authenticator) Client(ctx context.Context) (*spotify.Client, error) {
	token, err := a.tokens.LoadToken(TokenService)
	if err != nil {
		return nil, fmt.Errorf("loading token: %w", err)
	}
	if token == nil {
		return nil, ErrNoToken
	}
	return spotify.New(a.auth.Client(ctx, token), a.opts...), nil
}

// SaveRefreshed stores the client's current token if it changed.
func (a *Authenticator) SaveRefreshed(client *spotify.Client) error {
	current, err := client.Token()
	if err != nil {
		return fmt.Errorf("reading client token: %w", err)
	}
	stored, err := a.tokens.LoadToken(TokenService)
	if err != nil {
		return fmt.Errorf("loading token: %w", err)
	}
	if stored != nil && stored.AccessToken == current.AccessToken {
		return nil
	}
	a.log.Debug("saving refreshed spotify token")
	return a.tokens.SaveToken(TokenService, current)
}

// Login serves the redirect URL on loopback, prints the consent URL to out,
// and stores the token once the browser comes back.
func (a *Authenticator) Login(ctx context.Context, out io.Writer) error {
	state, err := generateState()
	if err != nil {
		return fmt.Errorf("generating state: %w", err)
	}

	tokenCh := make(chan *oauth2.Token, 1)
	errCh := make(chan error, 1)

	path := a.redirect.Path
	if path == "" {
		path = "/"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		a.handleCallback(w, r, state, tokenCh, errCh)
	})
	server := &http.Server{
		Addr:              a.redirect.Host,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("callback server error: %w", err)
		}
	}()

	fmt.Fprintln(out, "To authenticate, open this URL in your browser:")
	fmt.Fprintln(out, a.auth.AuthURL(state))
	fmt.Fprintln(out, "Waiting for authentication...")

	var token *oauth2.Token
	select {
	case token = <-tokenCh:
	case err = <-errCh:
	case <-time.After(callbackTimeout):
		err = ErrAuthTimeout
	case <-ctx.Done():
		err = ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	if err != nil {
		return err
	}
	if err := a.tokens.SaveToken(TokenService, token); err != nil {
		return fmt.Errorf("saving token: %w", err)
	}
	return nil
}

func (a *Authenticator) handleCallback(w http.ResponseWriter, r *http.Request, expectedState string, tokenCh chan<- *oauth2.Token, errCh chan<- error) {
	if r.URL.Query().Get("state") != expectedState {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		sendErr(errCh, ErrStateMismatch)
		return
	}
	if msg := r.URL.Query().Get("error"); msg != "" {
		http.Error(w, "Authentication failed: "+msg, http.StatusBadRequest)
		sendErr(errCh, fmt.Errorf("spotify auth error: %s", msg))
		return
	}

	token, err := a.auth.Token(r.Context(), expectedState, r)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		sendErr(errCh, fmt.Errorf("exchanging code for token: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Authenticated</title></head>
<body><p>Authenticated. You can close this window.</p></body>
</html>`)

	select {
	case tokenCh <- token:
	default:
	}
}

func sendErr(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
