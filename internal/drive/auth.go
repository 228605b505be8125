package drive

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gdrive "google.golang.org/api/drive/v3"
)

// Auth handles the three-legged OAuth flow and the on-disk token
// cache. The flow itself is the standard oauth2 library flow; only
// file locations are ours.
type Auth struct {
	config    *oauth2.Config
	tokenPath string
}

// NewAuth loads the OAuth client configuration from a downloaded
// credentials.json and points the token cache at tokenPath.
func NewAuth(credentialsPath, tokenPath string) (*Auth, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	config, err := google.ConfigFromJSON(data, gdrive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return &Auth{config: config, tokenPath: tokenPath}, nil
}

// TokenSource returns a refreshing token source backed by the cached
// token. Callers without a cached token must run Login first.
func (a *Auth) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	token, err := a.loadToken()
	if err != nil {
		return nil, fmt.Errorf("no cached token, run 'chatexport login' first: %w", err)
	}
	return a.config.TokenSource(ctx, token), nil
}

// Login runs the browser consent flow with a local redirect listener
// and caches the resulting token.
func (a *Auth) Login(ctx context.Context, prompt func(authURL string)) error {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("start redirect listener: %w", err)
	}
	defer listener.Close()

	config := *a.config
	config.RedirectURL = fmt.Sprintf("http://%s/", listener.Addr())

	state := oauth2.GenerateVerifier()
	verifier := oauth2.GenerateVerifier()
	authURL := config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
	prompt(authURL)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			errCh <- fmt.Errorf("oauth state mismatch")
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			errCh <- fmt.Errorf("redirect carried no code")
			return
		}
		fmt.Fprintln(w, "Signed in. You can close this tab.")
		codeCh <- code
	})}
	go srv.Serve(listener)
	defer srv.Close()

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}

	token, err := config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}
	return a.saveToken(token)
}

func (a *Auth) loadToken() (*oauth2.Token, error) {
	data, err := os.ReadFile(a.tokenPath)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode token cache: %w", err)
	}
	return &token, nil
}

func (a *Auth) saveToken(token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(a.tokenPath), 0700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}
	// Token grants Drive access, keep it private.
	if err := os.WriteFile(a.tokenPath, data, 0600); err != nil {
		return fmt.Errorf("write token cache: %w", err)
	}
	return nil
}
