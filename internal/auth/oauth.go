package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/nikbrunner/bmsync/internal/browser"
	"github.com/nikbrunner/bmsync/internal/logger"
	"github.com/nikbrunner/bmsync/internal/model"
)

// ErrStateMismatch is returned when the OAuth callback state does not match.
var ErrStateMismatch = errors.New("oauth state mismatch")

const callbackPath = "/callback"

// OAuthProvider signs in through an OpenID Connect issuer using the
// authorization code flow with PKCE and a loopback redirect.
type OAuthProvider struct {
	name         string
	issuer       string
	clientID     string
	clientSecret string
	scopes       []string
	redirectPort int
	openBrowser  func(string) error
	log          logger.Logger

	file    sessionFile
	session *Session

	mu   sync.Mutex
	oidc *oidc.Provider
}

// OAuthParams holds the parameters for creating an OAuthProvider.
type OAuthParams struct {
	Name         string // label shown on the sign-in screen, ex: "google"
	Issuer       string
	ClientID     string
	ClientSecret string
	Scopes       []string
	RedirectPort int // 0 picks a free port
	SessionFile  string
	OpenBrowser  func(string) error // defaults to browser.Open
	Logger       logger.Logger
}

// NewOAuthProvider creates an OAuthProvider. The issuer is not contacted
// until the first SignIn or token refresh.
func NewOAuthProvider(p OAuthParams) *OAuthProvider {
	if p.Name == "" {
		p.Name = "oauth"
	}
	if len(p.Scopes) == 0 {
		p.Scopes = []string{oidc.ScopeOpenID, "email", "profile"}
	}
	if p.OpenBrowser == nil {
		p.OpenBrowser = browser.Open
	}
	if p.Logger == nil {
		p.Logger = logger.Nop()
	}
	return &OAuthProvider{
		name:         p.Name,
		issuer:       p.Issuer,
		clientID:     p.ClientID,
		clientSecret: p.ClientSecret,
		scopes:       p.Scopes,
		redirectPort: p.RedirectPort,
		openBrowser:  p.OpenBrowser,
		log:          p.Logger,
		file:         sessionFile{path: p.SessionFile},
		session:      NewSession(),
	}
}

func (p *OAuthProvider) Name() string { return p.name }

// CurrentUser returns the user from memory or the saved session.
func (p *OAuthProvider) CurrentUser(_ context.Context) (*model.User, error) {
	if u := p.session.User(); u != nil {
		return u, nil
	}
	saved, err := p.file.load()
	if err != nil {
		return nil, err
	}
	if saved == nil || saved.Provider != p.name {
		return nil, nil
	}
	p.session.restore(&saved.User)
	return p.session.User(), nil
}

func (p *OAuthProvider) OnAuthStateChange(fn func(*model.User)) func() {
	return p.session.OnChange(fn)
}

// SignIn opens the issuer's consent page in the browser and waits for the
// redirect on a loopback listener, or for ctx to end.
func (p *OAuthProvider) SignIn(ctx context.Context, provider string) error {
	if provider != "" && provider != p.name {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}

	op, err := p.discover(ctx)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", p.redirectPort))
	if err != nil {
		return fmt.Errorf("listen for oauth redirect: %w", err)
	}

	conf := p.config(op, "http://"+ln.Addr().String()+callbackPath)
	state := model.GenerateUUID()
	verifier := oauth2.GenerateVerifier()

	results := make(chan callbackResult, 1)
	mux := http.NewServeMux()
	mux.Handle(callbackPath, callbackHandler(state, results))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	authURL := conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	p.log.Info("opening browser for sign-in",
		logger.String("provider", p.name),
		logger.String("redirect", conf.RedirectURL))
	if err := p.openBrowser(authURL); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}

	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return ctx.Err()
	}
	if res.err != nil {
		return res.err
	}

	tok, err := conf.Exchange(ctx, res.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("exchange code: %w", err)
	}

	user, rawID, err := p.verify(ctx, op, tok)
	if err != nil {
		return err
	}

	if err := p.file.save(&savedSession{Provider: p.name, User: user, Token: tok, IDToken: rawID}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	p.log.Info("signed in", logger.String("provider", p.name), logger.String("user_id", user.ID))
	p.session.Set(&user)
	return nil
}

func (p *OAuthProvider) SignOut(_ context.Context) error {
	if err := p.file.clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	p.session.Set(nil)
	return nil
}

// Token returns the saved ID token, refreshing it through the issuer once
// the OAuth token has expired.
func (p *OAuthProvider) Token(ctx context.Context) (string, error) {
	saved, err := p.file.load()
	if err != nil {
		return "", err
	}
	if saved == nil || saved.Provider != p.name || saved.Token == nil {
		return "", ErrNotSignedIn
	}
	if saved.Token.Valid() && saved.IDToken != "" {
		return saved.IDToken, nil
	}

	op, err := p.discover(ctx)
	if err != nil {
		return "", err
	}
	fresh, err := p.config(op, "").TokenSource(ctx, saved.Token).Token()
	if err != nil {
		return "", fmt.Errorf("%w: refresh: %v", ErrNotSignedIn, err)
	}

	saved.Token = fresh
	if raw, ok := fresh.Extra("id_token").(string); ok && raw != "" {
		saved.IDToken = raw
	}
	if err := p.file.save(saved); err != nil {
		p.log.Warn("failed to save refreshed token", logger.Error(err))
	}
	return saved.IDToken, nil
}

// discover fetches and caches the issuer's OIDC metadata.
func (p *OAuthProvider) discover(ctx context.Context) (*oidc.Provider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.oidc != nil {
		return p.oidc, nil
	}
	op, err := oidc.NewProvider(ctx, p.issuer)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", p.issuer, err)
	}
	p.oidc = op
	return op, nil
}

func (p *OAuthProvider) config(op *oidc.Provider, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		Endpoint:     op.Endpoint(),
		RedirectURL:  redirectURL,
		Scopes:       p.scopes,
	}
}

// verify checks the ID token carried by tok and maps its claims to a User.
func (p *OAuthProvider) verify(ctx context.Context, op *oidc.Provider, tok *oauth2.Token) (model.User, string, error) {
	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return model.User{}, "", errors.New("token response has no id_token")
	}

	idToken, err := op.Verifier(&oidc.Config{ClientID: p.clientID}).Verify(ctx, raw)
	if err != nil {
		return model.User{}, "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	user, err := userFromIDToken(idToken)
	if err != nil {
		return model.User{}, "", err
	}
	return user, raw, nil
}

type idClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func userFromIDToken(t *oidc.IDToken) (model.User, error) {
	var c idClaims
	if err := t.Claims(&c); err != nil {
		return model.User{}, fmt.Errorf("decode claims: %w", err)
	}
	return model.User{
		ID:        t.Subject,
		Email:     c.Email,
		Name:      c.Name,
		AvatarURL: c.Picture,
	}, nil
}

type callbackResult struct {
	code string
	err  error
}

// callbackHandler receives the authorization redirect. Only the first
// request is reported.
func callbackHandler(state string, results chan<- callbackResult) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var res callbackResult
		switch {
		case q.Get("error") != "":
			res.err = fmt.Errorf("sign-in refused: %s %s", q.Get("error"), q.Get("error_description"))
		case q.Get("state") != state:
			res.err = ErrStateMismatch
		case q.Get("code") == "":
			res.err = errors.New("sign-in redirect has no code")
		default:
			res.code = q.Get("code")
		}

		if res.err != nil {
			http.Error(w, res.err.Error(), http.StatusBadRequest)
		} else {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte("Signed in to bmsync. You can close this window.\n"))
		}

		select {
		case results <- res:
		default:
		}
	})
}
