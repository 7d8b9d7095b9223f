package auth

import (
	"context"
	"fmt"

	"github.com/nikbrunner/bmsync/internal/model"
)

// LocalName is the provider label for the configured local identity.
const LocalName = "local"

// LocalProvider signs in a fixed, configured identity. Sign-in state
// survives restarts through the session file.
type LocalProvider struct {
	user    model.User
	token   string
	file    sessionFile
	session *Session
}

// LocalParams holds the parameters for creating a LocalProvider.
type LocalParams struct {
	User        model.User
	Token       string // bearer token sent to a hosted server, optional
	SessionFile string
}

// NewLocalProvider creates a LocalProvider.
func NewLocalProvider(p LocalParams) *LocalProvider {
	return &LocalProvider{
		user:    p.User,
		token:   p.Token,
		file:    sessionFile{path: p.SessionFile},
		session: NewSession(),
	}
}

func (p *LocalProvider) Name() string { return LocalName }

// CurrentUser returns the user if a previous SignIn was saved.
func (p *LocalProvider) CurrentUser(_ context.Context) (*model.User, error) {
	if u := p.session.User(); u != nil {
		return u, nil
	}
	saved, err := p.file.load()
	if err != nil {
		return nil, err
	}
	if saved == nil || saved.Provider != LocalName {
		return nil, nil
	}
	p.session.restore(&saved.User)
	return p.session.User(), nil
}

func (p *LocalProvider) OnAuthStateChange(fn func(*model.User)) func() {
	return p.session.OnChange(fn)
}

// SignIn signs in the configured identity.
func (p *LocalProvider) SignIn(_ context.Context, provider string) error {
	if provider != "" && provider != LocalName {
		return fmt.Errorf("%w: %s", ErrUnknownProvider, provider)
	}
	if err := p.file.save(&savedSession{Provider: LocalName, User: p.user}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	u := p.user
	p.session.Set(&u)
	return nil
}

func (p *LocalProvider) SignOut(_ context.Context) error {
	if err := p.file.clear(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	p.session.Set(nil)
	return nil
}

// Token returns the configured static token.
func (p *LocalProvider) Token(ctx context.Context) (string, error) {
	u, err := p.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	if u == nil {
		return "", ErrNotSignedIn
	}
	return p.token, nil
}
