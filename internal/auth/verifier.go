package auth

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/nikbrunner/bmsync/internal/model"
)

// TokenVerifier maps a bearer token to a user on the server side.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (model.User, error)
}

// StaticVerifier accepts a fixed token -> user ID table. Meant for
// development and tests.
type StaticVerifier map[string]string

func (v StaticVerifier) Verify(_ context.Context, token string) (model.User, error) {
	id, ok := v[token]
	if !ok || token == "" {
		return model.User{}, ErrInvalidToken
	}
	return model.User{ID: id}, nil
}

// OIDCVerifier accepts ID tokens issued to clientID by an OIDC issuer.
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer and returns a verifier for clientID.
func NewOIDCVerifier(ctx context.Context, issuer, clientID string) (*OIDCVerifier, error) {
	op, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", issuer, err)
	}
	return &OIDCVerifier{verifier: op.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, token string) (model.User, error) {
	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return model.User{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return userFromIDToken(idToken)
}

// ChainVerifier tries each verifier in order and returns the first success.
type ChainVerifier []TokenVerifier

func (c ChainVerifier) Verify(ctx context.Context, token string) (model.User, error) {
	for _, v := range c {
		if u, err := v.Verify(ctx, token); err == nil {
			return u, nil
		}
	}
	return model.User{}, ErrInvalidToken
}
