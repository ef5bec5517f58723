// Package signin is the client half of the external authentication
// provider's authorization-code flow: discovery, the redirect URL, the
// code exchange with PKCE, and transparent token refresh. The provider
// owns the credential; the shell only carries it.
package signin

import (
	"context"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/divedesk/divegate/internal/config"
	apperrors "github.com/divedesk/divegate/internal/errors"
)

// Claims are the identity claims extracted from a verified ID token.
type Claims struct {
	Subject string
	Email   string
	Name    string
}

// Provider abstracts the authentication provider for the server layer.
type Provider interface {
	AuthCodeURL(ctx context.Context, state, nonce, codeChallenge string) (string, error)
	Exchange(ctx context.Context, code, codeVerifier, expectedNonce string) (*oauth2.Token, Claims, error)
	TokenSource(ctx context.Context, token *oauth2.Token) (oauth2.TokenSource, error)
}

// OIDCProvider implements Provider against a discovered OIDC issuer.
// Discovery runs lazily on first use and the result is cached, so the
// shell can boot while the provider is unreachable.
type OIDCProvider struct {
	cfg         config.SignInConfig
	redirectURL string

	mu     sync.RWMutex
	bundle *providerBundle
}

var _ Provider = (*OIDCProvider)(nil)

type providerBundle struct {
	oidcProvider *oidc.Provider
	oauth2Config *oauth2.Config
	verifier     *oidc.IDTokenVerifier
}

// NewOIDCProvider creates a provider client. redirectURL is the absolute
// callback URL of this shell.
func NewOIDCProvider(cfg config.SignInConfig, redirectURL string) (*OIDCProvider, error) {
	if cfg == nil {
		return nil, errors.New("[NewOIDCProvider] config is required")
	}
	if redirectURL == "" {
		return nil, errors.New("[NewOIDCProvider] redirectURL is required")
	}
	return &OIDCProvider{cfg: cfg, redirectURL: redirectURL}, nil
}

func (p *OIDCProvider) getBundle(ctx context.Context) (*providerBundle, error) {
	p.mu.RLock()
	bundle := p.bundle
	p.mu.RUnlock()
	if bundle != nil {
		return bundle, nil
	}

	provider, err := oidc.NewProvider(ctx, p.cfg.GetIssuerURL())
	if err != nil {
		return nil, errors.Wrap(err, "[signin] OIDC discovery failed")
	}

	bundle = &providerBundle{
		oidcProvider: provider,
		oauth2Config: &oauth2.Config{
			ClientID:     p.cfg.GetClientID(),
			ClientSecret: p.cfg.GetClientSecret(),
			Endpoint:     provider.Endpoint(),
			RedirectURL:  p.redirectURL,
			Scopes:       p.cfg.GetScopes(),
		},
		verifier: provider.Verifier(&oidc.Config{
			ClientID: p.cfg.GetClientID(),
		}),
	}

	p.mu.Lock()
	p.bundle = bundle
	p.mu.Unlock()

	return bundle, nil
}

// AuthCodeURL builds the provider redirect for one sign-in attempt.
func (p *OIDCProvider) AuthCodeURL(ctx context.Context, state, nonce, codeChallenge string) (string, error) {
	bundle, err := p.getBundle(ctx)
	if err != nil {
		return "", err
	}
	return bundle.oauth2Config.AuthCodeURL(state,
		oidc.Nonce(nonce),
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	), nil
}

// Exchange trades the authorization code for tokens, verifies the ID token
// and its nonce, and returns the extracted claims.
func (p *OIDCProvider) Exchange(ctx context.Context, code, codeVerifier, expectedNonce string) (*oauth2.Token, Claims, error) {
	bundle, err := p.getBundle(ctx)
	if err != nil {
		return nil, Claims{}, err
	}

	oauth2Token, err := bundle.oauth2Config.Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", codeVerifier),
	)
	if err != nil {
		return nil, Claims{}, errors.Wrap(err, "[signin.Exchange] token exchange failed")
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, Claims{}, errors.New("[signin.Exchange] no ID token in response")
	}

	idToken, err := bundle.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, Claims{}, errors.Wrap(err, "[signin.Exchange] ID token verification failed")
	}

	var claims struct {
		Nonce string `json:"nonce"`
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, Claims{}, errors.Wrap(err, "[signin.Exchange] failed to extract claims")
	}

	// Validate nonce to prevent replay attacks
	if claims.Nonce != expectedNonce {
		return nil, Claims{}, apperrors.ErrNonceMismatch
	}

	return oauth2Token, Claims{
		Subject: claims.Sub,
		Email:   claims.Email,
		Name:    claims.Name,
	}, nil
}

// TokenSource returns a source that refreshes the access token
// transparently using the provider's refresh token.
func (p *OIDCProvider) TokenSource(ctx context.Context, token *oauth2.Token) (oauth2.TokenSource, error) {
	bundle, err := p.getBundle(ctx)
	if err != nil {
		return nil, err
	}
	return bundle.oauth2Config.TokenSource(ctx, token), nil
}
