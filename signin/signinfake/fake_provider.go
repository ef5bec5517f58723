package signinfake

import (
	"context"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/divedesk/divegate/signin"
)

var _ signin.Provider = (*FakeProvider)(nil)

// FakeProvider is an in-memory signin.Provider for tests.
type FakeProvider struct {
	mu sync.Mutex

	AuthURL     string
	Token       *oauth2.Token
	Claims      signin.Claims
	ExchangeErr error

	exchanges int
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		AuthURL: "https://provider.example/authorize",
		Token: &oauth2.Token{
			AccessToken:  "fake-access-token",
			RefreshToken: "fake-refresh-token",
			Expiry:       time.Now().Add(time.Hour),
		},
		Claims: signin.Claims{
			Subject: "user-1",
			Email:   "pat@reefdivers.example",
			Name:    "Pat Diver",
		},
	}
}

func (f *FakeProvider) AuthCodeURL(ctx context.Context, state, nonce, codeChallenge string) (string, error) {
	return f.AuthURL + "?state=" + state, nil
}

func (f *FakeProvider) Exchange(ctx context.Context, code, codeVerifier, expectedNonce string) (*oauth2.Token, signin.Claims, error) {
	f.mu.Lock()
	f.exchanges++
	f.mu.Unlock()

	if f.ExchangeErr != nil {
		return nil, signin.Claims{}, f.ExchangeErr
	}
	return f.Token, f.Claims, nil
}

func (f *FakeProvider) TokenSource(ctx context.Context, token *oauth2.Token) (oauth2.TokenSource, error) {
	return oauth2.StaticTokenSource(token), nil
}

// Exchanges reports how many code exchanges were attempted.
func (f *FakeProvider) Exchanges() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.exchanges
}
