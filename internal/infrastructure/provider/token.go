package provider

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenProvider hands out OAuth2 client-credentials access tokens, caching
// each one until it expires or is invalidated.
type TokenProvider struct {
	cfg *clientcredentials.Config

	mu     sync.Mutex
	source oauth2.TokenSource
}

func NewTokenProvider(tokenURL, clientID, clientSecret string, scopes []string) *TokenProvider {
	return &TokenProvider{
		cfg: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			Scopes:       scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
	}
}

// Token returns a valid access token, fetching a new one when needed.
func (p *TokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.source == nil {
		// The token source keeps ctx for later refreshes, so detach it from
		// the caller's cancellation.
		p.source = oauth2.ReuseTokenSource(nil, p.cfg.TokenSource(context.WithoutCancel(ctx)))
	}
	source := p.source
	p.mu.Unlock()

	tok, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("failed to obtain provider token: %w", err)
	}
	return tok.AccessToken, nil
}

// Invalidate drops the cached token; the next call fetches a fresh one.
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	p.source = nil
	p.mu.Unlock()
}
