package remote

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// OAuth2TokenSource adapts an oauth2.TokenSource to this package's
// TokenSource contract, refreshing silently via the wrapped source when
// the current token has expired. Real deployments obtain the initial
// refresh token out of band (device code flow, client credentials, etc.);
// this type only needs a config and a starting token to keep it current.
type OAuth2TokenSource struct {
	inner oauth2.TokenSource
}

// NewOAuth2TokenSource builds a TokenSource that refreshes refreshToken
// against tokenURL using the OAuth2 refresh-token grant.
func NewOAuth2TokenSource(ctx context.Context, clientID, clientSecret, tokenURL, refreshToken string) *OAuth2TokenSource {
	cfg := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
	}

	seed := &oauth2.Token{RefreshToken: refreshToken}

	return &OAuth2TokenSource{inner: cfg.TokenSource(ctx, seed)}
}

// Token returns the current access token, refreshing it first if expired.
func (s *OAuth2TokenSource) Token(ctx context.Context) (string, error) {
	tok, err := s.inner.Token()
	if err != nil {
		return "", fmt.Errorf("remote: refreshing oauth2 token: %w", err)
	}

	return tok.AccessToken, nil
}
