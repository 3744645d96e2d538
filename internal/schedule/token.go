// Package schedule is the client for the remote scheduling service:
// service/staff/slot queries, appointment mutations, and the per-session
// credential cache in front of the identity provider.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slotline/slotline/internal/models"
	"golang.org/x/oauth2"
)

// TokenReuseWindow is deliberately shorter than the provider token's real
// lifetime so a cached token is never used close to expiry.
const TokenReuseWindow = 50 * time.Minute

// TokenSource resolves access tokens for the scheduling service, reusing
// the token cached on the session while it is inside the reuse window and
// performing a refresh-token exchange otherwise.
type TokenSource struct {
	conf         *oauth2.Config
	refreshToken string
	now          func() time.Time
}

// NewTokenSource builds a token source for the given identity-provider
// credentials.
func NewTokenSource(clientID, clientSecret, tokenURL, refreshToken string) *TokenSource {
	return &TokenSource{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		},
		refreshToken: refreshToken,
		now:          time.Now,
	}
}

// Token returns a valid access token, refreshing and caching it on the
// session when the cached one is missing or too old. A failed refresh is a
// hard error: callers must not issue provider calls without a token.
func (t *TokenSource) Token(ctx context.Context, sess *models.Session) (string, error) {
	if sess.Credential.AccessToken != "" && t.now().Sub(sess.Credential.IssuedAt) < TokenReuseWindow {
		return sess.Credential.AccessToken, nil
	}

	slog.Debug("TokenSource.Token: refreshing access token", "sessionID", sess.ID)
	tok, err := t.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: t.refreshToken}).Token()
	if err != nil {
		slog.Error("TokenSource.Token: refresh exchange failed", "error", err, "sessionID", sess.ID)
		return "", fmt.Errorf("%w: %v", models.ErrTokenRefresh, err)
	}

	sess.Credential = models.Credential{AccessToken: tok.AccessToken, IssuedAt: t.now()}
	slog.Info("TokenSource.Token: token refreshed", "sessionID", sess.ID)
	return tok.AccessToken, nil
}
