package upstream

import (
	"fmt"
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/SscSPs/bank_mesh/internal/utils"
	"golang.org/x/oauth2"
)

// StaticServiceToken wraps a pre-issued admin token.
func StaticServiceToken(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

// jwtMinter signs short-lived admin tokens for this service.
type jwtMinter struct {
	subject string
	secret  string
	issuer  string
	ttl     time.Duration
}

func (m *jwtMinter) Token() (*oauth2.Token, error) {
	signed, err := utils.GenerateIdentityToken(m.subject, string(domain.RoleAdmin), m.secret, m.ttl, m.issuer)
	if err != nil {
		return nil, fmt.Errorf("sign service token: %w", err)
	}
	return &oauth2.Token{
		AccessToken: signed,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(m.ttl),
	}, nil
}

// NewJWTServiceTokenSource mints admin tokens for subject with the shared
// signing key, reusing each one until shortly before it expires.
func NewJWTServiceTokenSource(subject, secret, issuer string, ttl time.Duration) oauth2.TokenSource {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return oauth2.ReuseTokenSource(nil, &jwtMinter{subject: subject, secret: secret, issuer: issuer, ttl: ttl})
}
