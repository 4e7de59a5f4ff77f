package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	portsup "github.com/SscSPs/bank_mesh/internal/core/ports/upstream"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/utils"
	"github.com/google/uuid"
)

const identityTarget = domain.IdentityOrigin

// HTTPIdentityProvider asks the identity service about every token.
type HTTPIdentityProvider struct {
	http    *httpClient
	baseURL string
}

// NewHTTPIdentityProvider creates a provider for the identity service at baseURL.
func NewHTTPIdentityProvider(baseURL string, timeout time.Duration) *HTTPIdentityProvider {
	return &HTTPIdentityProvider{
		http:    newHTTPClient(timeout, nil),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

var _ portsup.IdentityProvider = (*HTTPIdentityProvider)(nil)

// Verify calls GET /verify. A token the provider refuses, for any 4xx
// reason, is unauthenticated here.
func (p *HTTPIdentityProvider) Verify(ctx context.Context, token string) (domain.Identity, error) {
	var resp dto.VerifyResponse
	err := p.http.do(ctx, identityTarget, http.MethodGet, p.baseURL+"/verify", token, nil, &resp)
	if err != nil {
		if isClientError(err) {
			return domain.Identity{}, fmt.Errorf("%w: %v", apperrors.ErrUnauthenticated, err)
		}
		return domain.Identity{}, err
	}
	if err := p.http.validate.Struct(resp); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: malformed verify response: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	role, err := domain.ParseRole(resp.Role)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", apperrors.ErrUnauthenticated, err)
	}
	return domain.Identity{Username: resp.Username, Role: role}, nil
}

// Profile calls GET /clients/me.
func (p *HTTPIdentityProvider) Profile(ctx context.Context, token string, identity domain.Identity) (domain.Client, error) {
	var resp dto.ClientResponse
	if err := p.http.do(ctx, identityTarget, http.MethodGet, p.baseURL+"/clients/me", token, nil, &resp); err != nil {
		return domain.Client{}, err
	}
	if err := p.http.validate.Struct(resp); err != nil {
		return domain.Client{}, fmt.Errorf("%w: malformed client profile: %v", apperrors.ErrUpstreamUnavailable, err)
	}
	if resp.Username != identity.Username {
		return domain.Client{}, fmt.Errorf("%w: profile belongs to %q, token to %q",
			apperrors.ErrUpstreamUnavailable, resp.Username, identity.Username)
	}
	return resp.ToDomain(), nil
}

func isClientError(err error) bool {
	for _, target := range []error{apperrors.ErrUnauthenticated, apperrors.ErrForbidden, apperrors.ErrNotFound, apperrors.ErrValidation} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// clientNamespace derives global client ids from usernames when tokens are
// verified locally and no identity service assigns them.
var clientNamespace = uuid.MustParse("0b8e5a52-6f53-4c8e-bb0e-3c1d2f7a9e41")

// ClientIDForUsername returns the client id JWT mode assigns to a username.
// Every service sharing the signing key derives the same id.
func ClientIDForUsername(username string) string {
	return uuid.NewSHA1(clientNamespace, []byte(username)).String()
}

// JWTIdentityProvider verifies HS256 identity tokens locally.
type JWTIdentityProvider struct {
	secret string
	issuer string
}

// NewJWTIdentityProvider creates a provider that trusts tokens signed with
// secret. A non-empty issuer must match the token's iss claim.
func NewJWTIdentityProvider(secret, issuer string) *JWTIdentityProvider {
	return &JWTIdentityProvider{secret: secret, issuer: issuer}
}

var _ portsup.IdentityProvider = (*JWTIdentityProvider)(nil)

func (p *JWTIdentityProvider) Verify(ctx context.Context, token string) (domain.Identity, error) {
	claims, err := utils.ParseIdentityToken(token, p.secret)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", apperrors.ErrUnauthenticated, err)
	}
	if p.issuer != "" && claims.Issuer != p.issuer {
		return domain.Identity{}, fmt.Errorf("%w: unexpected issuer %q", apperrors.ErrUnauthenticated, claims.Issuer)
	}
	if claims.Subject == "" {
		return domain.Identity{}, fmt.Errorf("%w: token has no subject", apperrors.ErrUnauthenticated)
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", apperrors.ErrUnauthenticated, err)
	}
	return domain.Identity{Username: claims.Subject, Role: role}, nil
}

func (p *JWTIdentityProvider) Profile(ctx context.Context, token string, identity domain.Identity) (domain.Client, error) {
	return domain.Client{
		ClientID:    ClientIDForUsername(identity.Username),
		Username:    identity.Username,
		Role:        identity.Role,
		ReplicaMeta: domain.ReplicaMeta{Version: 1},
	}, nil
}
