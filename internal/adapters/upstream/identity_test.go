package upstream_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/bank_mesh/internal/adapters/upstream"
	"github.com/SscSPs/bank_mesh/internal/apperrors"
	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/SscSPs/bank_mesh/internal/dto"
	"github.com/SscSPs/bank_mesh/internal/middleware"
	"github.com/SscSPs/bank_mesh/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestHTTPIdentityProvider_Verify(t *testing.T) {
	var gotAuth, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/verify", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get(middleware.RequestIDHeader)
		switch r.Header.Get("Authorization") {
		case "Bearer good":
			writeJSON(w, http.StatusOK, dto.VerifyResponse{Username: "alice", Role: "admin"})
		case "Bearer odd-role":
			writeJSON(w, http.StatusOK, dto.VerifyResponse{Username: "alice", Role: "root"})
		case "Bearer broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	p := upstream.NewHTTPIdentityProvider(srv.URL+"/", time.Second)
	ctx := middleware.WithRequestID(context.Background(), "req-1")

	identity, err := p.Verify(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{Username: "alice", Role: domain.RoleAdmin}, identity)
	assert.Equal(t, "Bearer good", gotAuth)
	assert.Equal(t, "req-1", gotRequestID)

	_, err = p.Verify(ctx, "bad")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = p.Verify(ctx, "odd-role")
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	_, err = p.Verify(ctx, "broken")
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}

func TestHTTPIdentityProvider_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := upstream.NewHTTPIdentityProvider(url, time.Second).Verify(context.Background(), "tok")
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}

func TestHTTPIdentityProvider_Profile(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/clients/me":
			writeJSON(w, http.StatusOK, dto.ClientResponse{ClientID: "c-1", Username: "alice", Role: domain.RoleClient, Version: 2, CreatedAt: created})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := upstream.NewHTTPIdentityProvider(srv.URL, time.Second)
	ctx := context.Background()

	client, err := p.Profile(ctx, "tok", domain.Identity{Username: "alice", Role: domain.RoleClient})
	require.NoError(t, err)
	assert.Equal(t, "c-1", client.ClientID)
	assert.Equal(t, int64(2), client.Version)
	assert.Equal(t, created, client.CreatedAt)

	_, err = p.Profile(ctx, "tok", domain.Identity{Username: "mallory"})
	assert.ErrorIs(t, err, apperrors.ErrUpstreamUnavailable)
}

func TestJWTIdentityProvider(t *testing.T) {
	const secret = "s3cret"
	p := upstream.NewJWTIdentityProvider(secret, "identity")
	ctx := context.Background()

	token, err := utils.GenerateIdentityToken("alice", "client", secret, time.Minute, "identity")
	require.NoError(t, err)
	identity, err := p.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, domain.Identity{Username: "alice", Role: domain.RoleClient}, identity)

	profile, err := p.Profile(ctx, token, identity)
	require.NoError(t, err)
	assert.Equal(t, upstream.ClientIDForUsername("alice"), profile.ClientID)
	assert.Equal(t, profile.ClientID, upstream.ClientIDForUsername("alice"), "ids are deterministic")
	assert.NotEqual(t, profile.ClientID, upstream.ClientIDForUsername("bob"))

	mint := func(role, key string, ttl time.Duration, issuer string) string {
		tk, err := utils.GenerateIdentityToken("alice", role, key, ttl, issuer)
		require.NoError(t, err)
		return tk
	}
	tests := []struct {
		name  string
		token string
	}{
		{"wrong key", mint("client", "other", time.Minute, "identity")},
		{"wrong issuer", mint("client", secret, time.Minute, "elsewhere")},
		{"expired", mint("client", secret, -time.Minute, "identity")},
		{"unknown role", mint("root", secret, time.Minute, "identity")},
		{"garbage", "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Verify(ctx, tt.token)
			assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
		})
	}
}

func TestJWTServiceTokenSource(t *testing.T) {
	src := upstream.NewJWTServiceTokenSource("bank", "s3cret", "identity", time.Minute)
	first, err := src.Token()
	require.NoError(t, err)
	second, err := src.Token()
	require.NoError(t, err)
	assert.Equal(t, first.AccessToken, second.AccessToken, "token is reused until it nears expiry")

	identity, err := upstream.NewJWTIdentityProvider("s3cret", "identity").Verify(context.Background(), first.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, identity.Role)
	assert.Equal(t, "bank", identity.Username)
}
