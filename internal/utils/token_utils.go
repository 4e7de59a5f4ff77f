package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims are the claims carried by identity tokens: the subject is
// the username and Role is "client" or "admin".
type IdentityClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateIdentityToken signs an HS256 identity token.
func GenerateIdentityToken(username, role, secret string, expiryDuration time.Duration, issuer string) (string, error) {
	now := time.Now()
	claims := IdentityClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiryDuration)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseIdentityToken parses a token string, validates its signature and
// standard claims, and returns the identity claims.
func ParseIdentityToken(tokenString string, secretKey string) (*IdentityClaims, error) {
	claims := &IdentityClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secretKey), nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenSignatureInvalid
	}
	return claims, nil
}
