package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const clientTokenIssuer = "smarta"

// ClientClaims identifies a client instance; Subject is the client ID
type ClientClaims struct {
	jwt.RegisteredClaims
}

// ClientTokens signs and verifies the client-instance cookie
type ClientTokens struct {
	secret []byte
	ttl    time.Duration
}

// NewClientTokens creates a new client token service
func NewClientTokens(secret string, ttl time.Duration) *ClientTokens {
	return &ClientTokens{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// NewClientID returns a fresh random client instance ID
func (s *ClientTokens) NewClientID() string {
	return uuid.NewString()
}

// Issue creates a signed token for clientID
func (s *ClientTokens) Issue(clientID string) (string, error) {
	now := time.Now()
	claims := &ClientClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			Issuer:    clientTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign client token: %w", err)
	}

	return tokenString, nil
}

// Verify parses a client token and returns its client ID
func (s *ClientTokens) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ClientClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(clientTokenIssuer))

	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*ClientClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token")
	}

	return claims.Subject, nil
}

// TTL is how long an issued token stays valid
func (s *ClientTokens) TTL() time.Duration { return s.ttl }
