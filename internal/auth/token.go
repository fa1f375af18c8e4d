// Package auth mints and validates the bearer access tokens returned by
// the account access endpoint. Tokens are HS256 JWTs signed with a shared
// secret from configuration.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/finbase/finance-ledger/internal/domain"
)

// Claims represents the JWT claims for ledger access tokens.
// The subject is the account ID.
type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// MintResult holds the result of minting an access token.
type MintResult struct {
	Token     string
	JTI       string
	ExpiresAt time.Time
}

// TokenIssuerConfig holds configuration for creating a TokenIssuer.
type TokenIssuerConfig struct {
	Secret   []byte
	TTL      time.Duration
	Issuer   string
	Audience string
	Clock    domain.Clock
}

// TokenIssuer creates and validates signed access tokens.
type TokenIssuer struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	clock    domain.Clock
}

// NewTokenIssuer creates a new TokenIssuer.
func NewTokenIssuer(cfg TokenIssuerConfig) *TokenIssuer {
	return &TokenIssuer{
		secret:   cfg.Secret,
		ttl:      cfg.TTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		clock:    cfg.Clock,
	}
}

// Mint creates a signed HS256 JWT access token for the given account.
// Returns the signed token string, JTI, and expiration.
func (t *TokenIssuer) Mint(accountID string) (MintResult, error) {
	now := t.clock.Now().UTC()
	jti := uuid.NewString()
	expiresAt := now.Add(t.ttl)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
		Scope: "ledger",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return MintResult{}, fmt.Errorf("sign access token: %w", err)
	}

	return MintResult{
		Token:     signed,
		JTI:       jti,
		ExpiresAt: expiresAt,
	}, nil
}

// Validate parses and fully validates an access token, returning the
// account ID it was minted for. Expired tokens map to domain.ErrTokenExpired;
// every other validation failure maps to domain.ErrInvalidToken.
func (t *TokenIssuer) Validate(tokenString string) (string, error) {
	var claims Claims

	opts := []jwt.ParserOption{
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(t.audience),
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(t.clock.Now),
		jwt.WithExpirationRequired(),
	}

	_, err := jwt.ParseWithClaims(tokenString, &claims, t.keyFunc, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("access token expired: %w", domain.ErrTokenExpired)
		}
		return "", fmt.Errorf("parse access token: %w", domain.ErrInvalidToken)
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("missing sub claim: %w", domain.ErrInvalidToken)
	}
	if _, idErr := domain.NewAccountID(claims.Subject); idErr != nil {
		return "", fmt.Errorf("sub claim is not an account ID: %w", domain.ErrInvalidToken)
	}

	return claims.Subject, nil
}

func (t *TokenIssuer) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return t.secret, nil
}
