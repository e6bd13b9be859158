package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/identity-api/internal/config"
	"github.com/identity-api/internal/domain"
)

// PurposePasswordReset is the purpose claim carried only by reset tokens.
// Its presence (and exact value) is what keeps a session token from being
// replayed as a reset token and vice versa.
const PurposePasswordReset = "password_reset"

// ResetTokenTTL is the fixed validity window of a reset token.
const ResetTokenTTL = 15 * time.Minute

// SessionClaims holds the payload of a session token.
type SessionClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// ResetClaims holds the payload of a purpose-scoped reset token.
type ResetClaims struct {
	Email   string `json:"email"`
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 JWTs. One keypair, two TTL profiles:
// configurable session expiry and a fixed 15-minute reset window.
type Provider struct {
	privateKey    *rsa.PrivateKey
	publicKey     *rsa.PublicKey
	sessionExpiry time.Duration
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Provider{
		privateKey:    privKey,
		publicKey:     pubKey,
		sessionExpiry: time.Duration(cfg.JWTExpiryDays) * 24 * time.Hour,
	}, nil
}

func (p *Provider) SignSession(u *domain.User, sessionID string) (string, error) {
	now := time.Now()
	claims := SessionClaims{
		UserID:    u.UserID,
		Email:     u.Email,
		Role:      u.Role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(p.sessionExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

func (p *Provider) SignReset(email string) (string, error) {
	now := time.Now()
	claims := ResetClaims{
		Email:   email,
		Purpose: PurposePasswordReset,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ResetTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

// VerifySession validates a session token's signature and expiry.
func (p *Provider) VerifySession(tokenStr string) (*SessionClaims, error) {
	var claims SessionClaims
	if err := p.parse(tokenStr, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// VerifyReset validates a reset token: signature, expiry, and an exact
// purpose match. Any other signed artifact — a session token included —
// fails here with ErrInvalidToken.
func (p *Provider) VerifyReset(tokenStr string) (*ResetClaims, error) {
	var claims ResetClaims
	if err := p.parse(tokenStr, &claims); err != nil {
		return nil, err
	}
	if claims.Purpose != PurposePasswordReset {
		return nil, fmt.Errorf("token purpose mismatch: %w", domain.ErrInvalidToken)
	}
	return &claims, nil
}

func (p *Provider) parse(tokenStr string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("%v: %w", err, domain.ErrExpiredToken)
		}
		return fmt.Errorf("%v: %w", err, domain.ErrInvalidToken)
	}
	if !token.Valid {
		return fmt.Errorf("invalid token claims: %w", domain.ErrInvalidToken)
	}
	return nil
}
