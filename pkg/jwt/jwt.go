// Package jwt provides session token generation and validation.
package jwt

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/zhy3800/MovieWebsite/pkg/errors"
)

// DefaultExpiry is the session lifetime.
const DefaultExpiry = 24 * time.Hour

// Claims represents session token claims.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Manager handles JWT operations.
type Manager struct {
	secret []byte
	issuer string
	expiry time.Duration
	now    func() time.Time
}

// Config holds JWT manager configuration.
type Config struct {
	Secret string
	Issuer string
	Expiry time.Duration // Default: 24 hours
}

// NewManager creates a new JWT manager.
func NewManager(cfg *Config) *Manager {
	expiry := cfg.Expiry
	if expiry == 0 {
		expiry = DefaultExpiry
	}
	return &Manager{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		expiry: expiry,
		now:    time.Now,
	}
}

// GenerateToken signs a token for the user and returns it with its expiry.
func (m *Manager) GenerateToken(userID int64, username string) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.expiry)
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateToken verifies signature and expiry and returns the claims.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired.WithError(err)
		}
		return nil, errors.ErrTokenInvalid.WithError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, errors.ErrTokenInvalid
	}
	return claims, nil
}

// GetExpiryTime returns the session lifetime.
func (m *Manager) GetExpiryTime() time.Duration {
	return m.expiry
}

// ExtractClaims decodes a token without verifying its signature. Clients use it
// to check that a stored token is structurally sound before sending it.
func ExtractClaims(tokenString string) (jwt.MapClaims, error) {
	parser := jwt.NewParser()
	token, parts, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, errors.ErrTokenInvalid.WithError(err)
	}

	// payload 必须是 JSON 对象, null 不算
	payload, err := parser.DecodeSegment(parts[1])
	if err != nil || !isJSONObject(payload) {
		return nil, errors.ErrTokenInvalid
	}
	sig, err := parser.DecodeSegment(parts[2])
	if err != nil || len(sig) == 0 {
		return nil, errors.ErrTokenInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims == nil {
		return nil, errors.ErrTokenInvalid
	}
	return claims, nil
}

func isJSONObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{'
}
