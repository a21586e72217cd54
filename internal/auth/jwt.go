package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the payload inside every TaskFlow JWT. The same shape is used
// for access and refresh tokens; they differ in signing secret, TTL, and
// the refresh token carrying a session ID (the registered ID claim) so the
// server can revoke it.
type Claims struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// GenerateAccessToken creates a short-lived token the client sends on every
// HTTP request and on the WebSocket handshake.
//
// HS256: one shared secret, symmetric, fast. Fine for a single-service
// backend that both issues and verifies its own tokens.
func GenerateAccessToken(userID int64, email, secret string, ttl time.Duration) (string, error) {
	return generate(userID, email, secret, ttl, "")
}

// GenerateRefreshToken creates a long-lived token carrying a unique session
// ID. The session ID is also stored server-side (Redis) so refresh tokens
// can be revoked individually (logout) or per user (logout-all).
func GenerateRefreshToken(userID int64, email, secret string, ttl time.Duration) (token string, sessionID string, err error) {
	sessionID = uuid.NewString()
	token, err = generate(userID, email, secret, ttl, sessionID)
	if err != nil {
		return "", "", err
	}
	return token, sessionID, nil
}

func generate(userID int64, email, secret string, ttl time.Duration, jti string) (string, error) {
	now := time.Now()

	claims := Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "taskflow",
			ID:        jti,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// ParseToken validates a JWT string and extracts the claims.
//
// It verifies:
//  1. The signature matches our secret (not tampered with).
//  2. The token hasn't expired.
//  3. The signing method is HMAC (rejects algorithm-switching attacks).
func ParseToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(token *jwt.Token) (any, error) {
			// Runs before signature verification. A token signed with
			// "none" or RSA is rejected here, never verified.
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
