package api

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultCollabTokenTTL bounds how long an issued collaboration token stays
// valid. Sessions outliving the token must request a new one before
// reconnecting.
const DefaultCollabTokenTTL = 12 * time.Hour

// CollabClaims carries the participant identity a collaboration websocket
// connection presents. The document id pins the token to a single room.
type CollabClaims struct {
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	DocumentID string `json:"documentId"`
	jwt.RegisteredClaims
}

// NewCollabToken signs a short-lived token identifying userID as a
// collaborator on documentID
func NewCollabToken(secret, userID, name, email, documentID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is not set")
	}
	if ttl == 0 {
		ttl = DefaultCollabTokenTTL
	}
	now := time.Now()
	claims := CollabClaims{
		Name:       name,
		Email:      email,
		DocumentID: documentID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseCollabToken validates tokenString and returns its claims. Expired or
// foreign-signed tokens are rejected.
func ParseCollabToken(secret, tokenString string) (*CollabClaims, error) {
	claims := &CollabClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing subject")
	}
	return claims, nil
}
