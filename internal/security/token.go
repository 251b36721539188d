package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// SessionClaims bind a bearer token to one client context and session
// namespace. The session store stays authoritative; the token only tells the
// server which client context a request belongs to.
type SessionClaims struct {
	UserID    string `json:"uid"`
	Role      string `json:"role"`
	ClientID  string `json:"cid"`
	Namespace string `json:"ns"`
	jwt.RegisteredClaims
}

func IssueSessionToken(secret, userID, role, clientID, namespace string, issuedAt, expiresAt time.Time) (string, error) {
	claims := SessionClaims{
		UserID:    userID,
		Role:      role,
		ClientID:  clientID,
		Namespace: namespace,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Subject:   userID,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign jwt: %w", err)
	}
	return signed, nil
}

func ParseSessionToken(tokenStr, secret string) (*SessionClaims, error) {
	return ParseSessionTokenAt(tokenStr, secret, time.Now())
}

// ParseSessionTokenAt validates the token's time claims against now.
func ParseSessionTokenAt(tokenStr, secret string, now time.Time) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
