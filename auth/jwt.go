package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"travel/entity"
)

type Claims struct {
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// Tokens verifies HS256 session tokens. Issuing sessions belongs to the identity service; Issue
// exists for tooling and tests.
type Tokens struct {
	secret []byte
}

func NewTokens(secret string) Tokens {
	if secret == "" {
		panic("jwt secret is empty")
	}

	return Tokens{secret: []byte(secret)}
}

func (t Tokens) Issue(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// Parse returns the user id carried by a valid token.
func (t Tokens) Parse(tokenStr string) (string, error) {
	if tokenStr == "" {
		return "", fmt.Errorf("%w: missing token", entity.ErrUnauthenticated)
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("%w: %s", entity.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return "", fmt.Errorf("%w: invalid token", entity.ErrUnauthenticated)
	}

	return claims.UserID, nil
}
