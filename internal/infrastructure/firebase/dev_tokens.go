package firebase

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DevTokenIssuer mints and verifies HS256 tokens for local development, where
// no Firebase project is reachable. Never enabled outside the development
// environment.
type DevTokenIssuer struct {
	secret []byte
}

func NewDevTokenIssuer(secret string) *DevTokenIssuer {
	return &DevTokenIssuer{secret: []byte(secret)}
}

type devClaims struct {
	jwt.RegisteredClaims
}

func (d *DevTokenIssuer) Mint(uid string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := devClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "localhub-dev",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(d.secret)
}

// Verify returns the uid carried by a dev token, or an error for anything
// expired, malformed or signed with another key.
func (d *DevTokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &devClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return d.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*devClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token")
	}

	return claims.Subject, nil
}
