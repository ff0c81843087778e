package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errMissingSessionClaim = errors.New("token has no session id")

// Claims binds a token to one admin session.
type Claims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

type tokenSigner struct {
	secret []byte
	issuer string
}

func newTokenSigner(secret, issuer string) *tokenSigner {
	return &tokenSigner{secret: []byte(secret), issuer: issuer}
}

func (s *tokenSigner) sign(adminID, sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   adminID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		SessionID: sessionID,
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *tokenSigner) parse(raw string, now time.Time) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(s.issuer),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, err
	}

	if claims.SessionID == "" || claims.Subject == "" {
		return nil, errMissingSessionClaim
	}

	return claims, nil
}
