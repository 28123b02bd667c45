package client

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"storefront/internal/model"
)

var ErrInvalidToken = errors.New("invalid access token")

// TokenVerifier checks provider-issued access tokens locally with the
// project's HMAC secret.
type TokenVerifier interface {
	Verify(token string) (*model.Session, error)
}

type tokenVerifierImpl struct {
	secret []byte
}

func NewTokenVerifier(secret string) TokenVerifier {
	return &tokenVerifierImpl{secret: []byte(secret)}
}

func (v *tokenVerifierImpl) Verify(token string) (*model.Session, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: no jwt secret configured", ErrInvalidToken)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing expiry", ErrInvalidToken)
	}
	email, _ := claims["email"].(string)

	return &model.Session{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   exp.Unix(),
		ExpiresIn:   int64(time.Until(exp.Time).Seconds()),
		User: model.AuthUser{
			ID:    sub,
			Email: email,
		},
	}, nil
}
