package authverify

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/appforge/flowcore/pkg/protocol"
	"github.com/appforge/flowcore/pkg/runfail"
)

// JWTVerifier validates HMAC-signed session tokens and extracts the
// normalized claims this core consumes.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

func (v *JWTVerifier) Verify(_ context.Context, token string) (*protocol.Claims, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}

		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, runfail.Wrap(runfail.CodeTokenExpired, err)
		}

		return nil, runfail.Wrap(runfail.CodeInvalidToken, err)
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, runfail.New(runfail.CodeInvalidToken, "token carries no claims")
	}

	claims := &protocol.Claims{}

	if sub, err := mapClaims.GetSubject(); err == nil {
		claims.UserID = sub
	}

	if claims.UserID == "" {
		if id, ok := mapClaims["user_id"].(string); ok {
			claims.UserID = id
		}
	}

	if claims.UserID == "" {
		return nil, runfail.New(runfail.CodeInvalidToken, "token carries no subject")
	}

	if email, ok := mapClaims["email"].(string); ok {
		claims.Email = email
	}

	if expiry, err := mapClaims.GetExpirationTime(); err == nil && expiry != nil {
		claims.ExpiresAt = expiry.Time
	}

	if roles, ok := mapClaims["roles"].([]any); ok {
		for _, role := range roles {
			if name, ok := role.(string); ok {
				claims.Roles = append(claims.Roles, name)
			}
		}
	}

	return claims, nil
}
