// README: JWT token verification for the authentication collaborator (HS256).
package infra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"tracker/internal/types"
)

// Claims carries the caller identity. For drivers Subject is the driver
// record id.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenVerifier abstracts token verification for testing.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (types.Actor, error)
}

type JWTVerifier struct {
	secret []byte
	issuer string
}

func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer}
}

func (v *JWTVerifier) Verify(_ context.Context, raw string) (types.Actor, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return types.Actor{}, fmt.Errorf("parse token: %w", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return types.Actor{}, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return types.Actor{}, errors.New("token has no subject")
	}

	role := types.Role(claims.Role)
	if role == "" {
		role = types.RoleCustomer
	}
	if !role.Valid() {
		return types.Actor{}, fmt.Errorf("unknown role %q", claims.Role)
	}
	return types.Actor{ID: types.ID(claims.Subject), Role: role}, nil
}

// Issue signs a token for actor. Used by tests and local tooling.
func (v *JWTVerifier) Issue(actor types.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(actor.ID),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
