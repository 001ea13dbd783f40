package jwttoken

import (
	"errors"
	"slices"

	"github.com/golang-jwt/jwt/v5"

	dErrors "caseflow/pkg/domain-errors"
)

// Claims are the identity claims carried by access tokens issued upstream.
// The subject is the acting user.
type Claims struct {
	TenantID string `json:"tenant_id"`
	CellID   string `json:"cell_id"`
	jwt.RegisteredClaims
}

// JWTService validates HS256 access tokens. Issuer and audience are only
// checked when configured.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token issuer")
	}
	if s.audience != "" && !slices.Contains(claims.Audience, s.audience) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token audience")
	}
	if claims.Subject == "" || claims.TenantID == "" || claims.CellID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token is missing identity claims")
	}

	return claims, nil
}
