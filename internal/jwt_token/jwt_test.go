package jwttoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "caseflow/pkg/domain-errors"
)

const signingKey = "test-signing-key"

var jwtService = NewJWTService(signingKey, "test-issuer", "caseflow")
var userID = uuid.New()

func sign(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(expiresIn time.Duration) Claims {
	return Claims{
		TenantID: "T1",
		CellID:   "C1",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    "test-issuer",
			Audience:  []string{"caseflow"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func Test_ValidateToken_ValidToken(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(signingKey), validClaims(time.Hour))

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "T1", claims.TenantID)
	assert.Equal(t, "C1", claims.CellID)

	mw := ToMiddlewareClaims(claims)
	assert.Equal(t, userID.String(), mw.UserID)
	assert.Equal(t, "T1", mw.TenantID)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := jwtService.ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte(signingKey), validClaims(-time.Hour))

	_, err := jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token has expired"))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	token := sign(t, jwt.SigningMethodHS256, []byte("other-key"), validClaims(time.Hour))

	_, err := jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token"))
}

func Test_ValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	token := sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims(time.Hour))

	_, err := jwtService.ValidateToken(token)
	require.Error(t, err)
}

func Test_ValidateToken_MissingIdentityClaims(t *testing.T) {
	claims := validClaims(time.Hour)
	claims.TenantID = ""
	token := sign(t, jwt.SigningMethodHS256, []byte(signingKey), claims)

	_, err := jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "token is missing identity claims"))
}

func Test_ValidateToken_WrongAudience(t *testing.T) {
	claims := validClaims(time.Hour)
	claims.Audience = []string{"someone-else"}
	token := sign(t, jwt.SigningMethodHS256, []byte(signingKey), claims)

	_, err := jwtService.ValidateToken(token)
	require.ErrorIs(t, err, dErrors.New(dErrors.CodeUnauthorized, "invalid token audience"))
}
