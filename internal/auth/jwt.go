// Package auth issues and reads owner tokens: HS256 JWTs whose owner_id claim
// scopes every record and request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/tailorkeeper/internal/common"
)

// Claims carries the owner identity next to the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	OwnerID string `json:"owner_id"`
}

// GenerateToken signs a token for ownerID. A non-positive validity produces
// a token without expiry.
func GenerateToken(ownerID string, secretKey []byte, validity time.Duration) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("%w: empty owner", common.ErrInvalidToken)
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
			Subject:  ownerID,
		},
		OwnerID: ownerID,
	}
	if validity > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(validity))
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
}

// OwnerFromToken verifies the token signature and expiry and returns the
// owner. Every failure wraps common.ErrInvalidToken.
func OwnerFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token expired", common.ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.OwnerID == "" {
		return "", common.ErrInvalidToken
	}
	return claims.OwnerID, nil
}

// OwnerFromTokenUnverified reads the owner without checking the signature.
// The client uses it to stamp local records; the server always verifies.
func OwnerFromTokenUnverified(tokenString string) (string, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if claims.OwnerID == "" {
		return "", fmt.Errorf("%w: no owner", common.ErrInvalidToken)
	}
	return claims.OwnerID, nil
}
