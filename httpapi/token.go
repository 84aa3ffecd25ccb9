package httpapi

import (
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/golang-jwt/jwt/v5"
)

// OwnerClaims is the JWT payload identifying the gateway owner account
// allowed to call the owner-gated direct entry points.
type OwnerClaims struct {
	jwt.RegisteredClaims
	Owner string `json:"owner"`
}

// TokenManager issues and validates owner bearer tokens.
type TokenManager struct {
	secret []byte
	expiry time.Duration
}

// NewTokenManager creates a TokenManager with the given HMAC secret and
// token lifetime.
func NewTokenManager(secret []byte, expiry time.Duration) *TokenManager {
	return &TokenManager{secret: secret, expiry: expiry}
}

// IssueToken signs a new owner token for owner.
func (m *TokenManager) IssueToken(owner common.Address) (string, error) {
	now := time.Now()
	claims := &OwnerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   owner.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
		},
		Owner: owner.Hex(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("httpapi: sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies tokenString, returning the owner
// address it authenticates.
func (m *TokenManager) ValidateToken(tokenString string) (common.Address, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OwnerClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return common.Address{}, err
	}
	claims, ok := token.Claims.(*OwnerClaims)
	if !ok || !token.Valid {
		return common.Address{}, errors.New("httpapi: invalid token claims")
	}
	if !common.IsHexAddress(claims.Owner) {
		return common.Address{}, errors.New("httpapi: token owner claim is not a valid address")
	}
	return common.HexToAddress(claims.Owner), nil
}
