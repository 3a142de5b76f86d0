package utils

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	JWTSecret = []byte("cafe-pos-dev-secret")
	TokenTTL  = 12 * time.Hour
)

type CustomClaims struct {
	UserName    string `json:"user_name"`
	AccountType int    `json:"account_type"`
	jwt.RegisteredClaims
}

var (
	blacklistedTokens = make(map[string]time.Time)
	blacklistMutex    sync.RWMutex
)

func GenerateToken(userName string, accountType int) (string, error) {
	now := time.Now()
	claims := &CustomClaims{
		UserName:    userName,
		AccountType: accountType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userName,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "CafePOS",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(JWTSecret)
}

func ParseToken(tokenString string) (*CustomClaims, error) {
	if IsTokenBlacklisted(tokenString) {
		return nil, errors.New("token has been revoked")
	}

	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid or expired token")
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || claims.UserName == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// BlacklistToken revokes a token until it would have expired anyway.
func BlacklistToken(tokenString string, expiry time.Time) {
	blacklistMutex.Lock()
	defer blacklistMutex.Unlock()

	now := time.Now()
	for t, exp := range blacklistedTokens {
		if now.After(exp) {
			delete(blacklistedTokens, t)
		}
	}
	blacklistedTokens[tokenString] = expiry
}

func IsTokenBlacklisted(tokenString string) bool {
	blacklistMutex.RLock()
	defer blacklistMutex.RUnlock()

	expiry, exists := blacklistedTokens[tokenString]
	return exists && time.Now().Before(expiry)
}
