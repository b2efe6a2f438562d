// Package auth verifies the bearer tokens minted by the platform identity
// service. Tokens are HS256 over a shared secret. This service never mints
// tokens for end users; GenerateJWT exists for local development and tests.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenIssuer matches the iss claim stamped by the identity service.
const tokenIssuer = "streamvault-identity"

// minSecretLen is the shortest shared secret accepted outside dev mode.
const minSecretLen = 32

const defaultTokenTTL = time.Hour

var (
	signingKey     []byte
	signingKeyOnce sync.Once
	signingKeyErr  error
)

// Claims is the token payload shared with the identity service. UserID is the
// canonical viewer ID that entitlement and progress rows are keyed on; the
// registered subject carries the same value.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// isDevMode mirrors the config package's check. Duplicated here to avoid an
// import cycle.
func isDevMode() bool {
	devMode := os.Getenv("DEV_MODE")
	ginMode := os.Getenv("GIN_MODE")

	return devMode == "true" || devMode == "1" || ginMode == "debug"
}

func randomSecret() []byte {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return []byte(fmt.Sprintf("dev-fallback-%d", time.Now().UnixNano()))
	}
	return []byte(hex.EncodeToString(b))
}

// ValidateJWTSecret loads and checks the shared token secret. Outside dev
// mode a missing or short SVT_JWT_SECRET is a startup error; in dev mode a
// random per-process secret is generated instead. Call at application
// startup.
func ValidateJWTSecret() error {
	signingKeyOnce.Do(func() {
		secret := os.Getenv("SVT_JWT_SECRET")

		if secret == "" {
			if isDevMode() {
				signingKey = randomSecret()
				slog.Warn("SVT_JWT_SECRET not set, using an auto-generated secret for development")
				slog.Warn("sessions will not survive a restart without a fixed SVT_JWT_SECRET")
				return
			}
			signingKeyErr = errors.New("SVT_JWT_SECRET is required outside dev mode; generate one with: openssl rand -hex 32")
			return
		}

		if len(secret) < minSecretLen {
			if !isDevMode() {
				signingKeyErr = fmt.Errorf("SVT_JWT_SECRET must be at least %d characters, got %d", minSecretLen, len(secret))
				return
			}
			slog.Warn("SVT_JWT_SECRET is shorter than recommended", "min_length", minSecretLen)
		}

		signingKey = []byte(secret)
	})

	return signingKeyErr
}

func secretKey() ([]byte, error) {
	if err := ValidateJWTSecret(); err != nil {
		return nil, err
	}
	return signingKey, nil
}

// GenerateJWT mints a token the way the identity service would. A zero
// expiresIn falls back to the default TTL.
func GenerateJWT(userID, email string, expiresIn time.Duration) (string, error) {
	if expiresIn == 0 {
		expiresIn = defaultTokenTTL
	}

	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   userID,
		},
	}

	key, err := secretKey()
	if err != nil {
		return "", err
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// ValidateJWT parses and verifies a bearer token. The signing method, issuer,
// and expiry are all enforced by the parser; a token without an exp claim is
// rejected.
func ValidateJWT(tokenString string) (*Claims, error) {
	key, err := secretKey()
	if err != nil {
		return nil, err
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{},
		func(*jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" {
		return nil, errors.New("token has no user_id claim")
	}

	return claims, nil
}
