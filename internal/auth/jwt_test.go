package auth

import (
	"os"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// resetSigningKey clears the package-level sync.Once so each test can load a
// fresh secret. Only safe from test code.
func resetSigningKey() {
	signingKey = nil
	signingKeyOnce = sync.Once{}
	signingKeyErr = nil
}

const testSecret = "test-jwt-secret-that-is-32-chars-!"

func TestMain(m *testing.M) {
	os.Setenv("SVT_JWT_SECRET", testSecret)
	os.Exit(m.Run())
}

func TestValidateJWTSecret(t *testing.T) {
	t.Run("valid secret from env", func(t *testing.T) {
		resetSigningKey()
		t.Setenv("SVT_JWT_SECRET", "exactly-32-char-secret-for-test!!")
		if err := ValidateJWTSecret(); err != nil {
			t.Errorf("ValidateJWTSecret() unexpected error: %v", err)
		}
	})

	t.Run("missing secret fails outside dev mode", func(t *testing.T) {
		resetSigningKey()
		t.Setenv("SVT_JWT_SECRET", "")
		t.Setenv("DEV_MODE", "")
		t.Setenv("GIN_MODE", "release")
		if err := ValidateJWTSecret(); err == nil {
			t.Error("ValidateJWTSecret() expected error without a secret, got nil")
		}
	})

	t.Run("short secret fails outside dev mode", func(t *testing.T) {
		resetSigningKey()
		t.Setenv("SVT_JWT_SECRET", "too-short")
		t.Setenv("DEV_MODE", "")
		t.Setenv("GIN_MODE", "release")
		if err := ValidateJWTSecret(); err == nil {
			t.Error("ValidateJWTSecret() expected error for a short secret, got nil")
		}
	})

	t.Run("dev mode generates a per-process secret", func(t *testing.T) {
		resetSigningKey()
		t.Setenv("SVT_JWT_SECRET", "")
		t.Setenv("DEV_MODE", "true")
		if err := ValidateJWTSecret(); err != nil {
			t.Errorf("ValidateJWTSecret() unexpected error in dev mode: %v", err)
		}
		if len(signingKey) == 0 {
			t.Error("no signing key after dev mode init")
		}
	})
}

func TestValidateJWT_RoundTrip(t *testing.T) {
	resetSigningKey()
	t.Setenv("SVT_JWT_SECRET", testSecret)

	token, err := GenerateJWT("viewer-123", "viewer@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT() error: %v", err)
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT() error: %v", err)
	}
	if claims.UserID != "viewer-123" {
		t.Errorf("claims.UserID = %q, want %q", claims.UserID, "viewer-123")
	}
	if claims.Email != "viewer@example.com" {
		t.Errorf("claims.Email = %q, want %q", claims.Email, "viewer@example.com")
	}
	if claims.Subject != "viewer-123" {
		t.Errorf("claims.Subject = %q, want the user ID", claims.Subject)
	}
	if claims.Issuer != tokenIssuer {
		t.Errorf("claims.Issuer = %q, want %q", claims.Issuer, tokenIssuer)
	}
}

func TestGenerateJWT_DefaultTTL(t *testing.T) {
	resetSigningKey()
	t.Setenv("SVT_JWT_SECRET", testSecret)

	token, err := GenerateJWT("viewer-123", "viewer@example.com", 0)
	if err != nil {
		t.Fatalf("GenerateJWT() error: %v", err)
	}
	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT() error: %v", err)
	}
	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < 50*time.Minute || remaining > 70*time.Minute {
		t.Errorf("default expiry remaining = %v, want ~1h", remaining)
	}
}

func TestValidateJWT_Rejections(t *testing.T) {
	resetSigningKey()
	t.Setenv("SVT_JWT_SECRET", testSecret)

	mint := func(t *testing.T, claims *Claims, method jwt.SigningMethod, key interface{}) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("signing test token: %v", err)
		}
		return s
	}

	now := time.Now()
	valid := func() *Claims {
		return &Claims{
			UserID: "viewer-123",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
				IssuedAt:  jwt.NewNumericDate(now),
				Issuer:    tokenIssuer,
				Subject:   "viewer-123",
			},
		}
	}

	t.Run("expired token", func(t *testing.T) {
		c := valid()
		c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
		if _, err := ValidateJWT(mint(t, c, jwt.SigningMethodHS256, []byte(testSecret))); err == nil {
			t.Error("expected error for expired token, got nil")
		}
	})

	t.Run("missing exp claim", func(t *testing.T) {
		c := valid()
		c.ExpiresAt = nil
		if _, err := ValidateJWT(mint(t, c, jwt.SigningMethodHS256, []byte(testSecret))); err == nil {
			t.Error("expected error for token without exp, got nil")
		}
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := valid()
		c.Issuer = "some-other-service"
		if _, err := ValidateJWT(mint(t, c, jwt.SigningMethodHS256, []byte(testSecret))); err == nil {
			t.Error("expected error for token from a foreign issuer, got nil")
		}
	})

	t.Run("none algorithm", func(t *testing.T) {
		s, err := jwt.NewWithClaims(jwt.SigningMethodNone, valid()).SignedString(jwt.UnsafeAllowNoneSignatureType)
		if err != nil {
			t.Fatalf("signing unsigned token: %v", err)
		}
		if _, err := ValidateJWT(s); err == nil {
			t.Error("expected error for alg=none token, got nil")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		s := mint(t, valid(), jwt.SigningMethodHS256, []byte("completely-different-secret-32ch!"))
		if _, err := ValidateJWT(s); err == nil {
			t.Error("expected error for token signed with another secret, got nil")
		}
	})

	t.Run("empty user_id claim", func(t *testing.T) {
		c := valid()
		c.UserID = ""
		if _, err := ValidateJWT(mint(t, c, jwt.SigningMethodHS256, []byte(testSecret))); err == nil {
			t.Error("expected error for token without user_id, got nil")
		}
	})

	t.Run("garbage token string", func(t *testing.T) {
		if _, err := ValidateJWT("not.a.valid.token"); err == nil {
			t.Error("expected error for garbage token, got nil")
		}
	})

	t.Run("empty token string", func(t *testing.T) {
		if _, err := ValidateJWT(""); err == nil {
			t.Error("expected error for empty token, got nil")
		}
	})
}
