package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/streamvault/streamvault/internal/auth"
)

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AuthMiddleware())
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": UserID(c)})
	})
	return r
}

func doAuthRequest(t *testing.T, r *gin.Engine, header string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	r := newAuthRouter()
	w := doAuthRequest(t, r, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_NotBearer(t *testing.T) {
	r := newAuthRouter()
	w := doAuthRequest(t, r, "Basic dXNlcjpwYXNz")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_EmptyToken(t *testing.T) {
	r := newAuthRouter()
	w := doAuthRequest(t, r, "Bearer   ")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	r := newAuthRouter()
	w := doAuthRequest(t, r, "Bearer not.a.valid.token")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	token, err := auth.GenerateJWT("user-123", "viewer@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	r := newAuthRouter()
	w := doAuthRequest(t, r, "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body = %s", w.Code, w.Body.String())
	}
	if body := w.Body.String(); body != `{"user_id":"user-123"}` {
		t.Errorf("body = %s", body)
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	token, err := auth.GenerateJWT("user-123", "viewer@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	r := newAuthRouter()
	w := doAuthRequest(t, r, "Bearer "+token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for expired token", w.Code)
	}
}

func TestUserID_Unauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if id := UserID(c); id != "" {
		t.Errorf("UserID = %q, want empty", id)
	}
}
