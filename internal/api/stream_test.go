package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/streamvault/streamvault/internal/access"
	"github.com/streamvault/streamvault/internal/middleware"
	"github.com/streamvault/streamvault/internal/db/models"
	"github.com/streamvault/streamvault/internal/streaming"
)

const testContentID = "7b944b16-2b04-40b5-9a2f-6f2e6c55b3c8"

// identityMiddleware injects an authenticated user without running JWT
// validation; handler tests exercise everything after auth.
func identityMiddleware(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

type fakeIssuer struct {
	url *streaming.StreamURL
	err error

	userID    string
	contentID string
	ttl       time.Duration
}

func (f *fakeIssuer) Issue(_ context.Context, userID, contentID string, ttl time.Duration) (*streaming.StreamURL, error) {
	f.userID = userID
	f.contentID = contentID
	f.ttl = ttl
	if f.err != nil {
		return nil, f.err
	}
	return f.url, nil
}

func newStreamRouter(issuer StreamIssuer) *gin.Engine {
	r := gin.New()
	r.Use(identityMiddleware("user-1"))
	r.GET("/api/v1/content/:id/stream", StreamURLHandler(issuer))
	return r
}

func doStream(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestStreamURLHandler_Success(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	issuer := &fakeIssuer{url: &streaming.StreamURL{
		URL:       "https://cdn.example.com/master.m3u8?sig=abc",
		ExpiresAt: expires,
		MediaKind: "video",
	}}
	r := newStreamRouter(issuer)

	w := doStream(r, "/api/v1/content/"+testContentID+"/stream")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	var body struct {
		URL       string           `json:"url"`
		ExpiresAt time.Time        `json:"expires_at"`
		MediaKind models.MediaKind `json:"media_kind"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.URL != "https://cdn.example.com/master.m3u8?sig=abc" {
		t.Errorf("url = %q", body.URL)
	}
	if !body.ExpiresAt.Equal(expires) {
		t.Errorf("expires_at = %v, want %v", body.ExpiresAt, expires)
	}
	if body.MediaKind != "video" {
		t.Errorf("media_kind = %q, want video", body.MediaKind)
	}
	if issuer.userID != "user-1" {
		t.Errorf("issuer got user %q, want user-1", issuer.userID)
	}
	if issuer.contentID != testContentID {
		t.Errorf("issuer got content %q", issuer.contentID)
	}
}

func TestStreamURLHandler_ExpiryQueryPassedAsTTL(t *testing.T) {
	issuer := &fakeIssuer{url: &streaming.StreamURL{}}
	r := newStreamRouter(issuer)

	w := doStream(r, "/api/v1/content/"+testContentID+"/stream?expiry=600")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if issuer.ttl != 10*time.Minute {
		t.Errorf("ttl = %v, want 10m", issuer.ttl)
	}
}

func TestStreamURLHandler_NoExpiryMeansZeroTTL(t *testing.T) {
	issuer := &fakeIssuer{url: &streaming.StreamURL{}}
	r := newStreamRouter(issuer)

	doStream(r, "/api/v1/content/"+testContentID+"/stream")

	if issuer.ttl != 0 {
		t.Errorf("ttl = %v, want 0", issuer.ttl)
	}
}

func TestStreamURLHandler_InvalidExpiry(t *testing.T) {
	issuer := &fakeIssuer{url: &streaming.StreamURL{}}
	r := newStreamRouter(issuer)

	w := doStream(r, "/api/v1/content/"+testContentID+"/stream?expiry=tomorrow")

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if issuer.contentID != "" {
		t.Error("issuer should not be called for invalid expiry")
	}
}

func TestStreamURLHandler_MalformedID(t *testing.T) {
	issuer := &fakeIssuer{url: &streaming.StreamURL{}}
	r := newStreamRouter(issuer)

	w := doStream(r, "/api/v1/content/not-a-uuid/stream")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if issuer.contentID != "" {
		t.Error("issuer should not be called for malformed id")
	}
}

func TestStreamURLHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"content not found", &access.ContentNotFoundError{ContentID: testContentID}, http.StatusNotFound},
		{"access denied", &access.DeniedError{UserID: "user-1", ContentID: testContentID}, http.StatusForbidden},
		{"media not ready", &streaming.MediaNotReadyError{ContentID: testContentID}, http.StatusUnprocessableEntity},
		{"invalid media kind", &streaming.InvalidMediaKindError{Kind: "ebook"}, http.StatusInternalServerError},
		{"signing failure", &streaming.SigningError{Backend: "s3", Err: errors.New("boom")}, http.StatusInternalServerError},
		{"infrastructure error", errors.New("connection refused"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newStreamRouter(&fakeIssuer{err: tt.err})

			w := doStream(r, "/api/v1/content/"+testContentID+"/stream")

			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			var body map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body["error"] == nil {
				t.Error("response missing 'error'")
			}
		})
	}
}
