package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newRequestIDRouter() *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		c.Header("X-Context-Request-ID", RequestID(c))
		c.Status(http.StatusOK)
	})
	return r
}

func requestIDFor(t *testing.T, r *gin.Engine, inbound string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if inbound != "" {
		req.Header.Set(RequestIDHeader, inbound)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDMiddleware_GeneratesUUIDWhenAbsent(t *testing.T) {
	w := requestIDFor(t, newRequestIDRouter(), "")

	id := w.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID: %v", id, err)
	}
}

func TestRequestIDMiddleware_ReusesValidUpstreamID(t *testing.T) {
	upstreamID := uuid.New().String()
	w := requestIDFor(t, newRequestIDRouter(), upstreamID)

	if got := w.Header().Get(RequestIDHeader); got != upstreamID {
		t.Errorf("response X-Request-ID = %q, want upstream %q", got, upstreamID)
	}
}

func TestRequestIDMiddleware_ReplacesMalformedUpstreamID(t *testing.T) {
	// A proxy header that is not a UUID must not end up in logs verbatim.
	w := requestIDFor(t, newRequestIDRouter(), "not-a-uuid\nfake log line")

	got := w.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("replacement X-Request-ID %q is not a UUID: %v", got, err)
	}
}

func TestRequestIDMiddleware_ContextMatchesHeader(t *testing.T) {
	w := requestIDFor(t, newRequestIDRouter(), "")

	responseID := w.Header().Get(RequestIDHeader)
	contextID := w.Header().Get("X-Context-Request-ID")
	if contextID == "" {
		t.Fatal("RequestID(c) returned empty inside the handler")
	}
	if responseID != contextID {
		t.Errorf("response header ID %q does not match context ID %q", responseID, contextID)
	}
}

func TestRequestIDMiddleware_DifferentIDsPerRequest(t *testing.T) {
	r := newRequestIDRouter()

	ids := make(map[string]struct{}, 10)
	for i := range 10 {
		id := requestIDFor(t, r, "").Header().Get(RequestIDHeader)
		if _, seen := ids[id]; seen {
			t.Errorf("duplicate request ID %q on iteration %d", id, i)
		}
		ids[id] = struct{}{}
	}
}

func TestRequestID_WithoutMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/", func(c *gin.Context) {
		if got := RequestID(c); got != "" {
			t.Errorf("RequestID without middleware = %q, want empty", got)
		}
		c.Status(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)
}
