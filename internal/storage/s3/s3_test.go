package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	appconfig "github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/storage"
)

// ---------------------------------------------------------------------------
// New() — constructor validation (no AWS connection required)
// ---------------------------------------------------------------------------

func TestNew_MissingBucket(t *testing.T) {
	_, err := New(&appconfig.S3StorageConfig{Region: "us-east-1"})
	if err == nil {
		t.Error("New() = nil error, want error for missing bucket")
	}
}

func TestNew_MissingRegion(t *testing.T) {
	_, err := New(&appconfig.S3StorageConfig{Bucket: "media-bucket"})
	if err == nil {
		t.Error("New() = nil error, want error for missing region")
	}
}

func TestNew_StaticAuth_MissingKeys(t *testing.T) {
	cfg := &appconfig.S3StorageConfig{
		Bucket:     "media-bucket",
		Region:     "us-east-1",
		AuthMethod: "static",
	}
	_, err := New(cfg)
	if err == nil {
		t.Error("New() = nil error, want error for static auth with missing keys")
	}
}

func TestNew_UnsupportedAuthMethod(t *testing.T) {
	cfg := &appconfig.S3StorageConfig{
		Bucket:     "media-bucket",
		Region:     "us-east-1",
		AuthMethod: "unsupported-method",
	}
	_, err := New(cfg)
	if err == nil {
		t.Error("New() = nil error, want error for unsupported auth method")
	}
}

func TestNew_OIDC_MissingRoleARN(t *testing.T) {
	cfg := &appconfig.S3StorageConfig{
		Bucket:     "media-bucket",
		Region:     "us-east-1",
		AuthMethod: "oidc",
	}
	_, err := New(cfg)
	if err == nil {
		t.Error("New() = nil error, want error for oidc auth with missing role_arn")
	}
}

func TestNew_OIDC_MissingTokenFile(t *testing.T) {
	cfg := &appconfig.S3StorageConfig{
		Bucket:     "media-bucket",
		Region:     "us-east-1",
		AuthMethod: "oidc",
		RoleARN:    "arn:aws:iam::123456789:role/media-signer",
	}
	_, err := New(cfg)
	if err == nil {
		t.Error("New() = nil error, want error for oidc auth with missing token file")
	}
}

func TestNew_AssumeRole_MissingRoleARN(t *testing.T) {
	cfg := &appconfig.S3StorageConfig{
		Bucket:     "media-bucket",
		Region:     "us-east-1",
		AuthMethod: "assume_role",
	}
	_, err := New(cfg)
	if err == nil {
		t.Error("New() = nil error, want error for assume_role auth with missing role_arn")
	}
}

func TestNew_StaticAuth_WithEndpoint(t *testing.T) {
	cfg := &appconfig.S3StorageConfig{
		Bucket:          "media-bucket",
		Region:          "us-east-1",
		AuthMethod:      "static",
		AccessKeyID:     "test-key",
		SecretAccessKey: "test-secret",
		Endpoint:        "http://localhost:9000",
	}
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("New() with custom endpoint error: %v", err)
	}
	if s == nil {
		t.Error("New() returned nil storage")
	}
}

// ---------------------------------------------------------------------------
// Read-side operations against a mock S3 endpoint
// ---------------------------------------------------------------------------

type s3MockStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (ms *s3MockStore) put(key string, data []byte) {
	ms.mu.Lock()
	ms.objects[key] = data
	ms.mu.Unlock()
}

// newS3TestStorage builds an S3Storage against a stub that serves GET and
// HEAD for seeded keys. Presigning never touches the server, so this is all
// the surface the backend needs.
func newS3TestStorage(t *testing.T) (*S3Storage, *s3MockStore, func()) {
	t.Helper()

	ms := &s3MockStore{objects: map[string][]byte{}}

	const bucket = "test-bucket"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/"+bucket), "/")

		ms.mu.Lock()
		data, ok := ms.objects[key]
		ms.mu.Unlock()

		switch r.Method {
		case http.MethodHead:
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
			w.WriteHeader(http.StatusOK)

		case http.MethodGet:
			if !ok {
				w.Header().Set("Content-Type", "application/xml")
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `<?xml version="1.0"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
				return
			}
			w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
			w.WriteHeader(http.StatusOK)
			w.Write(data)

		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))

	s, err := New(&appconfig.S3StorageConfig{
		Bucket:          bucket,
		Region:          "us-east-1",
		AuthMethod:      "static",
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
		Endpoint:        srv.URL,
	})
	if err != nil {
		srv.Close()
		t.Fatalf("New() for mock S3: %v", err)
	}

	return s, ms, func() { srv.Close() }
}

func TestS3_Download(t *testing.T) {
	s, ms, cleanup := newS3TestStorage(t)
	defer cleanup()

	want := []byte("#EXTM3U\n#EXT-X-VERSION:3\n")
	ms.put("content/abc/master.m3u8", want)

	rc, err := s.Download(context.Background(), "content/abc/master.m3u8")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	got, _ := io.ReadAll(rc)
	rc.Close()

	if !bytes.Equal(got, want) {
		t.Errorf("Download content = %q, want %q", got, want)
	}
}

func TestS3_Download_NotFound(t *testing.T) {
	s, _, cleanup := newS3TestStorage(t)
	defer cleanup()

	_, err := s.Download(context.Background(), "nonexistent.ts")
	if !errors.Is(err, storage.ErrKeyNotFound) {
		t.Errorf("Download() error = %v, want ErrKeyNotFound", err)
	}
}

func TestS3_Exists(t *testing.T) {
	s, ms, cleanup := newS3TestStorage(t)
	defer cleanup()
	ctx := context.Background()

	ms.put("exists.ts", []byte("x"))

	ok, err := s.Exists(ctx, "exists.ts")
	if err != nil {
		t.Fatalf("Exists() error: %v", err)
	}
	if !ok {
		t.Error("Exists = false for existing key, want true")
	}

	ok, err = s.Exists(ctx, "ghost.ts")
	if err != nil {
		t.Fatalf("Exists() error: %v", err)
	}
	if ok {
		t.Error("Exists = true for nonexistent key, want false")
	}
}

func TestS3_SignURL_NotFound(t *testing.T) {
	s, _, cleanup := newS3TestStorage(t)
	defer cleanup()

	_, err := s.SignURL(context.Background(), "missing.m3u8", time.Hour)
	if !errors.Is(err, storage.ErrKeyNotFound) {
		t.Errorf("SignURL() error = %v, want ErrKeyNotFound", err)
	}
}

func TestS3_SignURL_Success(t *testing.T) {
	s, ms, cleanup := newS3TestStorage(t)
	defer cleanup()

	ms.put("content/abc/master.m3u8", []byte("#EXTM3U"))

	signed, err := s.SignURL(context.Background(), "content/abc/master.m3u8", time.Hour)
	if err != nil {
		t.Fatalf("SignURL() error: %v", err)
	}
	if signed.URL == "" {
		t.Error("SignURL() returned empty URL")
	}
	if !strings.Contains(signed.URL, "X-Amz-Signature") {
		t.Errorf("URL %q does not look presigned", signed.URL)
	}
	wantExpiry := time.Now().Add(time.Hour)
	if signed.ExpiresAt.Before(wantExpiry.Add(-time.Minute)) || signed.ExpiresAt.After(wantExpiry.Add(time.Minute)) {
		t.Errorf("ExpiresAt = %v, want about %v", signed.ExpiresAt, wantExpiry)
	}
}
