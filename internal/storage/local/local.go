// Package local implements the local filesystem media storage backend for StreamVault. This
// backend is intended for development and single-node deployments only — it does not support
// horizontal scaling (multiple API instances would need access to the same filesystem, e.g.,
// via NFS). For production, use a cloud storage backend.
//
// Signed URLs point back at the API's own media serving endpoint and carry an
// HMAC-SHA256 signature over the key and the expiry timestamp, so a leaked URL
// cannot be extended or retargeted at another object.
package local

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/storage"
)

func init() {
	// Register local storage backend
	storage.Register("local", func(cfg *config.Config) (storage.Backend, error) {
		return New(&cfg.Storage.Local, cfg.Server.BaseURL)
	})
}

// LocalStorage implements the Backend interface for local filesystem storage
type LocalStorage struct {
	basePath      string
	baseURL       string
	signingSecret []byte
}

// New creates a new local filesystem storage backend
func New(cfg *config.LocalStorageConfig, serverBaseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(cfg.BasePath, 0750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	if cfg.SigningSecret == "" {
		return nil, fmt.Errorf("local storage signing_secret is required")
	}

	return &LocalStorage{
		basePath:      cfg.BasePath,
		baseURL:       serverBaseURL,
		signingSecret: []byte(cfg.SigningSecret),
	}, nil
}

// resolve maps a storage key to an absolute path under basePath, rejecting
// keys that would escape it.
func (s *LocalStorage) resolve(key string) (string, error) {
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))
	if !strings.HasPrefix(fullPath, filepath.Clean(s.basePath)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid storage key: %s", key)
	}
	return fullPath, nil
}

// Download retrieves a media object from the local filesystem
func (s *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", storage.ErrKeyNotFound, key)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// SignURL returns an HMAC-signed URL served by the API's media endpoint.
func (s *LocalStorage) SignURL(ctx context.Context, key string, ttl time.Duration) (*storage.SignedURL, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", storage.ErrKeyNotFound, key)
	}

	expiresAt := time.Now().Add(ttl)
	sig := s.sign(key, expiresAt.Unix())

	u := fmt.Sprintf("%s/api/v1/media/%s?exp=%d&sig=%s",
		s.baseURL, url.PathEscape(key), expiresAt.Unix(), sig)

	return &storage.SignedURL{
		URL:       u,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify checks the signature and expiry of a served media request. It is
// called by the media serving endpoint before streaming file contents.
func (s *LocalStorage) Verify(key string, exp int64, sig string) error {
	if time.Now().Unix() > exp {
		return fmt.Errorf("url expired")
	}
	want := s.sign(key, exp)
	if subtle.ConstantTimeCompare([]byte(want), []byte(sig)) != 1 {
		return fmt.Errorf("invalid signature")
	}
	return nil
}

func (s *LocalStorage) sign(key string, exp int64) string {
	mac := hmac.New(sha256.New, s.signingSecret)
	mac.Write([]byte(key))
	mac.Write([]byte(":"))
	mac.Write([]byte(strconv.FormatInt(exp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Exists checks if a media object exists at the specified key
func (s *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	fullPath, err := s.resolve(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check file existence: %w", err)
	}

	return true, nil
}
