// Package gcs implements the Google Cloud Storage media backend for StreamVault. Playback uses
// time-limited signed URLs generated via the GCS signing API; the API never proxies media
// content. Supports Application Default Credentials, service account JSON keys, and Workload
// Identity Federation for keyless authentication in GKE and GitHub Actions environments.
package gcs

import (
	"context"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	appconfig "github.com/streamvault/streamvault/internal/config"
	appstorage "github.com/streamvault/streamvault/internal/storage"
)

func init() {
	// Register GCS storage backend
	appstorage.Register("gcs", func(cfg *appconfig.Config) (appstorage.Backend, error) {
		return New(&cfg.Storage.GCS)
	})
}

// GCSStorage implements the Backend interface for Google Cloud Storage
type GCSStorage struct {
	client *storage.Client
	bucket string
}

// New creates a new Google Cloud Storage backend
//
// Authentication methods:
//   - "default" or empty: Uses Application Default Credentials (ADC)
//     This automatically supports:
//   - GOOGLE_APPLICATION_CREDENTIALS environment variable
//   - GCE/GKE metadata service
//   - Cloud Run/Cloud Functions service account
//   - gcloud auth application-default login
//   - "service_account": Uses a service account key file or JSON
//   - "workload_identity": Uses Workload Identity Federation (GKE, GitHub Actions, etc.)
func New(cfg *appconfig.GCSStorageConfig) (*GCSStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("gcs bucket name is required")
	}

	ctx := context.Background()
	var opts []option.ClientOption

	// Custom endpoint for GCS emulators or compatible services
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	authMethod := cfg.AuthMethod
	if authMethod == "" {
		if cfg.CredentialsFile != "" || cfg.CredentialsJSON != "" {
			authMethod = "service_account"
		} else {
			authMethod = "default"
		}
	}

	switch authMethod {
	case "service_account":
		if cfg.CredentialsJSON != "" {
			opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
		} else if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		} else {
			return nil, fmt.Errorf("credentials_file or credentials_json is required for service_account auth")
		}

	case "workload_identity", "default":
		// Application Default Credentials: GOOGLE_APPLICATION_CREDENTIALS,
		// GCE/GKE metadata service, Cloud Run service account, or
		// gcloud auth application-default login.

	default:
		return nil, fmt.Errorf("unsupported auth_method: %s (must be 'default', 'service_account', or 'workload_identity')", authMethod)
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStorage{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// Close closes the GCS client
func (s *GCSStorage) Close() error {
	return s.client.Close()
}

// Download retrieves a media object from GCS
func (s *GCSStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	obj := s.client.Bucket(s.bucket).Object(key)

	reader, err := obj.NewReader(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return nil, fmt.Errorf("%w: %s", appstorage.ErrKeyNotFound, key)
		}
		return nil, fmt.Errorf("failed to read from GCS: %w", err)
	}

	return reader, nil
}

// SignURL returns a V4 signed URL for streaming the media object.
// Requires the service account to have the iam.serviceAccountTokenCreator role
// or for ADC to have signBlob permissions.
func (s *GCSStorage) SignURL(ctx context.Context, key string, ttl time.Duration) (*appstorage.SignedURL, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", appstorage.ErrKeyNotFound, key)
	}

	expiresAt := time.Now().Add(ttl)
	opts := &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: expiresAt,
	}

	url, err := s.client.Bucket(s.bucket).SignedURL(key, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signed URL: %w", err)
	}

	return &appstorage.SignedURL{
		URL:       url,
		ExpiresAt: expiresAt,
	}, nil
}

// Exists checks if a media object exists at the specified key
func (s *GCSStorage) Exists(ctx context.Context, key string) (bool, error) {
	obj := s.client.Bucket(s.bucket).Object(key)

	_, err := obj.Attrs(ctx)
	if err != nil {
		if err == storage.ErrObjectNotExist {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}

	return true, nil
}
