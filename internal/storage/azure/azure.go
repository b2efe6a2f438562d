// Package azure implements the Azure Blob Storage media backend for StreamVault. Playback is
// served via time-limited SAS (Shared Access Signature) URLs generated on demand rather than
// proxied through the API, which keeps media segments off the API's network path. When a CDN
// URL is configured, signed SAS URLs are replaced by CDN URLs and access control is delegated
// to the CDN configuration.
package azure

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"

	"github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/storage"
)

func init() {
	// Register Azure storage backend
	storage.Register("azure", func(cfg *config.Config) (storage.Backend, error) {
		return New(&cfg.Storage.Azure)
	})
}

// AzureStorage implements the Backend interface for Azure Blob Storage
type AzureStorage struct {
	client        *azblob.Client
	containerName string
	accountName   string
	accountKey    string
	cdnURL        string
}

// New creates a new Azure Blob Storage backend
func New(cfg *config.AzureStorageConfig) (*AzureStorage, error) {
	if cfg.AccountName == "" {
		return nil, fmt.Errorf("azure storage account name is required")
	}
	if cfg.AccountKey == "" {
		return nil, fmt.Errorf("azure storage account key is required")
	}
	if cfg.ContainerName == "" {
		return nil, fmt.Errorf("azure storage container name is required")
	}

	credential, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure Blob client: %w", err)
	}

	return &AzureStorage{
		client:        client,
		containerName: cfg.ContainerName,
		accountName:   cfg.AccountName,
		accountKey:    cfg.AccountKey,
		cdnURL:        cfg.CDNURL,
	}, nil
}

// Download retrieves a media object from Azure Blob Storage
func (s *AzureStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	blobClient := s.client.ServiceClient().NewContainerClient(s.containerName).NewBlobClient(key)

	resp, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return nil, fmt.Errorf("%w: %s", storage.ErrKeyNotFound, key)
		}
		return nil, fmt.Errorf("failed to download from Azure Blob: %w", err)
	}

	return resp.Body, nil
}

// SignURL returns a SAS URL for streaming the media object, or a CDN URL when
// one is configured
func (s *AzureStorage) SignURL(ctx context.Context, key string, ttl time.Duration) (*storage.SignedURL, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", storage.ErrKeyNotFound, key)
	}

	expiryTime := time.Now().UTC().Add(ttl)

	if s.cdnURL != "" {
		return &storage.SignedURL{
			URL:       fmt.Sprintf("%s/%s", s.cdnURL, key),
			ExpiresAt: expiryTime,
		}, nil
	}

	credential, err := azblob.NewSharedKeyCredential(s.accountName, s.accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential for SAS: %w", err)
	}

	sasPermissions := sas.BlobPermissions{Read: true}
	startTime := time.Now().UTC().Add(-5 * time.Minute) // Allow for clock skew

	sasQueryParams, err := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		StartTime:     startTime,
		ExpiryTime:    expiryTime,
		Permissions:   sasPermissions.String(),
		ContainerName: s.containerName,
		BlobName:      key,
	}.SignWithSharedKey(credential)
	if err != nil {
		return nil, fmt.Errorf("failed to generate SAS token: %w", err)
	}

	blobURL := fmt.Sprintf("https://%s.blob.core.windows.net/%s/%s",
		s.accountName, s.containerName, url.PathEscape(key))

	return &storage.SignedURL{
		URL:       fmt.Sprintf("%s?%s", blobURL, sasQueryParams.Encode()),
		ExpiresAt: expiryTime,
	}, nil
}

// Exists checks if a media object exists at the specified key
func (s *AzureStorage) Exists(ctx context.Context, key string) (bool, error) {
	blobClient := s.client.ServiceClient().NewContainerClient(s.containerName).NewBlobClient(key)

	_, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get blob properties: %w", err)
	}

	return true, nil
}
