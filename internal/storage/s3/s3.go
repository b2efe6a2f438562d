// Package s3 implements the AWS S3-compatible media storage backend for StreamVault. It
// supports AWS S3, MinIO, DigitalOcean Spaces, and other S3-compatible services via a configurable
// endpoint. Playback uses pre-signed URLs (not proxied) to keep media traffic off the API's
// network path. Multiple authentication methods are supported: the default AWS credential chain
// (recommended for EC2/EKS with IAM roles), static key/secret, OIDC web identity, and AssumeRole
// for cross-account access.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	appconfig "github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/storage"
)

func init() {
	// Register S3 storage backend
	storage.Register("s3", func(cfg *appconfig.Config) (storage.Backend, error) {
		return New(&cfg.Storage.S3)
	})
}

// S3Storage implements the Backend interface for S3-compatible storage
type S3Storage struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	bucket        string
	endpoint      string
}

// New creates a new S3-compatible storage backend
// Supports AWS S3, MinIO, DigitalOcean Spaces, and other S3-compatible services
//
// Authentication methods:
//   - "default" or empty: Uses AWS default credential chain (env vars, shared config, IAM role, IMDS)
//   - "static": Uses explicit access key and secret key
//   - "oidc": Uses Web Identity/OIDC token (for EKS, GitHub Actions, etc.)
//   - "assume_role": Assumes an IAM role (optionally with external ID for cross-account)
func New(cfg *appconfig.S3StorageConfig) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("s3 region is required")
	}

	var opts []func(*config.LoadOptions) error

	opts = append(opts, config.WithRegion(cfg.Region))

	// Determine authentication method
	authMethod := cfg.AuthMethod
	if authMethod == "" {
		// Backwards compatibility: if access keys are provided, use static auth
		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			authMethod = "static"
		} else {
			authMethod = "default"
		}
	}

	switch authMethod {
	case "static":
		if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
			return nil, fmt.Errorf("access_key_id and secret_access_key are required for static auth")
		}
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))

	case "oidc", "assume_role":
		// Configured after loading the base config; both need an STS client.

	case "default":
		// AWS default credential chain: env vars, shared config, IAM role,
		// EKS pod identity.

	default:
		return nil, fmt.Errorf("unsupported auth_method: %s (must be 'default', 'static', 'oidc', or 'assume_role')", authMethod)
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	switch authMethod {
	case "oidc":
		if cfg.RoleARN == "" {
			return nil, fmt.Errorf("role_arn is required for OIDC auth")
		}

		stsClient := sts.NewFromConfig(awsCfg)

		var webIdentityOpts []func(*stscreds.WebIdentityRoleOptions)
		if cfg.RoleSessionName != "" {
			webIdentityOpts = append(webIdentityOpts, func(o *stscreds.WebIdentityRoleOptions) {
				o.RoleSessionName = cfg.RoleSessionName
			})
		}

		tokenFile := cfg.WebIdentityTokenFile
		if tokenFile == "" {
			return nil, fmt.Errorf("web_identity_token_file is required for OIDC auth (or set AWS_WEB_IDENTITY_TOKEN_FILE)")
		}

		provider := stscreds.NewWebIdentityRoleProvider(
			stsClient,
			cfg.RoleARN,
			stscreds.IdentityTokenFile(tokenFile),
			webIdentityOpts...,
		)

		awsCfg.Credentials = aws.NewCredentialsCache(provider)

	case "assume_role":
		if cfg.RoleARN == "" {
			return nil, fmt.Errorf("role_arn is required for assume_role auth")
		}

		stsClient := sts.NewFromConfig(awsCfg)

		var assumeRoleOpts []func(*stscreds.AssumeRoleOptions)
		if cfg.RoleSessionName != "" {
			assumeRoleOpts = append(assumeRoleOpts, func(o *stscreds.AssumeRoleOptions) {
				o.RoleSessionName = cfg.RoleSessionName
			})
		}
		if cfg.ExternalID != "" {
			assumeRoleOpts = append(assumeRoleOpts, func(o *stscreds.AssumeRoleOptions) {
				o.ExternalID = aws.String(cfg.ExternalID)
			})
		}

		provider := stscreds.NewAssumeRoleProvider(stsClient, cfg.RoleARN, assumeRoleOpts...)
		awsCfg.Credentials = aws.NewCredentialsCache(provider)
	}

	var s3Opts []func(*s3.Options)

	// Custom endpoint for S3-compatible services (MinIO, DigitalOcean Spaces, etc.)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// S3-compatible services need path-style addressing
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	presignClient := s3.NewPresignClient(client)

	return &S3Storage{
		client:        client,
		presignClient: presignClient,
		bucket:        cfg.Bucket,
		endpoint:      cfg.Endpoint,
	}, nil
}

// Download retrieves a media object from S3
func (s *S3Storage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: %s", storage.ErrKeyNotFound, key)
		}
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}

	return result.Body, nil
}

// SignURL returns a presigned URL for streaming the media object
func (s *S3Storage) SignURL(ctx context.Context, key string, ttl time.Duration) (*storage.SignedURL, error) {
	exists, err := s.Exists(ctx, key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", storage.ErrKeyNotFound, key)
	}

	request, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = ttl
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	return &storage.SignedURL{
		URL:       request.URL,
		ExpiresAt: time.Now().Add(ttl),
	}, nil
}

// Exists checks if a media object exists at the specified key
func (s *S3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object: %w", err)
	}

	return true, nil
}
