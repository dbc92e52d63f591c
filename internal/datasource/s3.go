package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/order_console/internal/config"
	"github.com/GTDGit/order_console/internal/models"
)

// emptyPayloadHash is the SHA-256 of an empty body, required by SigV4 for GET.
const emptyPayloadHash = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"

// S3Source reads the dataset object from S3 with a SigV4-signed GET.
type S3Source struct {
	httpClient  *http.Client
	bucket      string
	key         string
	region      string
	endpoint    string
	credentials aws.CredentialsProvider
	signer      *v4.Signer
}

// NewS3Source resolves AWS credentials (static from config, or the default
// chain) and returns a source for s3://bucket/key.
func NewS3Source(ctx context.Context, cfg *config.S3Config, bucket, key string, timeout time.Duration) (*S3Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("S3 config is nil")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3Source{
		httpClient:  &http.Client{Timeout: timeout},
		bucket:      bucket,
		key:         key,
		region:      cfg.Region,
		endpoint:    strings.TrimSuffix(cfg.Endpoint, "/"),
		credentials: awsCfg.Credentials,
		signer:      v4.NewSigner(),
	}, nil
}

func (s *S3Source) Name() string { return fmt.Sprintf("s3://%s/%s", s.bucket, s.key) }

// objectURL uses path-style addressing when a custom endpoint is configured.
func (s *S3Source) objectURL() string {
	if s.endpoint != "" {
		return fmt.Sprintf("%s/%s/%s", s.endpoint, s.bucket, s.key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, s.key)
}

// Load fetches and decodes the object.
func (s *S3Source) Load(ctx context.Context) (*models.Dataset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.objectURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Amz-Content-Sha256", emptyPayloadHash)

	creds, err := s.credentials.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve AWS credentials: %w", err)
	}
	if err := s.signer.SignHTTP(ctx, creds, req, emptyPayloadHash, "s3", s.region, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to sign request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{StatusCode: 0, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Warn().
			Str("bucket", s.bucket).
			Str("key", s.key).
			Int("status_code", resp.StatusCode).
			Msg("S3 dataset fetch failed")
		return nil, &TransportError{StatusCode: resp.StatusCode, Message: "dataset object unavailable"}
	}
	return decodeDataset(bytesReader(body))
}
