// Package objectstore wraps the S3 compatible client libraries behind the handful
// of bucket and object calls the demo needs.
package objectstore

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
)

var (
	ErrUnknownBackend     = errors.New("unknown backend")
	ErrSignerUnsupported  = errors.New("signer not supported by backend")
	ErrInvalidEndpoint    = errors.New("invalid endpoint")
	ErrUnableToConnect    = errors.New("unable to create object store client")
	ErrObjectStoreRequest = errors.New("object store request failed")
	ErrCredentials        = errors.New("unable to retrieve credentials")
)

type Backend string

const (
	BackendS3    Backend = "s3"
	BackendMinio Backend = "minio"

	DEFAULT_REGION = "us-east-1"
)

func ParseBackend(s string) (Backend, error) {
	switch Backend(strings.ToLower(s)) {
	case "", BackendS3:
		return BackendS3, nil
	case BackendMinio:
		return BackendMinio, nil
	}
	return "", fmt.Errorf("backend: %s, %w", s, ErrUnknownBackend)
}

// Client is the set of operations the demo runs against a bucket
type Client interface {
	ListBuckets(ctx context.Context) ([]string, error)
	BucketExists(ctx context.Context, bucket string) (bool, error)
	CreateBucket(ctx context.Context, bucket string) error
	DeleteBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
	ListObjects(ctx context.Context, bucket string) ([]string, error)
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}

type Config struct {
	Endpoint     string
	Region       string
	Backend      Backend
	UseV4Signing bool
	// Insecure skips TLS verification, self signed certs are common on test clusters
	Insecure bool
}

// New returns a path style client for the configured backend.
// The s3 backend asks the provider for credentials on demand,
// minio-go needs them up front so they are retrieved once here.
func New(ctx context.Context, conf Config, provider aws.CredentialsProvider) (Client, error) {
	u, err := url.Parse(conf.Endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("endpoint %q, %w", conf.Endpoint, ErrInvalidEndpoint)
	}
	if conf.Region == "" {
		conf.Region = DEFAULT_REGION
	}

	switch conf.Backend {
	case "", BackendS3:
		c, err := newS3Client(ctx, conf, provider)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendMinio:
		c, err := newMinioClient(ctx, u, conf, provider)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("backend: %s, %w", conf.Backend, ErrUnknownBackend)
}

func insecureTLS(tr *http.Transport) {
	if tr.TLSClientConfig == nil {
		tr.TLSClientConfig = &tls.Config{}
	}
	tr.TLSClientConfig.InsecureSkipVerify = true
}

func requestErr(op string, err error) error {
	return fmt.Errorf("%s: %w, %w", op, err, ErrObjectStoreRequest)
}
