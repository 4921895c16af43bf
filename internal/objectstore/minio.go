package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/minio/minio-go/v7"
	mcreds "github.com/minio/minio-go/v7/pkg/credentials"
)

type MinioApi interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	RemoveBucket(ctx context.Context, bucketName string) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
}

// MinioClient talks to the endpoint through minio-go,
// which unlike the aws sdk can still sign with V2.
type MinioClient struct {
	svc    MinioApi
	region string
}

func NewMinioClientFromApi(svc MinioApi, region string) *MinioClient {
	return &MinioClient{svc: svc, region: region}
}

func newMinioClient(ctx context.Context, u *url.URL, conf Config, provider aws.CredentialsProvider) (*MinioClient, error) {
	creds, err := provider.Retrieve(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w, %w", err, ErrCredentials)
	}
	secure := u.Scheme == "https"

	signer := mcreds.NewStaticV4
	if !conf.UseV4Signing {
		signer = mcreds.NewStaticV2
	}

	opts := &minio.Options{
		Creds:        signer(creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
		Secure:       secure,
		Region:       conf.Region,
		BucketLookup: minio.BucketLookupPath,
	}

	if conf.Insecure && secure {
		tr, err := minio.DefaultTransport(secure)
		if err != nil {
			return nil, fmt.Errorf("%s, %w", err, ErrUnableToConnect)
		}
		insecureTLS(tr)
		opts.Transport = tr
	}

	svc, err := minio.New(u.Host, opts)
	if err != nil {
		return nil, fmt.Errorf("%s, %w", err, ErrUnableToConnect)
	}
	return &MinioClient{svc: svc, region: conf.Region}, nil
}

func isMinioNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return true
	}
	return false
}

func (c *MinioClient) ListBuckets(ctx context.Context) ([]string, error) {
	buckets, err := c.svc.ListBuckets(ctx)
	if err != nil {
		return nil, requestErr("list buckets", err)
	}
	names := []string{}
	for _, b := range buckets {
		names = append(names, b.Name)
	}
	return names, nil
}

func (c *MinioClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	ok, err := c.svc.BucketExists(ctx, bucket)
	if err != nil {
		return false, requestErr("bucket exists", err)
	}
	return ok, nil
}

func (c *MinioClient) CreateBucket(ctx context.Context, bucket string) error {
	if err := c.svc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
		return requestErr("create bucket", err)
	}
	return nil
}

func (c *MinioClient) DeleteBucket(ctx context.Context, bucket string) error {
	if err := c.svc.RemoveBucket(ctx, bucket); err != nil {
		return requestErr("delete bucket", err)
	}
	return nil
}

func (c *MinioClient) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := c.svc.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return requestErr("put object", err)
	}
	return nil
}

func (c *MinioClient) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	if _, err := c.svc.StatObject(ctx, bucket, key, minio.StatObjectOptions{}); err != nil {
		if isMinioNotFound(err) {
			return false, nil
		}
		return false, requestErr("stat object", err)
	}
	return true, nil
}

func (c *MinioClient) ListObjects(ctx context.Context, bucket string) ([]string, error) {
	// stops the listing goroutine on early return
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	keys := []string{}
	for obj := range c.svc.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, requestErr("list objects", obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func (c *MinioClient) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := c.svc.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, requestErr("get object", err)
	}
	defer obj.Close()
	b, err := io.ReadAll(obj)
	if err != nil {
		return nil, requestErr("get object", err)
	}
	return b, nil
}

func (c *MinioClient) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := c.svc.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return requestErr("delete object", err)
	}
	return nil
}
