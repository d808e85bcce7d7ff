package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/mamed-gasimov/photo-albums/internal/storage"
)

// compile-time check that Client satisfies the Storage interface.
var _ storage.Storage = (*Client)(nil)

// Options configures the MinIO client.
type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool

	// PartSize is the multipart chunk size used by Upload. Zero lets minio-go decide.
	PartSize uint64
	// Concurrency is the number of parts uploaded in parallel.
	Concurrency uint
}

// Client wraps the MinIO SDK and implements storage.Storage.
type Client struct {
	client      *minio.Client
	bucket      string
	region      string
	partSize    uint64
	concurrency uint
}

// New creates a new MinIO storage client.
func New(opts Options) (*Client, error) {
	mc, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new client: %w", err)
	}

	return &Client{
		client:      mc,
		bucket:      opts.Bucket,
		region:      opts.Region,
		partSize:    opts.PartSize,
		concurrency: opts.Concurrency,
	}, nil
}

// EnsureBucket creates the bucket if it does not already exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}

	if err := c.client.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: c.region}); err != nil {
		return fmt.Errorf("make bucket: %w", err)
	}
	return nil
}

// List walks the bucket. MinIO only supports "/" as a delimiter; in
// non-recursive mode common prefixes arrive as keys ending in "/".
func (c *Client) List(ctx context.Context, opts storage.ListOptions) (*storage.Listing, error) {
	if opts.Delimiter != "" && opts.Delimiter != "/" {
		return nil, storage.NewError("list objects", opts.Prefix, fmt.Errorf("unsupported delimiter %q", opts.Delimiter))
	}

	listing := &storage.Listing{BaseURL: c.baseURL()}
	for obj := range c.client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:    opts.Prefix,
		Recursive: opts.Delimiter == "",
	}) {
		if obj.Err != nil {
			return nil, storage.NewError("list objects", opts.Prefix, obj.Err)
		}
		if opts.Delimiter != "" && isCommonPrefix(obj) {
			listing.CommonPrefixes = append(listing.CommonPrefixes, obj.Key)
			continue
		}
		listing.Objects = append(listing.Objects, storage.Object{
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}

	return listing, nil
}

func isCommonPrefix(obj minio.ObjectInfo) bool {
	return strings.HasSuffix(obj.Key, "/") && obj.Size == 0 && obj.ETag == "" && obj.LastModified.IsZero()
}

// Stat reads object metadata.
func (c *Client) Stat(ctx context.Context, objectKey string) (*storage.ObjectInfo, error) {
	info, err := c.client.StatObject(ctx, c.bucket, objectKey, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.NotFound("stat object", objectKey, err)
		}
		return nil, storage.NewError("stat object", objectKey, err)
	}

	return &storage.ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
		LastModified: info.LastModified,
	}, nil
}

// Put writes the object in a single request.
func (c *Client) Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{
		ContentType:      contentType,
		DisableMultipart: true,
	}

	_, err := c.client.PutObject(ctx, c.bucket, objectKey, reader, size, opts)
	if err != nil {
		return storage.NewError("put object", objectKey, err)
	}
	return nil
}

// Upload streams data from reader directly into MinIO (no buffering to disk).
// Pass size = -1 if content length is unknown; minio-go then always uses multipart.
func (c *Client) Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, opts storage.UploadOptions) error {
	putOpts := minio.PutObjectOptions{
		ContentType: opts.ContentType,
		PartSize:    c.partSize,
		NumThreads:  c.concurrency,
	}
	if opts.PublicRead {
		putOpts.UserMetadata = map[string]string{"x-amz-acl": storage.ACLPublicRead}
	}

	_, err := c.client.PutObject(ctx, c.bucket, objectKey, reader, size, putOpts)
	if err != nil {
		return storage.NewError("upload object", objectKey, err)
	}
	return nil
}

// Delete removes an object from the bucket by key.
func (c *Client) Delete(ctx context.Context, objectKey string) error {
	err := c.client.RemoveObject(ctx, c.bucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil {
		return storage.NewError("remove object", objectKey, err)
	}
	return nil
}

// DeleteMany removes every key with a single RemoveObjects call.
func (c *Client) DeleteMany(ctx context.Context, objectKeys []string) error {
	if len(objectKeys) == 0 {
		return nil
	}

	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for _, k := range objectKeys {
			select {
			case objectsCh <- minio.ObjectInfo{Key: k}:
			case <-ctx.Done():
				return
			}
		}
	}()

	var errs []error
	for rErr := range c.client.RemoveObjects(ctx, c.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("%s: %w", rErr.ObjectName, rErr.Err))
	}
	if len(errs) > 0 {
		return storage.NewError("remove objects", "", fmt.Errorf("%d of %d keys failed: %w", len(errs), len(objectKeys), errors.Join(errs...)))
	}
	if err := ctx.Err(); err != nil {
		return storage.NewError("remove objects", "", err)
	}
	return nil
}

// PresignGet returns a presigned GET URL.
func (c *Client) PresignGet(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	u, err := c.client.PresignedGetObject(ctx, c.bucket, objectKey, ttl, url.Values{})
	if err != nil {
		return "", storage.NewError("presign object", objectKey, err)
	}
	return u.String(), nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

func (c *Client) baseURL() string {
	endpoint := c.client.EndpointURL().String()
	return strings.TrimRight(endpoint, "/") + "/" + c.bucket + "/"
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "NoSuchKey" || resp.Code == "NotFound" || resp.StatusCode == http.StatusNotFound
}
