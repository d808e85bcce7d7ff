// Package s3 implements storage.Storage on top of the AWS SDK for Go v2.
//
// Uploads go through the managed uploader so large photos are sent as a
// multipart transfer. Credentials come from a Cognito identity pool when one
// is configured, from a static key pair when given, and from the default
// credential chain otherwise. SDK retries are disabled: a failed call is
// reported to the caller as is.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentity"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/mamed-gasimov/photo-albums/internal/storage"
)

// maxDeleteBatch is the S3 limit of keys per DeleteObjects request.
const maxDeleteBatch = 1000

// compile-time check that Client satisfies the Storage interface.
var _ storage.Storage = (*Client)(nil)

// Options configures the S3 client.
type Options struct {
	Bucket string
	Region string

	// Endpoint overrides the AWS endpoint (S3-compatible services, localstack).
	Endpoint       string
	ForcePathStyle bool

	AccessKeyID     string
	SecretAccessKey string

	// IdentityPoolID selects Cognito federated credentials.
	IdentityPoolID string

	PartSize    int64
	Concurrency int
}

// Client wraps the AWS S3 SDK and implements storage.Storage.
type Client struct {
	api       API
	uploader  *manager.Uploader
	presigner Presigner
	bucket    string
	region    string
	baseURL   string
}

// New loads the AWS configuration and creates the client.
func New(ctx context.Context, opts Options) (*Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}
	if opts.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	if opts.IdentityPoolID != "" {
		identity := newIdentityClient(cfg)
		cfg.Credentials = aws.NewCredentialsCache(NewIdentityPoolProvider(identity, opts.IdentityPoolID))
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.ForcePathStyle
		o.Retryer = aws.NopRetryer{}
	})

	return newClient(client, s3.NewPresignClient(client), opts), nil
}

// newIdentityClient builds the Cognito client used to fetch credentials. Its
// calls are unsigned and never retried.
func newIdentityClient(cfg aws.Config) *cognitoidentity.Client {
	anon := cfg.Copy()
	anon.Credentials = aws.AnonymousCredentials{}
	anon.Retryer = func() aws.Retryer { return aws.NopRetryer{} }
	return cognitoidentity.NewFromConfig(anon)
}

func newClient(api API, presigner Presigner, opts Options) *Client {
	uploader := manager.NewUploader(api, func(u *manager.Uploader) {
		if opts.PartSize >= manager.MinUploadPartSize {
			u.PartSize = opts.PartSize
		}
		if opts.Concurrency > 0 {
			u.Concurrency = opts.Concurrency
		}
	})

	return &Client{
		api:       api,
		uploader:  uploader,
		presigner: presigner,
		bucket:    opts.Bucket,
		region:    opts.Region,
		baseURL:   baseURL(opts),
	}
}

func baseURL(opts Options) string {
	endpoint := opts.Endpoint
	if endpoint == "" {
		region := opts.Region
		if region == "" {
			region = "us-east-1"
		}
		endpoint = "https://s3." + region + ".amazonaws.com"
	}
	return strings.TrimRight(endpoint, "/") + "/" + opts.Bucket + "/"
}

// EnsureBucket creates the bucket if it does not already exist.
func (c *Client) EnsureBucket(ctx context.Context) error {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(c.bucket)})
	if err == nil {
		return nil
	}
	if !isNotFound(err) {
		return fmt.Errorf("check bucket: %w", err)
	}

	in := &s3.CreateBucketInput{Bucket: aws.String(c.bucket)}
	if c.region != "" && c.region != "us-east-1" {
		in.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(c.region),
		}
	}
	if _, err := c.api.CreateBucket(ctx, in); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

// List pages through ListObjectsV2 until the listing is complete.
func (c *Client) List(ctx context.Context, opts storage.ListOptions) (*storage.Listing, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(c.bucket)}
	if opts.Prefix != "" {
		in.Prefix = aws.String(opts.Prefix)
	}
	if opts.Delimiter != "" {
		in.Delimiter = aws.String(opts.Delimiter)
	}

	listing := &storage.Listing{BaseURL: c.baseURL}
	p := s3.NewListObjectsV2Paginator(c.api, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, storage.NewError("list objects", opts.Prefix, err)
		}
		for _, cp := range page.CommonPrefixes {
			listing.CommonPrefixes = append(listing.CommonPrefixes, aws.ToString(cp.Prefix))
		}
		for _, obj := range page.Contents {
			listing.Objects = append(listing.Objects, storage.Object{
				Key:          aws.ToString(obj.Key),
				Size:         aws.ToInt64(obj.Size),
				ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	return listing, nil
}

// Stat issues a HeadObject.
func (c *Client) Stat(ctx context.Context, objectKey string) (*storage.ObjectInfo, error) {
	out, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, storage.NotFound("head object", objectKey, err)
		}
		return nil, storage.NewError("head object", objectKey, err)
	}

	return &storage.ObjectInfo{
		Key:          objectKey,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		ETag:         strings.Trim(aws.ToString(out.ETag), `"`),
		LastModified: aws.ToTime(out.LastModified),
	}, nil
}

// Put writes the object with a single PutObject.
func (c *Client) Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey),
		Body:   reader,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := c.api.PutObject(ctx, in); err != nil {
		return storage.NewError("put object", objectKey, err)
	}
	return nil
}

// Upload sends the body through the managed uploader.
func (c *Client) Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, opts storage.UploadOptions) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey),
		Body:   reader,
	}
	if opts.ContentType != "" {
		in.ContentType = aws.String(opts.ContentType)
	}
	if opts.PublicRead {
		in.ACL = types.ObjectCannedACLPublicRead
	}

	if _, err := c.uploader.Upload(ctx, in); err != nil {
		return storage.NewError("upload object", objectKey, err)
	}
	return nil
}

// Delete removes one object.
func (c *Client) Delete(ctx context.Context, objectKey string) error {
	_, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return storage.NewError("delete object", objectKey, err)
	}
	return nil
}

// DeleteMany deletes in quiet mode, splitting into requests of at most 1000 keys.
// Batches are sent in order; the first failing request stops the deletion.
func (c *Client) DeleteMany(ctx context.Context, objectKeys []string) error {
	for start := 0; start < len(objectKeys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(objectKeys))

		ids := make([]types.ObjectIdentifier, 0, end-start)
		for _, k := range objectKeys[start:end] {
			ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
		}

		out, err := c.api.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(c.bucket),
			Delete: &types.Delete{
				Objects: ids,
				Quiet:   aws.Bool(true),
			},
		})
		if err != nil {
			return storage.NewError("delete objects", "", err)
		}
		if len(out.Errors) > 0 {
			first := out.Errors[0]
			return storage.NewError("delete objects", aws.ToString(first.Key),
				fmt.Errorf("%d of %d keys failed, first: %s: %s",
					len(out.Errors), end-start, aws.ToString(first.Code), aws.ToString(first.Message)))
		}
	}
	return nil
}

// PresignGet returns a presigned GET URL valid for ttl.
func (c *Client) PresignGet(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	if c.presigner == nil {
		return "", storage.NewError("presign object", objectKey, errors.New("presigning not configured"))
	}

	req, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(objectKey),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", storage.NewError("presign object", objectKey, err)
	}
	return req.URL, nil
}

// Bucket returns the configured bucket name.
func (c *Client) Bucket() string {
	return c.bucket
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}
	return false
}
