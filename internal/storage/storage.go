package storage

import (
	"context"
	"io"
	"time"
)

// Storage defines an abstraction over object-storage backends (S3 / MinIO / memory).
// A Storage is bound to a single bucket at construction time.
type Storage interface {
	// List returns the objects and common prefixes under opts.Prefix.
	// With an empty Delimiter every key under the prefix is returned.
	// Implementations follow pagination until the listing is complete.
	List(ctx context.Context, opts ListOptions) (*Listing, error)

	// Stat reads object metadata. A missing object yields an error wrapping ErrNotFound.
	Stat(ctx context.Context, objectKey string) (*ObjectInfo, error)

	// Put writes the object in a single request.
	// size is the content length (-1 if unknown).
	Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error

	// Upload streams the content from reader into the bucket, switching to a
	// multipart transfer when the body is larger than one part.
	Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, opts UploadOptions) error

	// Delete removes the object by key.
	Delete(ctx context.Context, objectKey string) error

	// DeleteMany removes every key in one logical batch. Only an aggregate
	// failure is reported; there is no per-object status.
	DeleteMany(ctx context.Context, objectKeys []string) error

	// PresignGet returns a time-limited GET URL for the object.
	PresignGet(ctx context.Context, objectKey string, ttl time.Duration) (string, error)

	// EnsureBucket creates the bucket if it does not exist.
	EnsureBucket(ctx context.Context) error
}

// ListOptions configures a List call.
type ListOptions struct {
	Prefix    string
	Delimiter string
}

// Listing is the result of a List call.
type Listing struct {
	// CommonPrefixes are the immediate child prefixes, in storage order.
	CommonPrefixes []string

	// Objects are the keys directly under the prefix (or all keys when no delimiter was given).
	Objects []Object

	// BaseURL is endpoint + bucket + "/". Appending an encoded key yields the
	// public URL of an object.
	BaseURL string
}

// Object is a listing entry.
type Object struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// ObjectInfo is the metadata returned by Stat.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	ETag         string
	LastModified time.Time
}

// UploadOptions configures Upload.
type UploadOptions struct {
	ContentType string

	// PublicRead applies the public-read canned ACL so the object can be
	// fetched by direct URL.
	PublicRead bool
}

// ACLPublicRead is the canned ACL applied when UploadOptions.PublicRead is set.
const ACLPublicRead = "public-read"
