// Package memory is an in-process storage.Storage used for local runs and tests.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mamed-gasimov/photo-albums/internal/storage"
)

// compile-time check that Bucket satisfies the Storage interface.
var _ storage.Storage = (*Bucket)(nil)

type object struct {
	data        []byte
	contentType string
	acl         string
	modified    time.Time
}

// Bucket keeps objects in a map keyed by object key.
type Bucket struct {
	mu      sync.RWMutex
	name    string
	baseURL string
	objects map[string]object
	now     func() time.Time
}

// New creates an empty bucket. Public URLs are rooted at baseURL + name + "/".
func New(baseURL, name string) *Bucket {
	if baseURL == "" {
		baseURL = "memory://"
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Bucket{
		name:    name,
		baseURL: baseURL + name + "/",
		objects: make(map[string]object),
		now:     time.Now,
	}
}

func (b *Bucket) List(ctx context.Context, opts storage.ListOptions) (*storage.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.NewError("list objects", opts.Prefix, err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.objects))
	for k := range b.objects {
		if strings.HasPrefix(k, opts.Prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	listing := &storage.Listing{BaseURL: b.baseURL}
	seen := make(map[string]bool)
	for _, k := range keys {
		rest := strings.TrimPrefix(k, opts.Prefix)
		if opts.Delimiter != "" {
			if i := strings.Index(rest, opts.Delimiter); i >= 0 {
				p := opts.Prefix + rest[:i+len(opts.Delimiter)]
				if !seen[p] {
					seen[p] = true
					listing.CommonPrefixes = append(listing.CommonPrefixes, p)
				}
				continue
			}
		}
		obj := b.objects[k]
		listing.Objects = append(listing.Objects, storage.Object{
			Key:          k,
			Size:         int64(len(obj.data)),
			LastModified: obj.modified,
		})
	}

	return listing, nil
}

func (b *Bucket) Stat(ctx context.Context, objectKey string) (*storage.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, storage.NewError("stat object", objectKey, err)
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[objectKey]
	if !ok {
		return nil, storage.NotFound("stat object", objectKey, nil)
	}

	return &storage.ObjectInfo{
		Key:          objectKey,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.modified,
	}, nil
}

func (b *Bucket) Put(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	return b.write(ctx, "put object", objectKey, reader, contentType, "")
}

func (b *Bucket) Upload(ctx context.Context, objectKey string, reader io.Reader, size int64, opts storage.UploadOptions) error {
	acl := ""
	if opts.PublicRead {
		acl = storage.ACLPublicRead
	}
	return b.write(ctx, "upload object", objectKey, reader, opts.ContentType, acl)
}

func (b *Bucket) write(ctx context.Context, op, objectKey string, reader io.Reader, contentType, acl string) error {
	if err := ctx.Err(); err != nil {
		return storage.NewError(op, objectKey, err)
	}

	var buf bytes.Buffer
	if reader != nil {
		if _, err := io.Copy(&buf, reader); err != nil {
			return storage.NewError(op, objectKey, fmt.Errorf("read body: %w", err))
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = object{
		data:        buf.Bytes(),
		contentType: contentType,
		acl:         acl,
		modified:    b.now(),
	}
	return nil
}

// Delete follows S3 semantics: removing a missing key succeeds.
func (b *Bucket) Delete(ctx context.Context, objectKey string) error {
	if err := ctx.Err(); err != nil {
		return storage.NewError("remove object", objectKey, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.objects, objectKey)
	return nil
}

func (b *Bucket) DeleteMany(ctx context.Context, objectKeys []string) error {
	if err := ctx.Err(); err != nil {
		return storage.NewError("remove objects", "", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, k := range objectKeys {
		delete(b.objects, k)
	}
	return nil
}

func (b *Bucket) PresignGet(ctx context.Context, objectKey string, ttl time.Duration) (string, error) {
	if _, err := b.Stat(ctx, objectKey); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("expires", b.now().Add(ttl).UTC().Format(time.RFC3339))
	return b.baseURL + url.PathEscape(objectKey) + "?" + q.Encode(), nil
}

func (b *Bucket) EnsureBucket(context.Context) error {
	return nil
}

// ACL returns the canned ACL the object was written with.
func (b *Bucket) ACL(objectKey string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.objects[objectKey]
	return obj.acl, ok
}

// Bucket returns the bucket name.
func (b *Bucket) Bucket() string {
	return b.name
}
