package albums

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mamed-gasimov/photo-albums/internal/modules/activity"
	"github.com/mamed-gasimov/photo-albums/internal/storage"
	"github.com/mamed-gasimov/photo-albums/internal/storage/memory"
)

// recordingStore wraps the memory bucket, logs every call and can fail
// selected operations.
type recordingStore struct {
	*memory.Bucket

	mu      sync.Mutex
	calls   []string
	deletes [][]string
	fail    map[string]error
}

var _ storage.Storage = (*recordingStore)(nil)

func newRecordingStore() *recordingStore {
	return &recordingStore{
		Bucket: memory.New("https://s3.eu-west-1.amazonaws.com", "albums"),
		fail:   make(map[string]error),
	}
}

func (r *recordingStore) log(op, arg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("%s(%s)", op, arg))
	return r.fail[op]
}

func (r *recordingStore) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
	r.deletes = nil
}

func (r *recordingStore) List(ctx context.Context, opts storage.ListOptions) (*storage.Listing, error) {
	if err := r.log("list", opts.Prefix+"|"+opts.Delimiter); err != nil {
		return nil, storage.NewError("list objects", opts.Prefix, err)
	}
	return r.Bucket.List(ctx, opts)
}

func (r *recordingStore) Stat(ctx context.Context, key string) (*storage.ObjectInfo, error) {
	if err := r.log("stat", key); err != nil {
		return nil, storage.NewError("stat object", key, err)
	}
	return r.Bucket.Stat(ctx, key)
}

func (r *recordingStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	if err := r.log("put", key); err != nil {
		return storage.NewError("put object", key, err)
	}
	return r.Bucket.Put(ctx, key, body, size, contentType)
}

func (r *recordingStore) Upload(ctx context.Context, key string, body io.Reader, size int64, opts storage.UploadOptions) error {
	if err := r.log("upload", key); err != nil {
		return storage.NewError("upload object", key, err)
	}
	return r.Bucket.Upload(ctx, key, body, size, opts)
}

func (r *recordingStore) Delete(ctx context.Context, key string) error {
	if err := r.log("delete", key); err != nil {
		return storage.NewError("remove object", key, err)
	}
	return r.Bucket.Delete(ctx, key)
}

func (r *recordingStore) DeleteMany(ctx context.Context, keys []string) error {
	if err := r.log("deleteMany", strings.Join(keys, ",")); err != nil {
		return storage.NewError("remove objects", "", err)
	}
	r.mu.Lock()
	r.deletes = append(r.deletes, append([]string(nil), keys...))
	r.mu.Unlock()
	return r.Bucket.DeleteMany(ctx, keys)
}

func (r *recordingStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if err := r.log("presign", key); err != nil {
		return "", storage.NewError("presign object", key, err)
	}
	return r.Bucket.PresignGet(ctx, key, ttl)
}

func (r *recordingStore) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recordingStore) countWrites() int {
	n := 0
	for _, c := range r.Calls() {
		if strings.HasPrefix(c, "put(") || strings.HasPrefix(c, "upload(") ||
			strings.HasPrefix(c, "delete(") || strings.HasPrefix(c, "deleteMany(") {
			n++
		}
	}
	return n
}

type memoryRecorder struct {
	mu      sync.Mutex
	entries []activity.Entry
	err     error
}

func (m *memoryRecorder) Record(_ context.Context, e *activity.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, *e)
	return m.err
}

type fakeAnalyzer struct {
	album string
	names []string
	err   error
}

func (f *fakeAnalyzer) AlbumSummary(_ context.Context, album string, names []string) (string, error) {
	f.album = album
	f.names = names
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("%d photos of %s", len(names), album), nil
}
