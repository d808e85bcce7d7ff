package minio

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamed-gasimov/photo-albums/internal/storage"
)

const listAlbumsXML = `<?xml version="1.0" encoding="UTF-8"?>
<ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Name>albums</Name>
  <Prefix></Prefix>
  <KeyCount>3</KeyCount>
  <MaxKeys>1000</MaxKeys>
  <Delimiter>/</Delimiter>
  <IsTruncated>false</IsTruncated>
  <Contents>
    <Key>empty</Key>
    <LastModified>2024-06-01T10:00:00.000Z</LastModified>
    <ETag>"d41d8cd98f00b204e9800998ecf8427e"</ETag>
    <Size>0</Size>
    <StorageClass>STANDARD</StorageClass>
  </Contents>
  <CommonPrefixes><Prefix>beach/</Prefix></CommonPrefixes>
  <CommonPrefixes><Prefix>city/</Prefix></CommonPrefixes>
</ListBucketResult>`

const deleteResultXML = `<?xml version="1.0" encoding="UTF-8"?>
<DeleteResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/">
  <Error>
    <Key>beach/b.png</Key>
    <Code>AccessDenied</Code>
    <Message>Access Denied</Message>
  </Error>
</DeleteResult>`

type seenRequest struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   string
}

// fakeS3 answers the handful of S3 calls the client makes.
type fakeS3 struct {
	mu       sync.Mutex
	requests []seenRequest
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, seenRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   string(body),
	})
	f.mu.Unlock()

	q := r.URL.Query()
	switch {
	case r.Method == http.MethodGet && q.Get("list-type") == "2":
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, listAlbumsXML)
	case r.Method == http.MethodPost && q.Has("delete"):
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, deleteResultXML)
	case r.Method == http.MethodHead && r.URL.Path == "/albums/beach/a.png":
		w.Header().Set("Content-Length", "4")
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("ETag", `"abc123"`)
		w.Header().Set("Last-Modified", time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodHead:
		w.WriteHeader(http.StatusNotFound)
	case r.Method == http.MethodPut:
		w.Header().Set("ETag", `"put123"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeS3) last(method string) (seenRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.requests) - 1; i >= 0; i-- {
		if f.requests[i].Method == method {
			return f.requests[i], true
		}
	}
	return seenRequest{}, false
}

func newTestClient(t *testing.T) (*Client, *fakeS3) {
	t.Helper()

	fake := &fakeS3{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(Options{
		Endpoint:  strings.TrimPrefix(srv.URL, "http://"),
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "albums",
		Region:    "us-east-1",
		PartSize:  5 * 1024 * 1024,
	})
	require.NoError(t, err)
	return c, fake
}

func TestClient_ListSplitsCommonPrefixes(t *testing.T) {
	c, fake := newTestClient(t)

	listing, err := c.List(context.Background(), storage.ListOptions{Delimiter: "/"})
	require.NoError(t, err)

	assert.Equal(t, []string{"beach/", "city/"}, listing.CommonPrefixes)
	require.Len(t, listing.Objects, 1)
	assert.Equal(t, "empty", listing.Objects[0].Key)
	assert.Equal(t, int64(0), listing.Objects[0].Size)
	assert.True(t, strings.HasSuffix(listing.BaseURL, "/albums/"))

	req, ok := fake.last(http.MethodGet)
	require.True(t, ok)
	assert.Equal(t, "/albums/", req.Path)
	assert.Equal(t, "/", req.Query["delimiter"][0])
}

func TestClient_ListRejectsOtherDelimiters(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.List(context.Background(), storage.ListOptions{Delimiter: "|"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported delimiter")
}

func TestClient_StatMissingIsNotFound(t *testing.T) {
	c, _ := newTestClient(t)

	_, err := c.Stat(context.Background(), "beach/missing.png")
	require.Error(t, err)
	assert.True(t, storage.IsNotFound(err))
}

func TestClient_Stat(t *testing.T) {
	c, _ := newTestClient(t)

	info, err := c.Stat(context.Background(), "beach/a.png")
	require.NoError(t, err)
	assert.Equal(t, int64(4), info.Size)
	assert.Equal(t, "image/png", info.ContentType)
	assert.Equal(t, "abc123", info.ETag)
}

func TestClient_UploadSetsPublicRead(t *testing.T) {
	c, fake := newTestClient(t)

	err := c.Upload(context.Background(), "vacation/cat.png", strings.NewReader("meow"), 4, storage.UploadOptions{
		ContentType: "image/png",
		PublicRead:  true,
	})
	require.NoError(t, err)

	req, ok := fake.last(http.MethodPut)
	require.True(t, ok)
	assert.Equal(t, "/albums/vacation/cat.png", req.Path)
	assert.Equal(t, storage.ACLPublicRead, req.Header.Get("X-Amz-Acl"))
	assert.Equal(t, "image/png", req.Header.Get("Content-Type"))
}

func TestClient_PutHasNoACL(t *testing.T) {
	c, fake := newTestClient(t)

	require.NoError(t, c.Put(context.Background(), "vacation", strings.NewReader(""), 0, ""))

	req, ok := fake.last(http.MethodPut)
	require.True(t, ok)
	assert.Equal(t, "/albums/vacation", req.Path)
	assert.Empty(t, req.Header.Get("X-Amz-Acl"))
}

func TestClient_DeleteManyAggregatesErrors(t *testing.T) {
	c, fake := newTestClient(t)

	err := c.DeleteMany(context.Background(), []string{"beach/a.png", "beach/b.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 keys failed")
	assert.Contains(t, err.Error(), "beach/b.png")

	req, ok := fake.last(http.MethodPost)
	require.True(t, ok)
	assert.Contains(t, req.Body, "<Key>beach/a.png</Key>")
	assert.Contains(t, req.Body, "<Key>beach/b.png</Key>")
}

func TestClient_DeleteManyEmpty(t *testing.T) {
	c, fake := newTestClient(t)

	require.NoError(t, c.DeleteMany(context.Background(), nil))
	_, ok := fake.last(http.MethodPost)
	assert.False(t, ok)
}

func TestClient_PresignGet(t *testing.T) {
	c, _ := newTestClient(t)

	u, err := c.PresignGet(context.Background(), "vacation/cat.png", 15*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, u, "/albums/vacation/cat.png?")
	assert.Contains(t, u, "X-Amz-Expires=900")
}
