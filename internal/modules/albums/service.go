package albums

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mamed-gasimov/photo-albums/internal/modules/activity"
	"github.com/mamed-gasimov/photo-albums/internal/modules/analysis"
	"github.com/mamed-gasimov/photo-albums/internal/storage"
)

const (
	opCreateAlbum = "create album"
	opViewAlbum   = "view album"
	opListAlbums  = "list albums"
	opUploadPhoto = "upload photo"
	opDeletePhoto = "delete photo"
	opDeleteAlbum = "delete album"
	opSignURL     = "sign photo url"
)

const (
	defaultSignedURLTTL = 15 * time.Minute
	// maxSignedURLTTL is the longest expiry S3 accepts for SigV4 presigned URLs.
	maxSignedURLTTL = 7 * 24 * time.Hour
)

// URLMode selects how photo URLs are built.
type URLMode string

const (
	// URLModePublic concatenates the bucket base URL and the encoded key.
	URLModePublic URLMode = "public"
	// URLModeSigned presigns a GET request per photo.
	URLModeSigned URLMode = "signed"
)

type service interface {
	ListAlbums(ctx context.Context) (*AlbumList, error)
	CreateAlbum(ctx context.Context, name string) (*AlbumView, error)
	ViewAlbum(ctx context.Context, name string) (*AlbumView, error)
	AddPhoto(ctx context.Context, album string, upload *Upload) (*AlbumView, error)
	DeletePhoto(ctx context.Context, album, photoKey string) (*AlbumView, error)
	DeleteAlbum(ctx context.Context, album string) (*AlbumList, error)
	PhotoURL(ctx context.Context, album, photoKey string, ttl time.Duration) (string, error)
	SummarizeAlbum(ctx context.Context, album string) (string, error)
}

var _ service = (*AlbumService)(nil)

// AlbumService maps album actions onto object-storage calls. Calls are issued
// one at a time and nothing is retried; every mutation ends with a fresh
// listing of the affected view.
type AlbumService struct {
	store     storage.Storage
	activity  activity.Recorder
	analyzer  analysis.Provider
	urlMode   URLMode
	signedTTL time.Duration
	log       zerolog.Logger
}

type Option func(*AlbumService)

// WithActivity records every mutating action.
func WithActivity(r activity.Recorder) Option {
	return func(s *AlbumService) {
		if r != nil {
			s.activity = r
		}
	}
}

// WithAnalyzer enables SummarizeAlbum.
func WithAnalyzer(p analysis.Provider) Option {
	return func(s *AlbumService) { s.analyzer = p }
}

// WithSignedURLs makes album views carry presigned URLs valid for ttl.
func WithSignedURLs(ttl time.Duration) Option {
	return func(s *AlbumService) {
		s.urlMode = URLModeSigned
		if ttl > 0 {
			s.signedTTL = min(ttl, maxSignedURLTTL)
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *AlbumService) { s.log = l }
}

func NewAlbumService(store storage.Storage, opts ...Option) *AlbumService {
	s := &AlbumService{
		store:     store,
		activity:  activity.Nop{},
		urlMode:   URLModePublic,
		signedTTL: defaultSignedURLTTL,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListAlbums lists the bucket root with the separator as delimiter. Every
// common prefix is an album; zero-length root objects are markers of empty
// albums and are listed after them.
func (s *AlbumService) ListAlbums(ctx context.Context) (*AlbumList, error) {
	listing, err := s.store.List(ctx, storage.ListOptions{Delimiter: Separator})
	if err != nil {
		return nil, &StorageError{Op: opListAlbums, Err: err}
	}

	names := make([]string, 0, len(listing.CommonPrefixes)+len(listing.Objects))
	seen := make(map[string]bool)
	add := func(raw string) {
		name, ok := albumNameFromPrefix(raw)
		if !ok {
			s.log.Warn().Str("prefix", raw).Msg("skipping album prefix that is not valid percent-encoding")
			return
		}
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		names = append(names, name)
	}

	for _, p := range listing.CommonPrefixes {
		add(p)
	}
	for _, obj := range listing.Objects {
		if obj.Size == 0 {
			add(obj.Key)
		}
	}

	return &AlbumList{Albums: names}, nil
}

// CreateAlbum reserves the album with a zero-length marker object and returns
// the (empty) album view.
func (s *AlbumService) CreateAlbum(ctx context.Context, name string) (*AlbumView, error) {
	name, err := NormalizeName(name)
	if err != nil {
		return nil, err
	}

	key := AlbumKey(name)
	err = s.createMarker(ctx, name, key)
	s.record(ctx, opCreateAlbum, name, key, err)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("album", name).Msg("album created")
	return s.ViewAlbum(ctx, name)
}

func (s *AlbumService) createMarker(ctx context.Context, name, key string) error {
	_, err := s.store.Stat(ctx, key)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %q", ErrAlreadyExists, name)
	case !storage.IsNotFound(err):
		return &StorageError{Op: opCreateAlbum, Err: err}
	}

	if err := s.store.Put(ctx, key, strings.NewReader(""), 0, ""); err != nil {
		return &StorageError{Op: opCreateAlbum, Err: err}
	}
	return nil
}

// ViewAlbum lists every object under the album prefix.
func (s *AlbumService) ViewAlbum(ctx context.Context, name string) (*AlbumView, error) {
	if err := checkAlbum(name); err != nil {
		return nil, err
	}

	prefix := AlbumPrefix(name)
	listing, err := s.store.List(ctx, storage.ListOptions{Prefix: prefix})
	if err != nil {
		return nil, &StorageError{Op: opViewAlbum, Err: err}
	}

	photos := make([]Photo, 0, len(listing.Objects))
	for _, obj := range listing.Objects {
		if obj.Key == prefix {
			continue
		}

		u, err := s.photoURL(ctx, listing.BaseURL, obj.Key)
		if err != nil {
			return nil, &StorageError{Op: opViewAlbum, Err: err}
		}

		photos = append(photos, Photo{
			Key:          obj.Key,
			Name:         strings.TrimPrefix(obj.Key, prefix),
			URL:          u,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}

	return &AlbumView{Name: name, Photos: photos}, nil
}

func (s *AlbumService) photoURL(ctx context.Context, baseURL, key string) (string, error) {
	if s.urlMode == URLModeSigned {
		return s.store.PresignGet(ctx, key, s.signedTTL)
	}
	return baseURL + EncodeComponent(key), nil
}

// AddPhoto uploads the file under the album prefix with public-read access.
// An existing photo with the same file name is overwritten.
func (s *AlbumService) AddPhoto(ctx context.Context, album string, upload *Upload) (*AlbumView, error) {
	if err := checkAlbum(album); err != nil {
		return nil, err
	}
	if upload == nil || upload.Body == nil || upload.FileName == "" {
		return nil, &ValidationError{Err: ErrNoFileSelected, Reason: "please choose a file to upload first"}
	}

	key := PhotoKey(album, upload.FileName)
	err := s.store.Upload(ctx, key, upload.Body, upload.Size, storage.UploadOptions{
		ContentType: upload.ContentType,
		PublicRead:  true,
	})
	if err != nil {
		err = &StorageError{Op: opUploadPhoto, Err: err}
	}
	s.record(ctx, opUploadPhoto, album, key, err)
	if err != nil {
		return nil, err
	}

	return s.ViewAlbum(ctx, album)
}

// DeletePhoto removes exactly one object. The album marker is never touched.
func (s *AlbumService) DeletePhoto(ctx context.Context, album, photoKey string) (*AlbumView, error) {
	if err := checkPhotoKey(album, photoKey); err != nil {
		return nil, err
	}

	s.log.Debug().Str("album", album).Str("photo_key", photoKey).Msg("deleting photo")

	err := s.deletePhoto(ctx, photoKey)
	s.record(ctx, opDeletePhoto, album, photoKey, err)
	if err != nil {
		return nil, err
	}

	return s.ViewAlbum(ctx, album)
}

// deletePhoto checks for the object first: S3 reports success for deletes of
// missing keys, and a repeated delete must surface as not found.
func (s *AlbumService) deletePhoto(ctx context.Context, photoKey string) error {
	if _, err := s.store.Stat(ctx, photoKey); err != nil {
		return &StorageError{Op: opDeletePhoto, Err: err}
	}
	if err := s.store.Delete(ctx, photoKey); err != nil {
		return &StorageError{Op: opDeletePhoto, Err: err}
	}
	return nil
}

// DeleteAlbum lists the album and removes every listed key plus the marker in
// one batch. A failed batch may leave the album partially deleted; nothing is
// rolled back.
func (s *AlbumService) DeleteAlbum(ctx context.Context, album string) (*AlbumList, error) {
	if err := checkAlbum(album); err != nil {
		return nil, err
	}

	err := s.deleteAlbum(ctx, album)
	s.record(ctx, opDeleteAlbum, album, AlbumPrefix(album), err)
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("album", album).Msg("album deleted")
	return s.ListAlbums(ctx)
}

func (s *AlbumService) deleteAlbum(ctx context.Context, album string) error {
	listing, err := s.store.List(ctx, storage.ListOptions{Prefix: AlbumPrefix(album)})
	if err != nil {
		return &StorageError{Op: opDeleteAlbum, Err: err}
	}

	keys := make([]string, 0, len(listing.Objects)+1)
	for _, obj := range listing.Objects {
		keys = append(keys, obj.Key)
	}
	keys = append(keys, AlbumKey(album))

	if err := s.store.DeleteMany(ctx, keys); err != nil {
		return &StorageError{Op: opDeleteAlbum, Err: err}
	}
	return nil
}

// PhotoURL presigns a GET URL for one photo. ttl <= 0 uses the configured default.
func (s *AlbumService) PhotoURL(ctx context.Context, album, photoKey string, ttl time.Duration) (string, error) {
	if err := checkPhotoKey(album, photoKey); err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = s.signedTTL
	}

	u, err := s.store.PresignGet(ctx, photoKey, min(ttl, maxSignedURLTTL))
	if err != nil {
		return "", &StorageError{Op: opSignURL, Err: err}
	}
	return u, nil
}

// SummarizeAlbum asks the analysis provider to describe the album from its
// photo names.
func (s *AlbumService) SummarizeAlbum(ctx context.Context, album string) (string, error) {
	if s.analyzer == nil {
		return "", ErrAnalysisDisabled
	}
	if err := checkAlbum(album); err != nil {
		return "", err
	}

	prefix := AlbumPrefix(album)
	listing, err := s.store.List(ctx, storage.ListOptions{Prefix: prefix})
	if err != nil {
		return "", &StorageError{Op: opViewAlbum, Err: err}
	}

	names := make([]string, 0, len(listing.Objects))
	for _, obj := range listing.Objects {
		if obj.Key != prefix {
			names = append(names, strings.TrimPrefix(obj.Key, prefix))
		}
	}

	summary, err := s.analyzer.AlbumSummary(ctx, album, names)
	if err != nil {
		return "", fmt.Errorf("summarize album: %w", err)
	}
	return summary, nil
}

func (s *AlbumService) record(ctx context.Context, op, album, key string, opErr error) {
	e := &activity.Entry{
		Op:        op,
		Album:     album,
		ObjectKey: key,
		Outcome:   activity.OutcomeSuccess,
	}
	if opErr != nil {
		e.Outcome = activity.OutcomeFailure
		e.Message = opErr.Error()
	}

	if err := s.activity.Record(ctx, e); err != nil {
		s.log.Warn().Err(err).Str("op", op).Str("album", album).Msg("record activity")
	}
}

func checkAlbum(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Err: ErrInvalidName, Reason: "album name is required"}
	}
	return nil
}

func checkPhotoKey(album, photoKey string) error {
	if err := checkAlbum(album); err != nil {
		return err
	}
	prefix := AlbumPrefix(album)
	if !strings.HasPrefix(photoKey, prefix) || photoKey == prefix {
		return &ValidationError{Err: ErrInvalidPhotoKey, Reason: fmt.Sprintf("%q is not a photo of album %q", photoKey, album)}
	}
	return nil
}
