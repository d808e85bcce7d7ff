package albums

import (
	"errors"
	"fmt"

	"github.com/mamed-gasimov/photo-albums/internal/storage"
)

var (
	ErrInvalidName      = errors.New("invalid album name")
	ErrNoFileSelected   = errors.New("no file selected")
	ErrInvalidPhotoKey  = errors.New("photo key does not belong to album")
	ErrAlreadyExists    = errors.New("album already exists")
	ErrAnalysisDisabled = errors.New("album summaries are not configured")
)

// ValidationError reports bad user input. No storage call has been made.
type ValidationError struct {
	Err    error
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// StorageError is the catch-all for failed storage calls, network and
// authorization failures included.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Kind classifies an album error for the transport layer.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAlreadyExists
	KindNotFound
	KindDisabled
	KindStorage
)

// KindOf returns the class of err. Not-found is checked before the storage
// catch-all so a missing photo is distinguishable from an outage.
func KindOf(err error) Kind {
	var vErr *ValidationError
	var sErr *StorageError
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &vErr):
		return KindValidation
	case errors.Is(err, ErrAlreadyExists):
		return KindAlreadyExists
	case errors.Is(err, ErrAnalysisDisabled):
		return KindDisabled
	case storage.IsNotFound(err):
		return KindNotFound
	case errors.As(err, &sErr):
		return KindStorage
	}
	return KindUnknown
}
