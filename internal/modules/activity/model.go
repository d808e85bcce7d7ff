package activity

import (
	"context"
	"time"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Entry is one user action against the bucket.
type Entry struct {
	ID        int64     `json:"id"`
	Op        string    `json:"op"`
	Album     string    `json:"album"`
	ObjectKey string    `json:"object_key,omitempty"`
	Outcome   string    `json:"outcome"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder stores entries.
type Recorder interface {
	Record(ctx context.Context, e *Entry) error
}

// Nop discards entries. Used when the activity log is disabled.
type Nop struct{}

func (Nop) Record(context.Context, *Entry) error { return nil }
