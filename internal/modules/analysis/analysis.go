package analysis

import "context"

// Provider writes a short human-readable summary of an album from the names
// of its photos.
type Provider interface {
	AlbumSummary(ctx context.Context, album string, photoNames []string) (string, error)
}
