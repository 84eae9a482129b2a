package storage

import (
	"context"
	"time"

	"github.com/nicepick/backend/internal/domain/shared"
)

// Ensure NoopObjectStorage implements ObjectStorage
var _ ObjectStorage = (*NoopObjectStorage)(nil)

// NoopObjectStorage is the fallback used when no object storage is
// configured. Every operation reports the region unavailable so release
// uploads fail loudly instead of silently dropping artifacts.
type NoopObjectStorage struct{}

// NewNoopObjectStorage creates the fallback storage
func NewNoopObjectStorage() *NoopObjectStorage {
	return &NoopObjectStorage{}
}

// Upload always fails
func (NoopObjectStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	return shared.ErrRegionUnavailable
}

// Delete always fails
func (NoopObjectStorage) Delete(ctx context.Context, key string) error {
	return shared.ErrRegionUnavailable
}

// PresignDownloadURL always fails
func (NoopObjectStorage) PresignDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	return "", time.Time{}, shared.ErrRegionUnavailable
}
