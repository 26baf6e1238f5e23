package storage

import (
	"context"
	"errors"
	"time"
)

// Default expiry duration for presigned URLs
const DefaultPresignedURLExpiry = 15 * time.Minute

// ArchiveStorage defines the object storage operations used to keep
// snapshots of replaced assignments.
type ArchiveStorage interface {
	// PutObject uploads body under objectKey, overwriting any previous object.
	PutObject(ctx context.Context, objectKey string, contentType string, body []byte) error

	// GeneratePresignedDownloadURL creates a temporary URL that allows GET requests
	// for downloading an object directly from the storage provider.
	GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error)
}

// ErrArchiveDisabled is returned by the no-op storage used when archiving is turned off.
var ErrArchiveDisabled = errors.New("archive storage is disabled")

// disabledStorage accepts uploads and drops them.
type disabledStorage struct{}

func NewDisabledStorage() ArchiveStorage {
	return disabledStorage{}
}

func (disabledStorage) PutObject(context.Context, string, string, []byte) error {
	return nil
}

func (disabledStorage) GeneratePresignedDownloadURL(context.Context, string, time.Duration) (string, error) {
	return "", ErrArchiveDisabled
}
