// Package storage stores the photos attached to loads and their thumbnails.
//
// LocalStorage keeps objects on the filesystem for development and
// R2Storage keeps them in Cloudflare R2 through the S3 API. Objects are
// never handed out by URL; the image handler streams them.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	ProviderLocal = "local"
	ProviderR2    = "r2"
)

// Storage is an object store addressed by slash-separated keys.
type Storage interface {
	// Put writes data at key. It fails with ErrKeyExists unless
	// opts.Overwrite is set, and with ErrTooLarge past opts.MaxSize.
	Put(ctx context.Context, key string, data io.Reader, opts PutOptions) error

	// Get opens the object at key; the caller closes the reader.
	// Missing objects fail with ErrNotFound.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)

	// Delete removes key. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error

	Exists(ctx context.Context, key string) (bool, error)
}

// PutOptions configures a single Put.
type PutOptions struct {
	ContentType string // sniffed from the body when empty
	MaxSize     int64  // 0 means unlimited
	Overwrite   bool
}

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

// LocalConfig configures LocalStorage.
type LocalConfig struct {
	BasePath string // e.g. "./storage"
}

// R2Config configures R2Storage.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	Region          string // defaults to "auto"
}

// Config selects and configures a provider.
type Config struct {
	Provider string // ProviderLocal or ProviderR2
	Local    LocalConfig
	R2       R2Config
}

// New returns the Storage implementation named by cfg.Provider. An empty
// provider means local storage.
func New(cfg Config, logger *slog.Logger) (Storage, error) {
	switch cfg.Provider {
	case ProviderLocal, "":
		return NewLocalStorage(cfg.Local, logger)
	case ProviderR2:
		return NewR2Storage(cfg.R2, logger)
	}
	return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
}

// ImageKey is where an uploaded photo is stored:
// loads/{loadID}/images/{imageID}{ext}.
func ImageKey(loadID, imageID uuid.UUID, contentType string) string {
	return fmt.Sprintf("loads/%s/images/%s%s", loadID, imageID, extensionForContentType(contentType))
}

// ThumbnailKey is where a photo's thumbnail is stored. Thumbnails are
// always JPEG.
func ThumbnailKey(loadID, imageID uuid.UUID) string {
	return fmt.Sprintf("loads/%s/thumbnails/%s.jpg", loadID, imageID)
}
