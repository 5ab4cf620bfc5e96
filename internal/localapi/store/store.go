// Package store persists the local stand-in's image and variant
// records in SQLite and image blobs on the filesystem.
package store

import (
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrExists is returned when an insert collides with an existing record.
var ErrExists = errors.New("store: already exists")

// ImageRecord is the persisted form of an image resource.
type ImageRecord struct {
	AccountID         string
	ID                string
	Filename          string
	Meta              map[string]any
	RequireSignedURLs bool
	Uploaded          time.Time
}

// VariantRecord is the persisted form of a variant resource.
type VariantRecord struct {
	AccountID              string
	ID                     string
	Fit                    string
	Width                  int
	Height                 int
	Metadata               string
	NeverRequireSignedURLs bool
}

// Store is the record-persistence interface used by the handlers.
type Store interface {
	CreateImage(img *ImageRecord) error
	GetImage(accountID, imageID string) (*ImageRecord, error)
	ListImages(accountID string, page, perPage int) ([]*ImageRecord, int, error)
	UpdateImage(img *ImageRecord) error
	DeleteImage(accountID, imageID string) error
	CountImages(accountID string) (int64, error)

	CreateVariant(v *VariantRecord) error
	GetVariant(accountID, variantID string) (*VariantRecord, error)
	ListVariants(accountID string) ([]*VariantRecord, error)
	UpdateVariant(v *VariantRecord) error
	DeleteVariant(accountID, variantID string) error
	CountVariants(accountID string) (int64, error)

	Close() error
}

// BlobStore holds the raw image bytes keyed by account and image ID.
type BlobStore interface {
	// Put writes blob data and returns the number of bytes written.
	Put(accountID, imageID string, data io.Reader) (int64, error)

	// Get returns a ReadCloser for the stored blob.
	Get(accountID, imageID string) (io.ReadCloser, error)

	// Delete removes the stored blob.
	Delete(accountID, imageID string) error
}
