package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Compile-time check that FileBlobs implements BlobStore.
var _ BlobStore = (*FileBlobs)(nil)

// FileBlobs implements BlobStore on the local filesystem. Blobs live at
// <basePath>/<accountID>/<imageID>/original.
type FileBlobs struct {
	basePath string
}

// NewFileBlobs creates a FileBlobs rooted at basePath.
func NewFileBlobs(basePath string) *FileBlobs {
	return &FileBlobs{basePath: basePath}
}

func (f *FileBlobs) blobDir(accountID, imageID string) string {
	return filepath.Join(f.basePath, accountID, imageID)
}

func (f *FileBlobs) blobPath(accountID, imageID string) string {
	return filepath.Join(f.blobDir(accountID, imageID), "original")
}

// Put writes data to disk atomically (temp file + rename) and returns
// the number of bytes written.
func (f *FileBlobs) Put(accountID, imageID string, data io.Reader) (int64, error) {
	dir := f.blobDir(accountID, imageID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up the temp file on any error path.
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	n, err := io.Copy(tmp, data)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("writing data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}

	dst := f.blobPath(accountID, imageID)
	if err := os.Rename(tmpPath, dst); err != nil {
		return 0, fmt.Errorf("renaming temp file to %s: %w", dst, err)
	}

	// Rename succeeded; prevent deferred cleanup from removing the final file.
	tmpPath = ""

	return n, nil
}

// Get opens the stored blob for reading.
func (f *FileBlobs) Get(accountID, imageID string) (io.ReadCloser, error) {
	file, err := os.Open(f.blobPath(accountID, imageID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("opening blob: %w", err)
	}
	return file, nil
}

// Delete removes the stored blob and its directory.
func (f *FileBlobs) Delete(accountID, imageID string) error {
	if err := os.RemoveAll(f.blobDir(accountID, imageID)); err != nil {
		return fmt.Errorf("removing blob: %w", err)
	}
	return nil
}
