// Package blobstore stores uploaded files (medical report documents and
// profile pictures) behind a small Store interface, with a disk-backed
// implementation and an in-memory one for testing.
package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrBlobNotFound       = errors.New("blob not found")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrInvalidContentType = errors.New("content type is not allowed")
	ErrInvalidKey         = errors.New("invalid blob key")
)

// MaxFileSize is the maximum allowed upload size in bytes (10 MB).
const MaxFileSize = 10 * 1024 * 1024

// AllowedContentTypes lists the MIME types accepted for uploads.
var AllowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/png":       true,
	"image/jpeg":      true,
	"text/plain":      true,
}

// Store is the contract for blob storage backends. Keys are opaque values
// produced by NewKey.
type Store interface {
	Save(ctx context.Context, key, contentType string, content io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// NewKey generates a storage key for an uploaded file, keeping the original
// extension so downloads carry a sensible name.
func NewKey(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	return uuid.NewString() + ext
}

// ValidateContentType reports whether the MIME type is accepted for upload.
func ValidateContentType(contentType string) error {
	// Strip any parameters like "; charset=utf-8".
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if !AllowedContentTypes[contentType] {
		return ErrInvalidContentType
	}
	return nil
}

func validateKey(key string) error {
	if key == "" || strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}

// ---------------------------------------------------------------------------
// Disk implementation
// ---------------------------------------------------------------------------

// DiskStore persists blobs as flat files under a root directory.
type DiskStore struct {
	root string
}

// NewDiskStore creates the root directory if needed and returns a DiskStore.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) Save(ctx context.Context, key, contentType string, content io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := validateKey(key); err != nil {
		return 0, err
	}
	if err := ValidateContentType(contentType); err != nil {
		return 0, err
	}

	path := filepath.Join(s.root, key)
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create blob file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(content, MaxFileSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return 0, fmt.Errorf("write blob: %w", err)
	}
	if n > MaxFileSize {
		os.Remove(path)
		return 0, ErrFileTooLarge
	}
	return n, nil
}

func (s *DiskStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.root, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (s *DiskStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.root, key)); err != nil {
		if os.IsNotExist(err) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// In-memory implementation
// ---------------------------------------------------------------------------

// MemoryStore is a thread-safe, in-memory Store for testing.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Save(ctx context.Context, key, contentType string, content io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := validateKey(key); err != nil {
		return 0, err
	}
	if err := ValidateContentType(contentType); err != nil {
		return 0, err
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return 0, fmt.Errorf("read blob: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return 0, ErrFileTooLarge
	}

	s.mu.Lock()
	s.blobs[key] = data
	s.mu.Unlock()
	return int64(len(data)), nil
}

func (s *MemoryStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, key)
	return nil
}
