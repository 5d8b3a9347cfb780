package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore stores uploads on the local filesystem and serves them back.
type DiskStore struct {
	dir     string
	baseURL string
	maxSize int64
}

// NewDiskStore creates a DiskStore writing under dir. Stored files are
// reachable at baseURL + key once FileServer is mounted there. maxSize of 0
// disables the size check.
func NewDiskStore(dir, baseURL string, maxSize int64) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &DiskStore{dir: dir, baseURL: baseURL, maxSize: maxSize}, nil
}

// Dir returns the storage directory.
func (s *DiskStore) Dir() string { return s.dir }

// Save writes r to a new file.
func (s *DiskStore) Save(ctx context.Context, filename, contentType string, r io.Reader) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key := newKey(contentType)
	path := filepath.Join(s.dir, key)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	var reader io.Reader = r
	if s.maxSize > 0 {
		reader = io.LimitReader(r, s.maxSize+1) // +1 to detect overflow
	}
	written, err := io.Copy(f, reader)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	if s.maxSize > 0 && written > s.maxSize {
		os.Remove(path)
		return nil, ErrTooLarge
	}

	return &File{
		Key:         key,
		Filename:    filename,
		ContentType: contentType,
		Size:        written,
		URL:         s.baseURL + key,
	}, nil
}

// Delete removes the file stored under key.
func (s *DiskStore) Delete(ctx context.Context, key string) error {
	if !validKey(key) {
		return ErrNotFound
	}
	err := os.Remove(filepath.Join(s.dir, key))
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return err
}

// FileServer serves stored files by key. Mount it at the base URL with the
// prefix stripped.
func (s *DiskStore) FileServer() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.Serve(w, r, strings.TrimPrefix(r.URL.Path, "/"))
	})
}

// Serve writes the file stored under key. Foreign names answer 404.
func (s *DiskStore) Serve(w http.ResponseWriter, r *http.Request, key string) {
	if !validKey(key) {
		http.NotFound(w, r)
		return
	}
	path := filepath.Join(s.dir, key)
	if _, err := os.Stat(path); err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	http.ServeFile(w, r, path)
}
