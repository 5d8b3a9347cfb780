package upload

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/bartr-dev/bartr/pkg/model"
)

var (
	// ErrTooLarge is returned when a file exceeds the size limit.
	ErrTooLarge = errors.New("upload: file too large")

	// ErrTypeNotAllowed is returned for content outside Config.AllowedTypes.
	ErrTypeNotAllowed = errors.New("upload: type not allowed")

	// ErrNotFound is returned when a stored file doesn't exist.
	ErrNotFound = errors.New("upload: file not found")
)

// Store persists uploaded files.
type Store interface {
	// Save writes r under a new key and returns where it can be fetched.
	Save(ctx context.Context, filename, contentType string, r io.Reader) (*File, error)

	// Delete removes the file stored under key.
	Delete(ctx context.Context, key string) error
}

// File describes a stored upload.
type File struct {
	Key         string
	Filename    string
	ContentType string
	Size        int64
	URL         string
}

// Config holds configuration for the upload handler.
type Config struct {
	// MaxFileSize is the maximum allowed file size in bytes.
	// Default: 5MB.
	MaxFileSize int64

	// AllowedTypes lists the accepted detected MIME types.
	// Default: JPEG, PNG, GIF and WebP images.
	AllowedTypes []string
}

// DefaultConfig returns the image upload defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxFileSize:  5 << 20,
		AllowedTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
	}
}

func (c *Config) allows(contentType string) bool {
	if len(c.AllowedTypes) == 0 {
		return true
	}
	for _, t := range c.AllowedTypes {
		if t == contentType {
			return true
		}
	}
	return false
}

// Handler returns the POST handler for multipart image uploads. A nil config
// uses DefaultConfig.
func Handler(store Store, config *Config, logger *slog.Logger) http.Handler {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	maxSize := config.MaxFileSize
	if maxSize <= 0 {
		maxSize = DefaultConfig().MaxFileSize
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}

		// Multipart framing needs headroom over the file itself.
		r.Body = http.MaxBytesReader(w, r.Body, maxSize+64<<10)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				writeError(w, http.StatusRequestEntityTooLarge, "File too large")
				return
			}
			writeError(w, http.StatusBadRequest, "Expected a multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			writeError(w, http.StatusBadRequest, "No file provided")
			return
		}
		defer file.Close()

		if header.Size > maxSize {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large")
			return
		}

		sniff := make([]byte, 512)
		n, err := io.ReadFull(file, sniff)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Unable to read file")
			return
		}
		contentType := http.DetectContentType(sniff[:n])
		if !config.allows(contentType) {
			writeError(w, http.StatusUnsupportedMediaType, "Only image uploads are allowed")
			return
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			writeError(w, http.StatusInternalServerError, "Upload failed")
			return
		}

		stored, err := store.Save(r.Context(), header.Filename, contentType, io.LimitReader(file, maxSize+1))
		if err != nil {
			if errors.Is(err, ErrTooLarge) {
				writeError(w, http.StatusRequestEntityTooLarge, "File too large")
				return
			}
			logger.Error("upload save failed", "filename", header.Filename, "error", err)
			writeError(w, http.StatusInternalServerError, "Upload failed")
			return
		}
		logger.Debug("upload stored", "key", stored.Key, "size", stored.Size, "type", contentType)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(model.UploadResponse{URL: stored.URL})
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{Message: msg})
}

// newKey returns a random object key keeping an extension that matches
// contentType.
func newKey(contentType string) string {
	ext := ""
	switch contentType {
	case "image/jpeg":
		ext = ".jpg"
	case "image/png":
		ext = ".png"
	case "image/gif":
		ext = ".gif"
	case "image/webp":
		ext = ".webp"
	default:
		if exts, _ := mime.ExtensionsByType(contentType); len(exts) > 0 {
			ext = exts[0]
		}
	}
	return uuid.NewString() + ext
}

// validKey reports whether key could have been produced by newKey.
func validKey(key string) bool {
	base := key
	if i := strings.IndexByte(key, '.'); i >= 0 {
		base = key[:i]
	}
	if _, err := uuid.Parse(base); err != nil {
		return false
	}
	return !strings.ContainsAny(key, `/\`)
}
