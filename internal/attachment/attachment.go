// Package attachment gates locally selected files before they enter the request
// draft. It is a pure local check: rejected files never reach the network.
package attachment

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
)

// Kind selects which allow-list applies to a file.
type Kind string

const (
	// KindDocument covers generic document uploads such as resumes.
	KindDocument Kind = "document"
	// KindPrescription covers paper prescription photos and scans.
	KindPrescription Kind = "prescription"
)

// MaxFileSize is the per-file size ceiling.
const MaxFileSize = 5 * 1024 * 1024 // 5MB

var allowedExtensions = map[Kind][]string{
	KindDocument:     {"pdf", "doc", "docx", "txt"},
	KindPrescription: {"jpg", "jpeg", "png", "gif", "webp", "heic", "pdf"},
}

// AllowedExtensions returns the extension allow-list for a kind.
func AllowedExtensions(kind Kind) []string {
	exts := allowedExtensions[kind]
	out := make([]string, len(exts))
	copy(out, exts)
	return out
}

// Validate checks a file's extension and size against the allow-list for kind.
// It returns models.ErrFileTypeNotAllowed or models.ErrFileTooLarge wrapped with
// a user-facing detail, or nil when the file may enter the draft.
func Validate(name string, size int64, kind Kind) error {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	exts, ok := allowedExtensions[kind]
	if !ok {
		return fmt.Errorf("unknown attachment kind %q", kind)
	}

	allowed := false
	for _, e := range exts {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		slog.Warn("attachment.Validate: extension rejected", "name", name, "ext", ext, "kind", kind)
		return fmt.Errorf("%w: .%s (allowed: %s)", models.ErrFileTypeNotAllowed, ext, strings.Join(exts, ", "))
	}

	if size > MaxFileSize {
		slog.Warn("attachment.Validate: size rejected", "name", name, "size", size)
		return fmt.Errorf("%w: %d bytes (max %d)", models.ErrFileTooLarge, size, MaxFileSize)
	}
	return nil
}

// ValidateAll validates a batch of prescription picks and returns the first
// failure, so a single bad file blocks the whole selection.
func ValidateAll(files []models.Attachment, kind Kind) error {
	if len(files) > models.MaxPrescriptionFiles {
		return fmt.Errorf("too many files: %d (max %d)", len(files), models.MaxPrescriptionFiles)
	}
	for _, f := range files {
		if err := Validate(f.Name, f.Size, kind); err != nil {
			return err
		}
	}
	return nil
}
