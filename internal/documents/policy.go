package documents

import (
	"fmt"
	"mime"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"securelink-backend/internal/shared/util"
)

const (
	// MaxFileSize is the upload limit in bytes (100 KiB).
	MaxFileSize int64 = 102400
	// IDNumberLength is the required identifier length.
	IDNumberLength = 12
)

// AllowedFileTypes are the accepted MIME types.
var AllowedFileTypes = []string{"image/jpeg", "image/png", "application/pdf"}

// validateUpload runs the form checks in order; the first failure wins.
func validateUpload(ownerID string, in UploadInput) error {
	if strings.TrimSpace(string(in.DocType)) == "" || strings.TrimSpace(in.IDNumber) == "" || in.File == nil {
		return ErrMissingFields
	}
	if !in.DocType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownDocType, in.DocType)
	}
	if !validIDNumber(in.IDNumber) {
		return ErrIdentifierLength
	}
	if err := validateFile(in.File); err != nil {
		return err
	}
	if strings.TrimSpace(ownerID) == "" {
		return ErrAuthRequired
	}
	return nil
}

// validateFile applies the size and type rules shared by upload and replace.
// The declared type must be allowed and the sniffed content must agree with it.
func validateFile(f *FileInput) error {
	if f == nil || strings.TrimSpace(f.Name) == "" {
		return ErrMissingFields
	}
	size := fileSize(f)
	if size > MaxFileSize {
		return fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}
	declared := normalizeContentType(f.ContentType)
	if !allowedType(declared) {
		return fmt.Errorf("%w: %q", ErrFileType, f.ContentType)
	}
	if detected := mimetype.Detect(f.Content); !detected.Is(declared) {
		return fmt.Errorf("%w: declared %s, content is %s", ErrFileType, declared, detected.String())
	}
	return nil
}

func validIDNumber(raw string) bool {
	if len(raw) != IDNumberLength {
		return false
	}
	_, err := strconv.ParseUint(raw, 10, 64)
	return err == nil
}

func allowedType(contentType string) bool {
	for _, t := range AllowedFileTypes {
		if contentType == t {
			return true
		}
	}
	return false
}

func normalizeContentType(raw string) string {
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return mediaType
}

func fileSize(f *FileInput) int64 {
	if f.Size > 0 {
		return f.Size
	}
	return int64(len(f.Content))
}

// BuildPath returns the blob key for an owner's file:
// documents/{owner}/{unix millis}_{sanitized name}.
func BuildPath(ownerID, fileName string, at time.Time) string {
	return fmt.Sprintf("documents/%s/%d_%s", ownerID, at.UnixMilli(), util.SanitizeObjectName(fileName))
}

// MaskIDNumber hides all but the last four digits.
func MaskIDNumber(id string) string {
	if len(id) <= 4 {
		return id
	}
	return strings.Repeat("X", len(id)-4) + id[len(id)-4:]
}
