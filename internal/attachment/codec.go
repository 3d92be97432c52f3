// Package attachment encodes files inline into message documents as base64
// and enforces the allowed MIME types and the per-message size ceiling.
package attachment

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"mime"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	apperrors "github.com/welldanyogia/icd-messaging-backend/internal/errors"
	"github.com/welldanyogia/icd-messaging-backend/internal/models"
	"github.com/welldanyogia/icd-messaging-backend/internal/validator"
)

// MaxFileSize is the largest file that may be embedded in a message (10 MB)
const MaxFileSize = 10 * 1024 * 1024

// Constraint names reported in validation errors
const (
	ConstraintType = "type"
	ConstraintSize = "size"
	ConstraintName = "name"
)

// AllowedTypes is the MIME allow-list for embedded files
var AllowedTypes = map[string]bool{
	"image/jpeg":         true,
	"image/jpg":          true,
	"image/png":          true,
	"image/gif":          true,
	"image/webp":         true,
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"text/plain": true,
	"text/csv":   true,
}

const fieldName = "attachedFile"

// File is an uploaded file waiting to be embedded
type File struct {
	Name    string
	Type    string
	Size    int64
	Content io.Reader
}

// NewFile wraps an in-memory payload
func NewFile(name, contentType string, data []byte) *File {
	return &File{
		Name:    name,
		Type:    contentType,
		Size:    int64(len(data)),
		Content: bytes.NewReader(data),
	}
}

// NormalizeType lower-cases a MIME type and drops its parameters
func NormalizeType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return strings.ToLower(mediaType)
	}
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

// IsAllowedType reports whether contentType is on the allow-list
func IsAllowedType(contentType string) bool {
	return AllowedTypes[NormalizeType(contentType)]
}

// Validate checks type and size, citing the specific violated constraint
func Validate(name, contentType string, size int64) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.NewValidationError(fieldName, ConstraintName, "file name is required")
	}
	if !IsAllowedType(contentType) {
		return apperrors.NewValidationError(fieldName, ConstraintType,
			"file type %q is not allowed; allowed types are images, PDF, Word, Excel, plain text and CSV", contentType)
	}
	if size > MaxFileSize {
		return apperrors.NewValidationError(fieldName, ConstraintSize,
			"file size %s exceeds the %s limit", FormatFileSize(size), FormatFileSize(MaxFileSize))
	}
	return nil
}

// Encode reads the whole file, validates it and returns the inline attachment.
// Files without a usable declared type are sniffed from their content.
func Encode(f *File) (*models.AttachedFile, error) {
	if f == nil || f.Content == nil {
		return nil, apperrors.NewValidationError(fieldName, ConstraintName, "file content is required")
	}

	// Fail fast on declared metadata before reading anything
	if f.Size > MaxFileSize {
		if declared := NormalizeType(f.Type); declared != "" && !IsAllowedType(declared) {
			return nil, Validate(f.Name, declared, f.Size)
		}
		return nil, apperrors.NewValidationError(fieldName, ConstraintSize,
			"file size %s exceeds the %s limit", FormatFileSize(f.Size), FormatFileSize(MaxFileSize))
	}

	data, err := io.ReadAll(io.LimitReader(f.Content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	contentType := NormalizeType(f.Type)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = NormalizeType(mimetype.Detect(data).String())
	}

	name := validator.SanitizeFilename(f.Name)
	if err := Validate(name, contentType, int64(len(data))); err != nil {
		return nil, err
	}

	return &models.AttachedFile{
		Name:          name,
		Size:          int64(len(data)),
		Type:          contentType,
		Base64Content: base64.StdEncoding.EncodeToString(data),
	}, nil
}

// Decode returns the original bytes of an inline attachment.
// A data URL prefix left over from older clients is tolerated.
func Decode(af *models.AttachedFile) ([]byte, error) {
	if af == nil || af.Base64Content == "" {
		return nil, apperrors.ErrNotFound
	}
	data, err := base64.StdEncoding.DecodeString(StripDataURLPrefix(af.Base64Content))
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment: %w", err)
	}
	return data, nil
}

// DataURL re-attaches the data URL prefix for clients that render inline
func DataURL(af *models.AttachedFile) string {
	if af == nil {
		return ""
	}
	return "data:" + af.Type + ";base64," + StripDataURLPrefix(af.Base64Content)
}

// StripDataURLPrefix removes a leading "data:<type>;base64," if present
func StripDataURLPrefix(content string) string {
	if !strings.HasPrefix(content, "data:") {
		return content
	}
	if i := strings.Index(content, ";base64,"); i >= 0 {
		return content[i+len(";base64,"):]
	}
	return content
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders n bytes at base 1024 with at most two decimals
func FormatFileSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	i := 0
	value := float64(n)
	for value >= 1024 && i < len(sizeUnits)-1 {
		value /= 1024
		i++
	}
	rounded := math.Round(value*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + sizeUnits[i]
}
