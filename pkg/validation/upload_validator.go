package validation

import (
	"strings"

	apperrors "github.com/anime-shed/misinfo-inspector-go/internal/errors"
)

// UploadValidator handles uploaded filename validation logic
type UploadValidator struct {
	allowedExtensions []string
}

// NewUploadValidator creates a validator accepting png, jpg and jpeg
func NewUploadValidator() *UploadValidator {
	return &UploadValidator{
		allowedExtensions: []string{"png", "jpg", "jpeg"},
	}
}

// NewUploadValidatorWithOptions creates a validator with a custom extension allow-set.
// Extensions are given without the leading dot.
func NewUploadValidatorWithOptions(extensions []string) *UploadValidator {
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		normalized = append(normalized, strings.ToLower(strings.TrimPrefix(ext, ".")))
	}
	return &UploadValidator{allowedExtensions: normalized}
}

// ValidateFilename checks the client-supplied filename of an upload
func (v *UploadValidator) ValidateFilename(filename string) error {
	if filename == "" {
		return apperrors.NewNoFilenameError()
	}

	ext, ok := Extension(filename)
	if !ok || !v.isExtensionAllowed(ext) {
		return apperrors.NewInvalidTypeError()
	}
	return nil
}

// Extension returns the lower-cased text after the last "." of filename.
// ok is false when filename has no ".".
func Extension(filename string) (ext string, ok bool) {
	i := strings.LastIndex(filename, ".")
	if i < 0 {
		return "", false
	}
	return strings.ToLower(filename[i+1:]), true
}

// isExtensionAllowed checks if the extension is in the allowed list
func (v *UploadValidator) isExtensionAllowed(ext string) bool {
	for _, allowed := range v.allowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}
