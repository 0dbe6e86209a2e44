package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a failed prediction
type ErrorType string

const (
	ErrorTypeNoFile      ErrorType = "no_file"
	ErrorTypeNoFilename  ErrorType = "no_filename"
	ErrorTypeInvalidType ErrorType = "invalid_type"
	ErrorTypeStorage     ErrorType = "storage_failure"
	ErrorTypeOCR         ErrorType = "ocr_failure"
	ErrorTypeAPI         ErrorType = "api_failure"
)

// Client-facing messages. These are part of the public response contract.
const (
	MsgNoFile      = "No file uploaded"
	MsgNoFilename  = "No file selected"
	MsgInvalidType = "Invalid file type"

	prefixStorage = "Error saving file: "
	prefixOCR     = "Error processing image: "
	prefixAPI     = "Error calling API: "
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewNoFileError is returned when the request carries no file part
func NewNoFileError(cause error) *AppError {
	return &AppError{Type: ErrorTypeNoFile, Message: MsgNoFile, Cause: cause}
}

// NewNoFilenameError is returned when the file part has an empty filename
func NewNoFilenameError() *AppError {
	return &AppError{Type: ErrorTypeNoFilename, Message: MsgNoFilename}
}

// NewInvalidTypeError is returned when the filename extension is not allowed
func NewInvalidTypeError() *AppError {
	return &AppError{Type: ErrorTypeInvalidType, Message: MsgInvalidType}
}

// NewStorageError wraps a failure to write the upload
func NewStorageError(cause error) *AppError {
	return &AppError{Type: ErrorTypeStorage, Message: prefixStorage + causeText(cause), Cause: cause}
}

// NewOCRError wraps an image decoding or recognition failure
func NewOCRError(cause error) *AppError {
	return &AppError{Type: ErrorTypeOCR, Message: prefixOCR + causeText(cause), Cause: cause}
}

// NewAPIError wraps a failure talking to the analysis API
func NewAPIError(cause error) *AppError {
	return &AppError{Type: ErrorTypeAPI, Message: prefixAPI + causeText(cause), Cause: cause}
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// IsType checks if the error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// TypeOf returns the error type, or an empty type for foreign errors
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}
