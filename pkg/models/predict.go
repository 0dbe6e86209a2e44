package models

import (
	apperrors "github.com/anime-shed/misinfo-inspector-go/internal/errors"
)

// PredictResult is the outcome of one /predict request: either Success or Failure.
type PredictResult interface {
	isPredictResult()
}

// Success carries the OCR text and the model's assessment (or the fallback text)
type Success struct {
	ExtractedText string `json:"extracted_text"`
	Analysis      string `json:"analysis"`
}

// Failure carries a failure kind for logs and metrics; only Message is sent to clients
type Failure struct {
	Kind    apperrors.ErrorType `json:"-"`
	Message string              `json:"error"`
}

func (Success) isPredictResult() {}
func (Failure) isPredictResult() {}

// FailureFrom converts an AppError into a Failure result
func FailureFrom(err *apperrors.AppError) Failure {
	return Failure{Kind: err.Type, Message: err.Message}
}
