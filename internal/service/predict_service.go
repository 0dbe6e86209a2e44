package service

import (
	"context"
	"errors"
	"io"
	"time"

	apperrors "github.com/anime-shed/misinfo-inspector-go/internal/errors"
	"github.com/anime-shed/misinfo-inspector-go/internal/llm"
	"github.com/anime-shed/misinfo-inspector-go/internal/logger"
	"github.com/anime-shed/misinfo-inspector-go/internal/observer"
	"github.com/anime-shed/misinfo-inspector-go/internal/ocr"
	"github.com/anime-shed/misinfo-inspector-go/internal/storage"
	"github.com/anime-shed/misinfo-inspector-go/pkg/models"
	"github.com/anime-shed/misinfo-inspector-go/pkg/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Upload is the file part of a /predict request
type Upload struct {
	Filename string
	Content  io.Reader
}

// PredictService runs the upload -> OCR -> analysis pipeline
type PredictService interface {
	// Predict never returns a Go error; every failure is a models.Failure.
	// A nil upload means the request had no file part.
	Predict(ctx context.Context, upload *Upload) models.PredictResult
}

// Options tunes the pipeline
type Options struct {
	// UniqueNames prefixes stored uploads with a UUID so concurrent requests
	// using the same filename do not overwrite each other.
	UniqueNames bool
}

type predictService struct {
	validator *validation.UploadValidator
	store     storage.UploadStore
	extractor ocr.TextExtractor
	analyzer  llm.Analyzer
	events    observer.Subject
	opts      Options
}

// NewPredictService creates a new predict service
func NewPredictService(
	validator *validation.UploadValidator,
	store storage.UploadStore,
	extractor ocr.TextExtractor,
	analyzer llm.Analyzer,
	events observer.Subject,
	opts Options,
) PredictService {
	return &predictService{
		validator: validator,
		store:     store,
		extractor: extractor,
		analyzer:  analyzer,
		events:    events,
		opts:      opts,
	}
}

// Predict validates and stores the upload, extracts its text, asks the
// analysis API for an assessment and removes the stored file. The stored file
// is only removed on success; OCR and API failures leave it in place.
func (s *predictService) Predict(ctx context.Context, upload *Upload) models.PredictResult {
	start := time.Now()
	requestID := observer.RequestIDFrom(ctx)

	filename := ""
	if upload != nil {
		filename = upload.Filename
	}
	s.publish(ctx, observer.PredictEvent{EventType: observer.PredictStarted, RequestID: requestID, Filename: filename})

	if upload == nil {
		return s.fail(ctx, start, filename, apperrors.NewNoFileError(nil))
	}
	if err := s.validator.ValidateFilename(upload.Filename); err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			appErr = apperrors.NewInvalidTypeError()
		}
		return s.fail(ctx, start, filename, appErr)
	}

	key := upload.Filename
	if s.opts.UniqueNames {
		key = uuid.NewString() + "_" + upload.Filename
	}

	if err := s.store.Save(ctx, key, upload.Content); err != nil {
		return s.fail(ctx, start, filename, apperrors.NewStorageError(err))
	}
	s.publish(ctx, observer.PredictEvent{
		EventType: observer.UploadStored,
		RequestID: requestID,
		Filename:  filename,
		Metadata:  map[string]interface{}{"location": s.store.Location(key)},
	})

	text, err := s.extractText(ctx, key)
	if err != nil {
		return s.fail(ctx, start, filename, apperrors.NewOCRError(err))
	}

	prompt := BuildPrompt(text)
	logger.WithFields(logrus.Fields{
		"request_id":    requestID,
		"text_length":   len(text),
		"with_context":  AdditionalContext(text) != "",
		"prompt_length": len(prompt),
	}).Debug("Built analysis prompt")

	analysis, err := s.analyzer.Analyze(ctx, prompt)
	if err != nil {
		return s.fail(ctx, start, filename, apperrors.NewAPIError(err))
	}

	if err := s.store.Remove(ctx, key); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"request_id": requestID,
			"location":   s.store.Location(key),
		}).Error("Failed to remove upload")
	} else {
		s.publish(ctx, observer.PredictEvent{EventType: observer.UploadRemoved, RequestID: requestID, Filename: filename})
	}

	s.publish(ctx, observer.PredictEvent{
		EventType:      observer.PredictCompleted,
		RequestID:      requestID,
		Filename:       filename,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"fallback_analysis": analysis == llm.NoValidResponse,
		},
	})

	return models.Success{ExtractedText: text, Analysis: analysis}
}

func (s *predictService) extractText(ctx context.Context, key string) (string, error) {
	rc, err := s.store.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return s.extractor.Extract(ctx, rc)
}

func (s *predictService) fail(ctx context.Context, start time.Time, filename string, err *apperrors.AppError) models.PredictResult {
	s.publish(ctx, observer.PredictEvent{
		EventType:      observer.PredictFailed,
		RequestID:      observer.RequestIDFrom(ctx),
		Filename:       filename,
		ProcessingTime: time.Since(start),
		FailureKind:    string(err.Type),
		ErrorMessage:   err.Message,
	})
	return models.FailureFrom(err)
}

func (s *predictService) publish(ctx context.Context, event observer.PredictEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}
