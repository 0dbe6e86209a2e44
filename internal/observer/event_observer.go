package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PredictEvent represents a step of the predict pipeline
type PredictEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	RequestID      string                 `json:"request_id,omitempty"`
	Filename       string                 `json:"filename,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	FailureKind    string                 `json:"failure_kind,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of predict event
type EventType string

const (
	// PredictStarted when a /predict request enters the pipeline
	PredictStarted EventType = "predict_started"
	// PredictCompleted when a prediction returns extracted text and analysis
	PredictCompleted EventType = "predict_completed"
	// PredictFailed when a prediction ends with an error response
	PredictFailed EventType = "predict_failed"
	// UploadStored when the uploaded image has been written to the store
	UploadStored EventType = "upload_stored"
	// UploadRemoved when the stored upload has been cleaned up
	UploadRemoved EventType = "upload_removed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event PredictEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event PredictEvent)
}

// LoggingObserver logs predict events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles predict events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event PredictEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"request_id":      event.RequestID,
		"filename":        event.Filename,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}

	if event.FailureKind != "" {
		fields["failure_kind"] = event.FailureKind
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case PredictStarted:
		o.logger.WithFields(fields).Info("Prediction started")
	case PredictCompleted:
		o.logger.WithFields(fields).Info("Prediction completed")
	case PredictFailed:
		o.logger.WithFields(fields).Error("Prediction failed")
	case UploadStored:
		o.logger.WithFields(fields).Debug("Upload stored")
	case UploadRemoved:
		o.logger.WithFields(fields).Debug("Upload removed")
	default:
		o.logger.WithFields(fields).Info("Predict event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	async     bool
}

// NewEventPublisher creates a publisher that notifies observers concurrently
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
		async:     true,
	}
}

// NewSyncEventPublisher creates a publisher that notifies observers in order
// on the caller's goroutine.
func NewSyncEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event PredictEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		if p.async {
			go notify(ctx, observer, event)
		} else {
			notify(ctx, observer, event)
		}
	}
}

func notify(ctx context.Context, obs Observer, event PredictEvent) {
	defer func() {
		if r := recover(); r != nil {
			// Log panic but don't crash the application
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}
