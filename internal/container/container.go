package container

import (
	"context"
	"fmt"
	"net/http"

	"github.com/anime-shed/misinfo-inspector-go/internal/config"
	"github.com/anime-shed/misinfo-inspector-go/internal/factory"
	"github.com/anime-shed/misinfo-inspector-go/internal/llm"
	"github.com/anime-shed/misinfo-inspector-go/internal/logger"
	"github.com/anime-shed/misinfo-inspector-go/internal/observer"
	"github.com/anime-shed/misinfo-inspector-go/internal/ocr"
	"github.com/anime-shed/misinfo-inspector-go/internal/ocr/tesseract"
	"github.com/anime-shed/misinfo-inspector-go/internal/service"
	"github.com/anime-shed/misinfo-inspector-go/internal/storage"
	"github.com/anime-shed/misinfo-inspector-go/internal/transport"
	"github.com/anime-shed/misinfo-inspector-go/pkg/validation"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Container holds all application dependencies
type Container struct {
	config         *config.Config
	uploadStore    storage.UploadStore
	textExtractor  ocr.TextExtractor
	analyzer       llm.Analyzer
	events         *observer.EventPublisher
	predictService service.PredictService
	handler        http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	uploadStore, err := factory.NewStorageFactory(cfg).CreateStorage(ctx, factory.StorageType(cfg.Upload.Backend))
	if err != nil {
		return nil, fmt.Errorf("failed to create upload store: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := observer.NewMetricsObserver(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	textExtractor := ocr.NewExtractor(tesseract.NewRecognizer(cfg.OCR.Language))
	analyzer := llm.NewClient(llm.Options{
		URL:     cfg.API.URL,
		APIKey:  cfg.API.Key,
		Model:   cfg.API.Model,
		Store:   cfg.API.Store,
		Timeout: cfg.API.Timeout,
	})

	predictService := service.NewPredictService(
		validation.NewUploadValidator(),
		uploadStore,
		textExtractor,
		analyzer,
		events,
		service.Options{UniqueNames: cfg.Upload.UniqueNames},
	)
	handler := transport.NewHandler(predictService, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), cfg)

	logger.WithFields(logrus.Fields{
		"upload_backend": cfg.Upload.Backend,
		"api_url":        cfg.API.URL,
		"model":          cfg.API.Model,
		"ocr_language":   cfg.OCR.Language,
	}).Info("Container initialized")

	return &Container{
		config:         cfg,
		uploadStore:    uploadStore,
		textExtractor:  textExtractor,
		analyzer:       analyzer,
		events:         events,
		predictService: predictService,
		handler:        handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
