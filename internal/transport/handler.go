package transport

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/anime-shed/misinfo-inspector-go/internal/config"
	apperrors "github.com/anime-shed/misinfo-inspector-go/internal/errors"
	"github.com/anime-shed/misinfo-inspector-go/internal/logger"
	"github.com/anime-shed/misinfo-inspector-go/internal/observer"
	"github.com/anime-shed/misinfo-inspector-go/internal/service"
	"github.com/anime-shed/misinfo-inspector-go/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	uploadField     = "file"
	requestIDHeader = "X-Request-ID"
	version         = "1.0.0"
)

//go:embed templates/*.html
var templatesFS embed.FS

// NewHandler builds the HTTP router. metrics may be nil to leave /metrics unrouted.
func NewHandler(svc service.PredictService, metrics http.Handler, cfg *config.Config) http.Handler {
	r := gin.Default()
	r.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	// Add middleware
	r.Use(
		requestID(),
		requestSizeLimiter(cfg.Server.MaxRequestBodySize),
	)

	// Configure routes
	r.GET("/", index)
	r.GET("/health", healthCheck)
	r.POST("/predict", predict(svc, cfg.Server.RequestTimeout))
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	return r
}

func index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", nil)
}

// predict always answers 200; failures are reported in the "error" field.
// A zero timeout leaves the pipeline bounded only by the client connection.
func predict(svc service.PredictService, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		ctx := c.Request.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		// Log request start
		logger.WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"user_agent": c.Request.UserAgent(),
			"ip":         c.ClientIP(),
			"request_id": observer.RequestIDFrom(ctx),
		}).Info("Processing predict request")

		upload, closeUpload, err := readUpload(c)
		if err != nil {
			logger.WithError(err).WithField("ip", c.ClientIP()).Error("Failed to open uploaded file")
			c.JSON(http.StatusOK, models.FailureFrom(apperrors.NewStorageError(err)))
			return
		}
		defer closeUpload()

		result := svc.Predict(ctx, upload)

		fields := logrus.Fields{
			"request_id":         observer.RequestIDFrom(ctx),
			"processing_time_ms": time.Since(startTime).Milliseconds(),
		}
		if failure, ok := result.(models.Failure); ok {
			fields["failure_kind"] = failure.Kind
			logger.WithFields(fields).Warn("Predict request finished with error")
		} else {
			logger.WithFields(fields).Info("Predict request completed successfully")
		}

		c.JSON(http.StatusOK, result)
	}
}

// readUpload returns nil when the request has no file part. A part whose
// filename is empty is parsed as a plain form value by mime/multipart, so its
// presence there is reported as an upload with an empty filename.
func readUpload(c *gin.Context) (*service.Upload, func(), error) {
	noop := func() {}

	header, err := c.FormFile(uploadField)
	if err != nil {
		if form := c.Request.MultipartForm; form != nil {
			if _, ok := form.Value[uploadField]; ok {
				return &service.Upload{Filename: ""}, noop, nil
			}
		}
		return nil, noop, nil
	}

	file, err := header.Open()
	if err != nil {
		return nil, noop, err
	}
	return &service.Upload{Filename: header.Filename, Content: file}, func() { file.Close() }, nil
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)
		c.Request = c.Request.WithContext(observer.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
