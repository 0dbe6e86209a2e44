package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/gif"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/anime-shed/misinfo-inspector-go/internal/config"
	"github.com/anime-shed/misinfo-inspector-go/internal/llm"
	"github.com/anime-shed/misinfo-inspector-go/internal/observer"
	"github.com/anime-shed/misinfo-inspector-go/internal/ocr"
	"github.com/anime-shed/misinfo-inspector-go/internal/service"
	"github.com/anime-shed/misinfo-inspector-go/internal/storage"
	"github.com/anime-shed/misinfo-inspector-go/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixedRecognizer string

func (r fixedRecognizer) Recognize(context.Context, []byte) (string, error) { return string(r), nil }

type testEnv struct {
	router    http.Handler
	uploadDir string

	mu        sync.Mutex
	apiBodies []string
}

// newTestEnv wires the real pipeline against a fake chat-completion server
// answering with apiResponse. An empty apiResponse makes the API unreachable.
func newTestEnv(t *testing.T, ocrText, apiResponse string) *testEnv {
	t.Helper()
	return newTestEnvWithTimeout(t, ocrText, apiResponse, 10*time.Second)
}

func newTestEnvWithTimeout(t *testing.T, ocrText, apiResponse string, requestTimeout time.Duration) *testEnv {
	t.Helper()
	env := &testEnv{uploadDir: t.TempDir()}

	apiURL := "http://127.0.0.1:1/unreachable"
	if apiResponse != "" {
		api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, _ := io.ReadAll(r.Body)
			env.mu.Lock()
			env.apiBodies = append(env.apiBodies, string(body))
			env.mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(apiResponse))
		}))
		t.Cleanup(api.Close)
		apiURL = api.URL
	}

	store, err := storage.NewLocalStore(env.uploadDir)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	metrics, err := observer.NewMetricsObserver(reg)
	require.NoError(t, err)
	pub := observer.NewSyncEventPublisher()
	pub.Subscribe(metrics)

	svc := service.NewPredictService(
		validation.NewUploadValidator(),
		store,
		ocr.NewExtractor(fixedRecognizer(ocrText)),
		llm.NewClient(llm.Options{URL: apiURL, APIKey: "sk-test", Model: "gpt-4o-mini", Store: true}),
		pub,
		service.Options{},
	)

	cfg := &config.Config{Server: config.ServerConfig{
		RequestTimeout:     requestTimeout,
		MaxRequestBodySize: 1 << 20,
	}}
	env.router = NewHandler(svc, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), cfg)
	return env
}

func pngData(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

// multipartBody writes a single part named field. filename is always written
// into the Content-Disposition, even when empty.
func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", "application/octet-stream")
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return body, w.FormDataContentType()
}

func (e *testEnv) post(t *testing.T, body io.Reader, contentType string) (*httptest.ResponseRecorder, map[string]string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/predict", body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)

	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func (e *testEnv) sentBodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.apiBodies...)
}

func (e *testEnv) uploads(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(e.uploadDir)
	require.NoError(t, err)
	var names []string
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}

const longText = "Breaking: drinking seawater cures every known disease"

func TestPredict_NoFile(t *testing.T) {
	env := newTestEnv(t, longText, `{"choices":[]}`)

	tests := []struct {
		name string
		body func() (io.Reader, string)
	}{
		{
			name: "other field only",
			body: func() (io.Reader, string) {
				b, ct := multipartBody(t, "image", "post.png", pngData(t))
				return b, ct
			},
		},
		{
			name: "not multipart",
			body: func() (io.Reader, string) {
				return strings.NewReader(`{"file":"post.png"}`), "application/json"
			},
		},
		{
			name: "empty body",
			body: func() (io.Reader, string) { return http.NoBody, "" },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := tt.body()
			rec, out := env.post(t, body, ct)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, map[string]string{"error": "No file uploaded"}, out)
		})
	}
}

func TestPredict_EmptyFilename(t *testing.T) {
	env := newTestEnv(t, longText, `{"choices":[]}`)

	body, ct := multipartBody(t, "file", "", []byte("ignored"))
	rec, out := env.post(t, body, ct)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"error": "No file selected"}, out)
}

func TestPredict_InvalidType(t *testing.T) {
	for _, name := range []string{"post.gif", "post", "post.PDF", "png"} {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, longText, `{"choices":[]}`)

			body, ct := multipartBody(t, "file", name, pngData(t))
			rec, out := env.post(t, body, ct)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, map[string]string{"error": "Invalid file type"}, out)
			assert.Empty(t, env.uploads(t))
			assert.Empty(t, env.sentBodies())
		})
	}
}

func TestPredict_Success(t *testing.T) {
	env := newTestEnv(t, longText, `{"choices":[{"message":{"role":"assistant","content":"X"}}]}`)

	body, ct := multipartBody(t, "file", "Post.PNG", pngData(t))
	rec, out := env.post(t, body, ct)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]string{"extracted_text": longText, "analysis": "X"}, out)
	assert.Empty(t, env.uploads(t), "upload must be removed after success")

	bodies := env.sentBodies()
	require.Len(t, bodies, 1)
	var sent struct {
		Model    string `json:"model"`
		Store    bool   `json:"store"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &sent))
	assert.Equal(t, "gpt-4o-mini", sent.Model)
	assert.True(t, sent.Store)
	require.Len(t, sent.Messages, 1)
	assert.Equal(t, "user", sent.Messages[0].Role)
	assert.Equal(t, service.BuildPrompt(longText), sent.Messages[0].Content)
}

func TestPredict_ContentFormatIndependentOfExtension(t *testing.T) {
	env := newTestEnv(t, longText, `{"choices":[{"message":{"content":"X"}}]}`)

	var gifData bytes.Buffer
	require.NoError(t, gif.Encode(&gifData, image.NewGray(image.Rect(0, 0, 4, 4)), nil))

	body, ct := multipartBody(t, "file", "screenshot.png", gifData.Bytes())
	_, out := env.post(t, body, ct)

	assert.Equal(t, map[string]string{"extracted_text": longText, "analysis": "X"}, out)
	assert.Empty(t, env.uploads(t))
}

func TestPredict_ZeroRequestTimeoutIsUnbounded(t *testing.T) {
	env := newTestEnvWithTimeout(t, longText, `{"choices":[{"message":{"content":"X"}}]}`, 0)

	body, ct := multipartBody(t, "file", "post.png", pngData(t))
	_, out := env.post(t, body, ct)

	assert.Equal(t, map[string]string{"extracted_text": longText, "analysis": "X"}, out)
}

func TestPredict_NoChoicesFallback(t *testing.T) {
	for _, resp := range []string{`{"choices":[]}`, `{"object":"chat.completion"}`} {
		t.Run(resp, func(t *testing.T) {
			env := newTestEnv(t, "short", resp)

			body, ct := multipartBody(t, "file", "post.jpg", pngData(t))
			_, out := env.post(t, body, ct)

			assert.Equal(t, map[string]string{"extracted_text": "short", "analysis": "No valid response from API."}, out)
			assert.Empty(t, env.uploads(t))
			bodies := env.sentBodies()
			require.Len(t, bodies, 1)
			assert.Contains(t, bodies[0], "Additional context: https://example.com/more-info")
		})
	}
}

func TestPredict_OCRFailureLeavesUpload(t *testing.T) {
	env := newTestEnv(t, longText, `{"choices":[]}`)

	body, ct := multipartBody(t, "file", "fake.png", []byte("definitely not an image"))
	rec, out := env.post(t, body, ct)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(out["error"], "Error processing image: "), out["error"])
	assert.Equal(t, []string{"fake.png"}, env.uploads(t))
	assert.Empty(t, env.sentBodies())
}

func TestPredict_APIFailureLeavesUpload(t *testing.T) {
	env := newTestEnv(t, longText, "")

	body, ct := multipartBody(t, "file", "post.jpeg", pngData(t))
	rec, out := env.post(t, body, ct)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(out["error"], "Error calling API: "), out["error"])
	assert.Equal(t, []string{"post.jpeg"}, env.uploads(t))
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t, "", `{"choices":[]}`)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `name="file"`)
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, "", `{"choices":[]}`)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "available", out["status"])
}

func TestRequestIDHeader(t *testing.T) {
	env := newTestEnv(t, "", `{"choices":[]}`)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, longText, `{"choices":[]}`)

	body, ct := multipartBody(t, "file", "post.gif", nil)
	env.post(t, body, ct)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `misinfo_inspector_failures_total{kind="invalid_type"} 1`)
}
