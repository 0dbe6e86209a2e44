package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Recognizer turns encoded image bytes into text
type Recognizer interface {
	Recognize(ctx context.Context, data []byte) (string, error)
}

// TextExtractor reads an uploaded image and returns its text
type TextExtractor interface {
	Extract(ctx context.Context, r io.Reader) (string, error)
}

// supportedMIME lists the raster formats Leptonica reads. The upload's
// extension is checked elsewhere; content only has to be one of these.
var supportedMIME = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/bmp",
	"image/tiff",
	"image/webp",
}

// Extractor checks that an upload really is a decodable image before it
// reaches the recognizer.
type Extractor struct {
	recognizer Recognizer
}

// NewExtractor creates an extractor backed by recognizer
func NewExtractor(recognizer Recognizer) *Extractor {
	return &Extractor{recognizer: recognizer}
}

// Extract reads the whole image, sniffs and decodes it, then runs recognition.
// The returned text may be empty.
func (e *Extractor) Extract(ctx context.Context, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	detected := mimetype.Detect(data)
	if !isSupported(detected) {
		return "", fmt.Errorf("cannot identify image file (detected %s)", detected.String())
	}

	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("decode %s: %w", detected.String(), err)
	}

	text, err := e.recognizer.Recognize(ctx, data)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return text, nil
}

func isSupported(m *mimetype.MIME) bool {
	for _, mime := range supportedMIME {
		if m.Is(mime) {
			return true
		}
	}
	return false
}
