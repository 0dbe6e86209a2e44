package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer runs Tesseract through gosseract. A fresh client is used per call
// so concurrent requests never share engine state.
type Recognizer struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

// NewRecognizer creates a recognizer for a "+"-separated language list such as "eng+deu"
func NewRecognizer(language string) *Recognizer {
	var langs []string
	for _, l := range strings.Split(language, "+") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	return &Recognizer{languages: langs, clientFactory: gosseract.NewClient}
}

// Recognize implements ocr.Recognizer
func (r *Recognizer) Recognize(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	c := r.clientFactory()
	defer c.Close()

	if len(r.languages) > 0 {
		if err := c.SetLanguage(r.languages...); err != nil {
			return "", fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	return c.Text()
}
