package service

import (
	"strings"
	"unicode/utf8"
)

const (
	// minContextChars is the trimmed text length below which a related link is appended.
	minContextChars = 20

	relatedLink = "Additional context: https://example.com/more-info"

	promptTemplate = "Analyze the following social media post for potential misinformation. " +
		"Return a risk score between 1 and 100 and provide a clear explanation for why " +
		"the content might be misleading. Post text: "
)

// AdditionalContext returns the related link for short extracted text, or "".
func AdditionalContext(text string) string {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minContextChars {
		return relatedLink
	}
	return ""
}

// BuildPrompt renders the analysis prompt. The text and the additional context
// are always separated by one space, even when the context is empty; consumers
// of the model output depend on this exact wording.
func BuildPrompt(text string) string {
	return promptTemplate + text + " " + AdditionalContext(text)
}
