package models

import "encoding/json"

// ChatMessage is one role/content pair of a chat-completion request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the chat-completion request body
type ChatRequest struct {
	Model    string        `json:"model"`
	Store    bool          `json:"store"`
	Messages []ChatMessage `json:"messages"`
}

// ChatResponse keeps only what the analysis needs. Choices stays raw so a
// missing member can be told apart from an explicit null. Content is a pointer
// so a choice without message content can be told apart from an empty reply.
type ChatResponse struct {
	Choices json.RawMessage `json:"choices"`
}

type ChatChoice struct {
	Message *ChatChoiceMessage `json:"message"`
}

type ChatChoiceMessage struct {
	Content *string `json:"content"`
}
