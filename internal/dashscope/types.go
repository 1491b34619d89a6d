package dashscope

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// TranslationOptions carries the Qwen-MT language pair.
type TranslationOptions struct {
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// ChatCompletionBody is the request body for /chat/completions.
// Stream is always serialized, including false.
type ChatCompletionBody struct {
	Model              string             `json:"model"`
	Messages           []ChatMessage      `json:"messages"`
	Stream             bool               `json:"stream"`
	TranslationOptions TranslationOptions `json:"translation_options"`
}

// NewTranslationBody builds a single-user-message body for text.
func NewTranslationBody(model, text, sourceLang, targetLang string, stream bool) *ChatCompletionBody {
	return &ChatCompletionBody{
		Model: model,
		Messages: []ChatMessage{
			{Role: RoleUser, Content: text},
		},
		Stream: stream,
		TranslationOptions: TranslationOptions{
			SourceLang: sourceLang,
			TargetLang: targetLang,
		},
	}
}

func (b *ChatCompletionBody) Validate() error {
	if b.Model == "" {
		return errors.New("model is required")
	}
	if len(b.Messages) == 0 {
		return errors.New("at least one message is required")
	}
	for i, m := range b.Messages {
		if m.Role != RoleSystem && m.Role != RoleUser && m.Role != RoleAssistant {
			return fmt.Errorf("invalid role %q in messages[%d]", m.Role, i)
		}
	}
	return nil
}

type ChatChoice struct {
	Index        int          `json:"index"`
	Message      *ChatMessage `json:"message,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionResponse is a decoded non-streaming response.
// Raw keeps the body as received.
type ChatCompletionResponse struct {
	ID      string       `json:"id,omitempty"`
	Object  string       `json:"object,omitempty"`
	Created int64        `json:"created,omitempty"`
	Model   string       `json:"model,omitempty"`
	Choices []ChatChoice `json:"choices"`
	Usage   *Usage       `json:"usage,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// FirstMessage returns choices[0].message, or nil when there is none.
func (r *ChatCompletionResponse) FirstMessage() *ChatMessage {
	if r == nil || len(r.Choices) == 0 {
		return nil
	}
	return r.Choices[0].Message
}

type StreamDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

type StreamChoice struct {
	Index        int         `json:"index"`
	Delta        StreamDelta `json:"delta"`
	FinishReason string      `json:"finish_reason,omitempty"`
}

// StreamChunk is the payload of one "data:" line.
type StreamChunk struct {
	ID      string         `json:"id,omitempty"`
	Model   string         `json:"model,omitempty"`
	Choices []StreamChoice `json:"choices"`
	Usage   *Usage         `json:"usage,omitempty"`
	Error   *APIError      `json:"error,omitempty"`
}

// Content returns choices[0].delta.content and whether it is non-empty.
func (c *StreamChunk) Content() (string, bool) {
	if c == nil || len(c.Choices) == 0 {
		return "", false
	}
	content := c.Choices[0].Delta.Content
	return content, content != ""
}

// StreamResult is one item received from ChatCompletionStream: either a text
// buffer (one line of the response body) or a terminal error.
type StreamResult struct {
	Text string
	Err  error
}

type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object,omitempty"`
	OwnedBy string `json:"owned_by,omitempty"`
}
