package generation

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf16"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

const (
	// DefaultChatModel is used when a chat request names no model.
	DefaultChatModel = "gemini-2.5-flash"
	// DefaultImageModel is used when an image request names no model. Only
	// requests for this model are eligible for the quota fallback chain.
	DefaultImageModel = "gemini-2.5-flash-image"
	// ExperimentalImageModel serves image requests once the default image
	// model's quota is exhausted.
	ExperimentalImageModel = "gemini-2.0-flash-exp-image-generation"

	DefaultTemperature = 0.7
	MinTemperature     = 0.0
	MaxTemperature     = 2.0

	// MaxPromptChars is measured in UTF-16 code units, the way browsers count
	// string length, so a character outside the BMP counts twice.
	MaxPromptChars = 4000
)

// ChatMessage is one conversation turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a validated chat call.
type ChatRequest struct {
	Messages    []ChatMessage
	Temperature float64
	Model       string
}

// ImageRequest is a validated image generation call.
type ImageRequest struct {
	Prompt string
	Model  string
}

// GeneratedImage is an inline-encoded image returned to the caller.
type GeneratedImage struct {
	MIMEType string `json:"mimeType"`
	DataURL  string `json:"dataUrl"`
}

// ParseChatRequest validates a decoded JSON body into a ChatRequest. Message
// content is checked after trimming but stored as sent.
func ParseChatRequest(body any) (ChatRequest, error) {
	obj, ok := body.(map[string]any)
	if !ok {
		return ChatRequest{}, invalidBody()
	}

	raw, ok := obj["messages"].([]any)
	if !ok || len(raw) == 0 {
		return ChatRequest{}, &ValidationError{Field: "messages", Message: "'messages' must be a non-empty array"}
	}

	messages := make([]ChatMessage, 0, len(raw))
	for idx, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			return ChatRequest{}, &ValidationError{
				Field:   fmt.Sprintf("messages[%d]", idx),
				Message: fmt.Sprintf("messages[%d] must be an object", idx),
			}
		}
		role, _ := m["role"].(string)
		if !isChatRole(role) {
			return ChatRequest{}, &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", idx),
				Message: fmt.Sprintf("messages[%d].role must be system|user|assistant", idx),
			}
		}
		content, ok := m["content"].(string)
		if !ok || strings.TrimSpace(content) == "" {
			return ChatRequest{}, &ValidationError{
				Field:   fmt.Sprintf("messages[%d].content", idx),
				Message: fmt.Sprintf("messages[%d].content must be a non-empty string", idx),
			}
		}
		messages = append(messages, ChatMessage{Role: role, Content: content})
	}

	temperature := DefaultTemperature
	if v, present := obj["temperature"]; present && v != nil {
		f, ok := v.(float64)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return ChatRequest{}, &ValidationError{Field: "temperature", Message: "'temperature' must be a number"}
		}
		temperature = f
	}
	if temperature < MinTemperature || temperature > MaxTemperature {
		return ChatRequest{}, &ValidationError{Field: "temperature", Message: "'temperature' must be between 0 and 2"}
	}

	return ChatRequest{
		Messages:    messages,
		Temperature: temperature,
		Model:       modelOrDefault(obj["model"], DefaultChatModel),
	}, nil
}

// ParseImageRequest validates a decoded JSON body into an ImageRequest. The
// length limit applies to the prompt as sent, not the trimmed copy.
func ParseImageRequest(body any) (ImageRequest, error) {
	obj, ok := body.(map[string]any)
	if !ok {
		return ImageRequest{}, invalidBody()
	}

	prompt, ok := obj["prompt"].(string)
	if !ok || strings.TrimSpace(prompt) == "" {
		return ImageRequest{}, &ValidationError{Field: "prompt", Message: "'prompt' must be a non-empty string"}
	}
	if promptLength(prompt) > MaxPromptChars {
		return ImageRequest{}, &ValidationError{
			Field:   "prompt",
			Message: fmt.Sprintf("'prompt' is too long (max %d chars)", MaxPromptChars),
		}
	}

	return ImageRequest{
		Prompt: prompt,
		Model:  modelOrDefault(obj["model"], DefaultImageModel),
	}, nil
}

func isChatRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

func modelOrDefault(v any, fallback string) string {
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return fallback
}

func invalidBody() error {
	return &ValidationError{Field: "body", Message: "Invalid JSON body"}
}

func promptLength(prompt string) int {
	return len(utf16.Encode([]rune(prompt)))
}
