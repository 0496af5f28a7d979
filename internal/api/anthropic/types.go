// Package anthropic provides a minimal HTTP client for the Anthropic
// Messages API, used as the text-completion boundary of the service.
package anthropic

import (
	"encoding/json"
	"net/http"

	"github.com/brightfield/onboardbot/internal/domain"
)

// MessagesRequest represents an Anthropic Messages API request.
type MessagesRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	System      string    `json:"system,omitempty"`
	Temperature *float32  `json:"temperature,omitempty"`
}

// Message represents a message in the conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessagesResponse represents an Anthropic Messages API response.
type MessagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// ContentBlock represents a single content block in a response.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Usage reports token consumption for a request.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// FirstText extracts the first text content block as plain text. Returns the
// empty string when the response carries no text content.
func (r *MessagesResponse) FirstText() string {
	for _, block := range r.Content {
		if block.Type == "text" || block.Type == "" {
			return block.Text
		}
	}
	return ""
}

// apiErrorResponse is the wire shape of an Anthropic error body.
type apiErrorResponse struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseErrorResponse maps an error body and HTTP status to the canonical
// error taxonomy. Rate-limit and overloaded/server errors are retryable;
// auth failures surface as transport errors and are not.
func ParseErrorResponse(statusCode int, body []byte) *domain.APIError {
	var parsed apiErrorResponse
	message := string(body)
	errType := ""
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
		errType = parsed.Error.Type
	}

	switch {
	case statusCode == http.StatusTooManyRequests || errType == "rate_limit_error":
		return domain.ErrRateLimit(message)
	case errType == "overloaded_error":
		return domain.ErrOverloaded(message)
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden ||
		errType == "authentication_error" || errType == "permission_error":
		return domain.ErrTransport(message).WithCode(domain.ErrorCodeInvalidAPIKey)
	case statusCode >= 500 || errType == "api_error":
		return domain.ErrServer(message).WithStatusCode(statusCode)
	default:
		return domain.ErrValidation(message).WithStatusCode(statusCode)
	}
}
