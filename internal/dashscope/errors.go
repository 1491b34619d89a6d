package dashscope

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is an error object embedded in a DashScope response body.
// DashScope may return it with any HTTP status, including 200.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`
	Code       any    `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("dashscope: api error: %s (%s)", e.Message, e.Type)
	}
	return "dashscope: api error: " + e.Message
}

// TransportError means no response was obtained: the request failed, was
// cancelled, or its body could not be read.
type TransportError struct {
	Method     string `json:"method"`
	URL        string `json:"url"`
	StatusCode int    `json:"statusCode,omitempty"`
	Err        error  `json:"-"`
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("dashscope: %s %s", e.Method, e.URL)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// MarshalJSON serializes the failure for diagnostics.
func (e *TransportError) MarshalJSON() ([]byte, error) {
	type wire TransportError
	var cause string
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(struct {
		*wire
		Error string `json:"error,omitempty"`
	}{(*wire)(e), cause})
}

// ResponseError is a non-2xx streaming response without an error object.
type ResponseError struct {
	StatusCode int
	Body       string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("dashscope: unexpected status %d", e.StatusCode)
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}

// embeddedError returns the error object carried by body, if any.
func embeddedError(status int, body []byte) *APIError {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return nil
	}
	env.Error.StatusCode = status
	return env.Error
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// truncate limits string length for logging and diagnostics.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
