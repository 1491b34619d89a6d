package translator

import (
	"encoding/json"
	"errors"

	"qwenmt-translator/internal/dashscope"
)

// ErrorType is the host's error category.
type ErrorType string

const (
	// ErrorTypeParam is a missing or invalid local setting, reported before
	// any network call.
	ErrorTypeParam ErrorType = "param"
	// ErrorTypeAPI is a failure reported by, or while talking to, the service.
	ErrorTypeAPI ErrorType = "api"
)

const (
	msgAPIKeyRequired = "API key is required"
	msgInvalidURL     = "Invalid API URL"
	msgServiceCall    = "service call error"
	msgNoResult       = "no valid translation result"
	msgNoModel        = "No valid model found"
)

// ServiceError is the error delivered to the host. Addition, when set, is a
// JSON serialization of the raw failure for diagnostics.
type ServiceError struct {
	Type     ErrorType `json:"type"`
	Message  string    `json:"message"`
	Addition string    `json:"addition,omitempty"`
}

func (e *ServiceError) Error() string {
	return string(e.Type) + ": " + e.Message
}

func paramError(message string) *ServiceError {
	return &ServiceError{Type: ErrorTypeParam, Message: message}
}

// Classify maps a failed call to a ServiceError. Errors embedded in a
// response body keep their message, a response without one is reported as
// having no result, and a call that got no response is a service call error
// carrying the serialized failure.
func Classify(err error) *ServiceError {
	if err == nil {
		return nil
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}

	var apiErr *dashscope.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return &ServiceError{Type: ErrorTypeAPI, Message: apiErr.Message}
	}

	var respErr *dashscope.ResponseError
	if errors.As(err, &respErr) {
		return &ServiceError{Type: ErrorTypeAPI, Message: msgNoResult, Addition: respErr.Body}
	}

	return &ServiceError{
		Type:     ErrorTypeAPI,
		Message:  msgServiceCall,
		Addition: serialize(err),
	}
}

// serialize renders err as JSON. Errors that know how to marshal themselves
// (transport failures, embedded API errors) are used as-is.
func serialize(err error) string {
	var target json.Marshaler
	if errors.As(err, &target) {
		if raw, mErr := json.Marshal(target); mErr == nil {
			return string(raw)
		}
	}

	var apiErr *dashscope.APIError
	if errors.As(err, &apiErr) {
		if raw, mErr := json.Marshal(struct {
			Error *dashscope.APIError `json:"error"`
		}{apiErr}); mErr == nil {
			return string(raw)
		}
	}

	raw, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{err.Error()})
	return string(raw)
}
