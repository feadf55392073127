package authapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// errorMessageFields is the ordered list of body fields that may carry a human-readable failure
var errorMessageFields = []string{"detail", "message", "error"}

const fallbackErrorMessage = "Request failed"

const unreachableMessage = "Unable to reach the authentication service"

// Error is a failed call to an auth endpoint. Its message is fit for display on a form.
// Status is zero when no response was received.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Unreachable wraps a transport failure
func Unreachable(err error) *Error {
	return &Error{Message: unreachableMessage, Err: err}
}

// DisplayMessage is the message a form should show for err
func DisplayMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// NewError builds an Error from a response status and body
func NewError(status int, body []byte) *Error {
	return &Error{
		Status:  status,
		Message: ErrorMessage(body, http.StatusText(status)),
	}
}

// ErrorMessage extracts a display message from an error body.
// It tries detail, message and error in that order, then the status text.
func ErrorMessage(body []byte, statusText string) string {
	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err == nil {
		for _, key := range errorMessageFields {
			if msg := messageValue(fields[key]); msg != "" {
				return msg
			}
		}
	}
	if statusText = strings.TrimSpace(statusText); statusText != "" {
		return statusText
	}
	return fallbackErrorMessage
}

func messageValue(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case []any:
		parts := make([]string, 0, len(value))
		for _, item := range value {
			if s := messageValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	case map[string]any:
		// {"error": {"message": "..."}} shaped bodies
		for _, key := range errorMessageFields {
			if s := messageValue(value[key]); s != "" {
				return s
			}
		}
		return ""
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(value))
	}
}
