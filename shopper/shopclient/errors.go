package shopclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/MarcGrol/manualcheckout/lib/myhttp"
)

// ValidationError names the input field the server rejected
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid input: %s", e.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Message)
}

type PayloadTooLargeError struct {
	Message string
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("payload too large: %s", e.Message)
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s", e.Message)
}

// TransientError is a failure that may succeed when retried unchanged
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("temporary failure, try again: %s", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// ServerError is any other non-2xx answer
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Status, e.Message)
}

func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

func IsNotFound(err error) bool {
	var notFound *NotFoundError
	return errors.As(err, &notFound)
}

// decodeError maps a structured error body; a bare status code never becomes a ValidationError
func decodeError(status int, body []byte) error {
	errorResp := myhttp.ErrorResponse{}
	err := json.Unmarshal(body, &errorResp)
	structured := err == nil && errorResp.Message != ""

	message := errorResp.Message
	if !structured {
		message = http.StatusText(status)
	}

	switch {
	case status == http.StatusBadRequest && structured:
		return &ValidationError{Field: errorResp.Field, Message: message}
	case status == http.StatusNotFound:
		return &NotFoundError{Message: message}
	case status == http.StatusRequestEntityTooLarge:
		return &PayloadTooLargeError{Message: message}
	case status == http.StatusConflict:
		return &ConflictError{Message: message}
	case status >= http.StatusInternalServerError, status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return &TransientError{Err: &ServerError{Status: status, Message: message}}
	default:
		return &ServerError{Status: status, Message: message}
	}
}
