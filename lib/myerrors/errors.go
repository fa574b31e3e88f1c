package myerrors

import (
	"errors"
	"fmt"
	"log"
	"net/http"
)

type httpErrorCoder interface {
	error
	GetHTTPErrorCode() int
}

type fieldIdentifier interface {
	GetField() string
}

type httpError struct {
	httpCode int
	field    string
	err      error
}

func (e httpError) Error() string {
	return fmt.Sprintf("status: %d, err: %s", e.httpCode, e.err.Error())
}

func (e httpError) Unwrap() error {
	return e.err
}

func (e httpError) GetHTTPErrorCode() int {
	return e.httpCode
}

func (e httpError) GetField() string {
	return e.field
}

func newError(httpCode int, err error) *httpError {
	return &httpError{
		httpCode: httpCode,
		err:      err,
	}
}

func NewInvalidInputError(err error) *httpError {
	log.Printf("Returning 400: %s", err.Error())
	return newError(http.StatusBadRequest, err)
}

func NewInvalidInputErrorf(format string, args ...interface{}) *httpError {
	return NewInvalidInputError(fmt.Errorf(format, args...))
}

// NewFieldError is an invalid-input error that names the first offending field
func NewFieldError(field string, err error) *httpError {
	e := NewInvalidInputError(err)
	e.field = field
	return e
}

func NewFieldErrorf(field string, format string, args ...interface{}) *httpError {
	return NewFieldError(field, fmt.Errorf(format, args...))
}

func NewUnsupportedMediaTypeError(err error) *httpError {
	return newError(http.StatusUnsupportedMediaType, err)
}

func NewPayloadTooLargeError(err error) *httpError {
	return newError(http.StatusRequestEntityTooLarge, err)
}

func NewNotFoundError(err error) *httpError {
	return newError(http.StatusNotFound, err)
}

func NewConflictError(err error) *httpError {
	return newError(http.StatusConflict, err)
}

func NewAuthenticationError(err error) *httpError {
	return newError(http.StatusForbidden, err)
}

func NewInternalError(err error) *httpError {
	return newError(http.StatusInternalServerError, err)
}

func NewNotImplementedError(err error) *httpError {
	return newError(http.StatusNotImplemented, err)
}

func NewUnavailableError(err error) *httpError {
	return newError(http.StatusServiceUnavailable, err)
}

func GetHTTPStatus(err error) int {
	var coder httpErrorCoder
	if err != nil && errors.As(err, &coder) {
		return coder.GetHTTPErrorCode()
	}
	return http.StatusInternalServerError
}

func GetField(err error) string {
	var identifier fieldIdentifier
	if err != nil && errors.As(err, &identifier) {
		return identifier.GetField()
	}
	return ""
}

func IsNotFound(err error) bool {
	return GetHTTPStatus(err) == http.StatusNotFound
}
