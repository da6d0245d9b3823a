package analyzer

import (
	"errors"
	"fmt"
)

var (
	ErrTransport         = errors.New("transport error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrInvalidURL        = errors.New("invalid url")
)

// ResponseError is a non-2xx answer from the upstream. Message is what the user sees.
type ResponseError struct {
	StatusCode int
	Message    string
}

func (e *ResponseError) Error() string {
	return e.Message
}

func statusMessage(code int) string {
	return fmt.Sprintf("Server responded with status: %d", code)
}
