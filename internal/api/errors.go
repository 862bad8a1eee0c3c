package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// UnknownErrorMessage stands in when a failure response carries no message.
const UnknownErrorMessage = "Unknown error"

// Error is a non-2xx response from the API server.
type Error struct {
	Op         string
	StatusCode int
	Message    string
}

// Error returns the server's message so it can be shown to the user as-is.
func (e *Error) Error() string {
	return e.Message
}

// IsAPIError reports whether err is, or wraps, an *Error.
func IsAPIError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr)
}

func errorFromResponse(op string, resp *http.Response) *Error {
	e := &Error{Op: op, StatusCode: resp.StatusCode, Message: UnknownErrorMessage}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return e
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return e
	}
	if msg := strings.TrimSpace(body.Message); msg != "" {
		e.Message = msg
	}
	return e
}
