// Package errors defines the body of error responses of eoflowd, and echo errors carrying it.
package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorMessage is the body of error responses.
//
// Cause is for logs. Clients see reason and advice only.
type ErrorMessage struct {
	Reason string
	Advice string
	Cause  error
}

type body struct {
	Reason string `json:"reason"`
	Advice string `json:"advice,omitempty"`
}

// MarshalJSON makes echo send the message as it is.
func (m ErrorMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(body{Reason: m.Reason, Advice: m.Advice})
}

// UnmarshalJSON reads a body which eoflowd has responded. "reason" is mandatory.
func (m *ErrorMessage) UnmarshalJSON(b []byte) error {
	var in struct {
		Reason *string `json:"reason"`
		Advice string  `json:"advice"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if in.Reason == nil {
		return fmt.Errorf(`error body without "reason": %s`, b)
	}
	*m = ErrorMessage{Reason: *in.Reason, Advice: in.Advice}
	return nil
}

func (m ErrorMessage) Error() string {
	msg := m.Reason
	if m.Advice != "" {
		msg += " (" + m.Advice + ")"
	}
	if m.Cause != nil {
		msg += ": " + m.Cause.Error()
	}
	return msg
}

func (m ErrorMessage) Unwrap() error {
	return m.Cause
}

// NewErrorMessage returns an echo error responding ErrorMessage with the status code.
//
// The message is the internal error as well, so its cause gets logged.
func NewErrorMessage(code int, reason string, advice string, cause error) *echo.HTTPError {
	m := ErrorMessage{Reason: reason, Advice: advice, Cause: cause}
	return echo.NewHTTPError(code, m).SetInternal(m)
}

func NotFound() *echo.HTTPError {
	return NewErrorMessage(http.StatusNotFound, "not found", "", nil)
}

func BadRequest(advice string, cause error) *echo.HTTPError {
	return NewErrorMessage(http.StatusBadRequest, "bad request", advice, cause)
}

func Unauthorized(advice string, cause error) *echo.HTTPError {
	return NewErrorMessage(http.StatusUnauthorized, "unauthorized", advice, cause)
}

// Conflict tells that the request cannot be done in the current state of resources.
func Conflict(reason string, cause error) *echo.HTTPError {
	return NewErrorMessage(http.StatusConflict, reason, "", cause)
}

func InternalServerError(cause error) *echo.HTTPError {
	return NewErrorMessage(http.StatusInternalServerError, "unexpected error", "", cause)
}
