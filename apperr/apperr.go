// Package apperr carries typed errors that know their HTTP status and process exit code.
package apperr

import (
	"errors"
	"net/http"
)

// Process exit codes used by the awake commands.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// Error represents a typed, status-aware application error.
type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message,omitempty"`
	Status  int            `json:"-"`
	Exit    int            `json:"-"`
	Fields  map[string]any `json:"fields,omitempty"`
	Err     error          `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	case e.Code != "":
		return e.Code
	}
	return "error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors derived from the same base by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches err to a copy of base. An empty message keeps the base message.
func Wrap(err error, base *Error, message string) *Error {
	if err == nil {
		return nil
	}
	if base == nil {
		base = ErrInternal
	}
	cp := *base
	if message != "" {
		cp.Message = message
	}
	cp.Err = err
	return &cp
}

func WithFields(base *Error, fields map[string]any) *Error {
	if base == nil {
		return nil
	}
	cp := *base
	cp.Fields = fields
	return &cp
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

func Status(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

func Code(err error) string {
	if e, ok := As(err); ok && e.Code != "" {
		return e.Code
	}
	return "internal_error"
}

// ExitCode maps err to a process exit status. nil is success.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if e, ok := As(err); ok && e.Exit != 0 {
		return e.Exit
	}
	return ExitFailure
}

func Message(err error) string {
	if e, ok := As(err); ok {
		if e.Message != "" {
			return e.Message
		}
		if e.Err != nil {
			return e.Err.Error()
		}
		return e.Code
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

func Payload(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	payload := map[string]any{
		"code":    Code(err),
		"message": Message(err),
	}
	if e, ok := As(err); ok && len(e.Fields) > 0 {
		payload["fields"] = e.Fields
	}
	return payload
}

var (
	ErrBadRequest   = New("bad_request", http.StatusBadRequest, "")
	ErrUsage        = &Error{Code: "usage_error", Status: http.StatusBadRequest, Exit: ExitUsage}
	ErrUnauthorized = New("unauthorized", http.StatusUnauthorized, "Unauthorized")
	ErrForbidden    = New("forbidden", http.StatusForbidden, "Forbidden")
	ErrNotFound     = New("not_found", http.StatusNotFound, "")
	ErrInternal     = New("internal_error", http.StatusInternalServerError, "")
	ErrUnavailable  = New("service_unavailable", http.StatusServiceUnavailable, "")
	ErrDatabase     = New("database_error", http.StatusInternalServerError, "")
	ErrConfig       = New("config_error", http.StatusInternalServerError, "")

	ErrMissingSecret = New("missing_secret", http.StatusInternalServerError,
		"FATAL: JWT_SECRET environment variable is required. Please set it in your .env file before starting the server.")
	ErrWeakSecret = New("weak_secret", http.StatusInternalServerError, "")
)
