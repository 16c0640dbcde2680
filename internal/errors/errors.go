package errors

import (
	stderrors "errors"
	"fmt"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Error codes, grouped by kind.
const (
	CodeValidation    = "E100"
	CodeAuthorization = "E150"
	CodeNotFound      = "E160"
	CodeStorage       = "E200"
	CodeTransport     = "E300"
	CodeState         = "E400"
	CodeRateLimit     = "E500"
)

type AppError struct {
	Code        string
	Message     string
	UserMessage string
	Severity    Severity
	cause       error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

// Is matches AppErrors by code so callers can test kinds with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Code != "" && t.Code == e.Code && t.Message == ""
}

// Kind sentinels for errors.Is checks.
var (
	ErrValidation    = &AppError{Code: CodeValidation}
	ErrAuthorization = &AppError{Code: CodeAuthorization}
	ErrNotFound      = &AppError{Code: CodeNotFound}
	ErrStorage       = &AppError{Code: CodeStorage}
	ErrTransport     = &AppError{Code: CodeTransport}
)

// NewValidationError reports malformed user input. Flows recover from it by re-prompting.
func NewValidationError(msg string) *AppError {
	return &AppError{
		Code:        CodeValidation,
		Message:     msg,
		UserMessage: msg,
		Severity:    SeverityLow,
	}
}

// NewAuthorizationError reports a non-admin reaching an admin-only action.
func NewAuthorizationError(action string) *AppError {
	return &AppError{
		Code:        CodeAuthorization,
		Message:     fmt.Sprintf("access restricted: %s", action),
		UserMessage: "Доступ ограничен.",
		Severity:    SeverityLow,
	}
}

// NewNotFoundError reports a reference (catalog index, application id) that no longer resolves.
func NewNotFoundError(what string, userMessage string) *AppError {
	if userMessage == "" {
		userMessage = "Не найдено."
	}
	return &AppError{
		Code:        CodeNotFound,
		Message:     fmt.Sprintf("%s not found", what),
		UserMessage: userMessage,
		Severity:    SeverityLow,
	}
}

// NewStorageError wraps a failed document load or save.
func NewStorageError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:        CodeStorage,
		Message:     fmt.Sprintf("storage error: %s", underlyingMsg),
		UserMessage: "Временная проблема, попробуйте позже",
		Severity:    SeverityHigh,
		cause:       cause,
	}
}

// NewTransportError wraps a failed chat operation. These are logged and degraded, never shown.
func NewTransportError(op string, cause error) *AppError {
	return &AppError{
		Code:        CodeTransport,
		Message:     fmt.Sprintf("transport error: %s", op),
		UserMessage: "Сервис временно недоступен",
		Severity:    SeverityMedium,
		cause:       cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:        CodeState,
		Message:     msg,
		UserMessage: "Операция невозможна в текущем состоянии",
		Severity:    SeverityMedium,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:        CodeRateLimit,
		Message:     fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		UserMessage: fmt.Sprintf("Слишком много запросов. Попробуйте через %d секунд", retryAfter),
		Severity:    SeverityLow,
	}
}

// UserMessage extracts the text meant for the user, or "" when err carries none.
func UserMessage(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr != nil {
		return appErr.UserMessage
	}
	return ""
}
