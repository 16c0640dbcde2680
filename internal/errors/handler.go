package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/emerans-bots/pkg/metrics"
)

// FallbackMessage is shown when an error carries no text for the user.
const FallbackMessage = "Произошла ошибка. Попробуйте позже"

// Update describes the update that failed. Zero values are omitted.
type Update struct {
	UserID int64
	ChatID int64
	Action string
}

func (u Update) attrs() []slog.Attr {
	var attrs []slog.Attr
	if u.UserID != 0 {
		attrs = append(attrs, slog.Int64("user_id", u.UserID))
	}
	if u.ChatID != 0 {
		attrs = append(attrs, slog.Int64("chat_id", u.ChatID))
	}
	if u.Action != "" {
		attrs = append(attrs, slog.String("action", u.Action))
	}
	return attrs
}

// Handler logs handler failures, reports severe ones to Sentry and picks the text
// shown to the user.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{log: log, sentryEnabled: sentryEnabled}
}

// Handle returns the user-facing message for err, or "" for a nil err.
func (h *Handler) Handle(ctx context.Context, err error, upd Update) string {
	if err == nil {
		return ""
	}

	appErr := classify(err)
	metrics.RecordError(appErr.Code, string(appErr.Severity))

	attrs := append(upd.attrs(),
		slog.String("code", appErr.Code),
		slog.String("severity", string(appErr.Severity)),
		slog.String("error", err.Error()),
	)
	level := slog.LevelError
	if appErr.Severity == SeverityLow {
		level = slog.LevelWarn
	}
	h.log.LogAttrs(ctx, level, "update failed", attrs...)

	if h.sentryEnabled && (appErr.Severity == SeverityHigh || appErr.Severity == SeverityCritical) {
		h.capture(ctx, err, appErr, upd)
	}

	if appErr.UserMessage != "" {
		return appErr.UserMessage
	}
	return FallbackMessage
}

// HandlePanic reports a recovered panic value as a critical error.
func (h *Handler) HandlePanic(ctx context.Context, recovered any, stack []byte, upd Update) string {
	err := &AppError{
		Code:     "panic",
		Message:  fmt.Sprintf("panic: %v", recovered),
		Severity: SeverityCritical,
	}
	h.log.ErrorContext(ctx, "handler panicked", slog.Any("panic", recovered), slog.String("stack", string(stack)))
	return h.Handle(ctx, err, upd)
}

// classify returns err as an AppError; errors without one count as unknown and high.
func classify(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr
	}
	return &AppError{Code: "unknown", Message: err.Error(), Severity: SeverityHigh}
}

func (h *Handler) capture(ctx context.Context, err error, appErr *AppError, upd Update) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", appErr.Code)
		scope.SetTag("severity", string(appErr.Severity))
		if upd.Action != "" {
			scope.SetTag("action", upd.Action)
		}
		if upd.UserID != 0 {
			scope.SetUser(sentry.User{ID: strconv.FormatInt(upd.UserID, 10)})
		}
		hub.CaptureException(err)
	})
}
