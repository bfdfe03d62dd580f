// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// MessageIDKey is the context key for the bus message ID
	MessageIDKey contextKey = "message_id"
	// IdentityIDKey is the context key for the identity being synced
	IdentityIDKey contextKey = "identity_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports message_id and identity_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if messageID, ok := ctx.Value(MessageIDKey).(string); ok && messageID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("message_id", messageID)),
		}
	}

	if identityID, ok := ctx.Value(IdentityIDKey).(string); ok && identityID != "" {
		newLogger = newLogger.WithIdentityID(identityID)
	}

	return newLogger
}

// WithIdentityID returns a logger with the identity ID attached
func (l *Logger) WithIdentityID(identityID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("identity_id", identityID)),
	}
}

// ClaimsWrite logs a successful claims write for an identity
func (l *Logger) ClaimsWrite(identityID, intent string, roles []string) {
	l.Info("claims_write",
		slog.String("identity_id", identityID),
		slog.String("intent", intent),
		slog.Any("roles", roles),
	)
}

// ClaimsNoop logs an event or command that required no provider write
func (l *Logger) ClaimsNoop(identityID, intent string) {
	l.Debug("claims_noop",
		slog.String("identity_id", identityID),
		slog.String("intent", intent),
	)
}

// RevocationFailed logs a failed token revocation.
// Revocation is best-effort, so this is a warning rather than an error.
func (l *Logger) RevocationFailed(identityID string, err error) {
	l.Warn("token_revocation_failed",
		slog.String("identity_id", identityID),
		slog.String("error", err.Error()),
	)
}

// ConsumerError logs an unexpected consumer failure that will trigger redelivery
func (l *Logger) ConsumerError(task, identityID string, err error) {
	l.Error("consumer_error",
		slog.String("task", task),
		slog.String("identity_id", identityID),
		slog.String("error", err.Error()),
	)
}

// CommandResult logs the outcome of a command consumer
func (l *Logger) CommandResult(command, identityID string, success bool, errorCode string) {
	if success {
		l.Info("command_result",
			slog.String("command", command),
			slog.String("identity_id", identityID),
			slog.Bool("success", success),
		)
	} else {
		l.Warn("command_result",
			slog.String("command", command),
			slog.String("identity_id", identityID),
			slog.Bool("success", success),
			slog.String("error_code", errorCode),
		)
	}
}

// AuditWriteFailed logs a failed audit trail insert.
// The audit trail is best-effort and never fails a consumer.
func (l *Logger) AuditWriteFailed(identityID, intent string, err error) {
	l.Warn("audit_write_failed",
		slog.String("identity_id", identityID),
		slog.String("intent", intent),
		slog.String("error", err.Error()),
	)
}
