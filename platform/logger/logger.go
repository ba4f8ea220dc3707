// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey struct{ name string }

var (
	requestIDKey = contextKey{"request_id"}
	actorIDKey   = contextKey{"actor_id"}
)

// Logger wraps slog.Logger with the pipeline's log events.
type Logger struct {
	*slog.Logger
}

// New creates a text logger at debug level for development and a JSON logger
// at info level everywhere else.
func New(env string) *Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{Logger: slog.New(handler)}
}

// NewNop returns a logger that discards everything. Used by tests and tooling.
func NewNop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// ContextWithRequestID stores the request correlation id for WithContext.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// ContextWithActorID stores the authenticated caller for WithContext.
func ContextWithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, actorIDKey, actorID)
}

// WithContext returns a logger carrying the request and actor ids found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	var attrs []any
	if id, ok := ctx.Value(requestIDKey).(string); ok && id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if id, ok := ctx.Value(actorIDKey).(string); ok && id != "" {
		attrs = append(attrs, slog.String("actor_id", id))
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.With(attrs...)}
}

// HTTPRequest logs a served request. route is the matched gin pattern, so
// lead ids do not explode log cardinality.
func (l *Logger) HTTPRequest(method, route string, status int, latencyMs float64, clientIP string) {
	level := slog.LevelInfo
	if status >= 500 {
		level = slog.LevelError
	}
	l.Log(context.Background(), level, "http_request",
		slog.String("method", method),
		slog.String("route", route),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// StageTransition logs the outcome of a stage move.
func (l *Logger) StageTransition(leadID, fromStage, toStage, actorID string, committed bool, reasons []string) {
	if committed {
		l.Info("stage_transition",
			slog.String("lead_id", leadID),
			slog.String("from", fromStage),
			slog.String("to", toStage),
			slog.String("actor_id", actorID),
		)
		return
	}
	l.Warn("stage_transition_rejected",
		slog.String("lead_id", leadID),
		slog.String("from", fromStage),
		slog.String("to", toStage),
		slog.String("actor_id", actorID),
		slog.Any("reasons", reasons),
	)
}

// AgentAssigned logs an assignment of a lead or task.
func (l *Logger) AgentAssigned(kind, subjectID, agentID string, score int) {
	l.Info("agent_assigned",
		slog.String("kind", kind),
		slog.String("subject_id", subjectID),
		slog.String("agent_id", agentID),
		slog.Int("score", score),
	)
}

// RepositoryReadFailure logs a lookup that was skipped or reported as unverified.
func (l *Logger) RepositoryReadFailure(operation, subjectID string, err error) {
	l.Warn("repository_read_failure",
		slog.String("operation", operation),
		slog.String("subject_id", subjectID),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs a request rejected by the per-client limiter.
func (l *Logger) RateLimitExceeded(clientIP, route string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("route", route),
	)
}
