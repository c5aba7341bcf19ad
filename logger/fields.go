package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for structured logging.
// Use these constants instead of raw strings so log queries stay stable.
const (
	// Identity
	FieldWorkspaceID  = "workspace_id"
	FieldCadenceID    = "cadence_id"
	FieldFormID       = "form_id"
	FieldInstanceID   = "instance_id"
	FieldSubmissionID = "submission_id"
	FieldRunID        = "run_id"

	// Components
	FieldComponent = "component"
	FieldOperation = "operation"

	// Timing
	FieldScheduledFor = "scheduled_for"
	FieldDueAt        = "due_at"
	FieldNow          = "now"
	FieldHorizonStart = "horizon_start"
	FieldHorizonEnd   = "horizon_end"
	FieldDurationMS   = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts
	FieldCount     = "count"
	FieldCreated   = "created"
	FieldExisting  = "existing"
	FieldAdvanced  = "advanced"
	FieldFailed    = "failed"
	FieldRaced     = "raced"
	FieldBatchSize = "batch_size"

	// Status
	FieldStatus = "status"
	FieldFrom   = "from"
	FieldTo     = "to"

	// Files
	FieldPath = "path"

	FieldSymbol = "symbol"
)

type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	componentKey contextKey = "logger_component"
)

// WithRunID adds a scheduler run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// FromContext returns base enriched with the fields carried by ctx.
// A nil base falls back to the global Logger.
func FromContext(ctx context.Context, base *zap.SugaredLogger) *zap.SugaredLogger {
	if base == nil {
		base = Logger
	}
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	mgr := instance.NewManager(store, logger.ComponentLogger("pulse.instance"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// OrNop returns l, or the global logger when l is nil.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return Logger
	}
	return l
}
