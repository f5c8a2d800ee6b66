package logging

import (
	"context"
	"log/slog"
	"time"
)

// Standardized attribute keys shared across components.
const (
	FieldComponent = "component"
	FieldJobID     = "job_id"
	FieldFile      = "file"
	FieldFileType  = "file_type"
	FieldCategory  = "category"
	FieldScore     = "score"
	FieldAction    = "action"
	FieldElapsed   = "elapsed"
)

type Attr = slog.Attr

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func String(key string, value string) Attr { return slog.String(key, value) }

func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// NewNop returns a logger that discards everything.
func NewNop() *slog.Logger {
	return slog.New(nopHandler{})
}

// NewComponentLogger creates a logger with a standardized component attribute.
// If logger is nil, a no-op logger is used as the base.
func NewComponentLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	return logger.With(String(FieldComponent, component))
}

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (nopHandler) Handle(context.Context, slog.Record) error { return nil }

func (nopHandler) WithAttrs([]slog.Attr) slog.Handler { return nopHandler{} }

func (nopHandler) WithGroup(string) slog.Handler { return nopHandler{} }
