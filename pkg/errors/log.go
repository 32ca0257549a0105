package errors

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// LogHandler is an ErrorHandler that logs errors to stderr.
type LogHandler struct {
	// Verbose enables detailed output including stack traces.
	Verbose bool
	// Out overrides the destination. Nil means os.Stderr.
	Out io.Writer
}

func (h *LogHandler) out() io.Writer {
	if h.Out != nil {
		return h.Out
	}
	return os.Stderr
}

// HandleError logs a PermissionError.
func (h *LogHandler) HandleError(err *PermissionError) {
	if err == nil {
		return
	}
	w := h.out()
	if h.Verbose {
		fmt.Fprintf(w, "[permissionx error] %s [%s]", err.Op, err.Kind)
		if err.Permission != "" {
			fmt.Fprintf(w, " permission=%s", err.Permission)
		}
		if err.Channel != "" {
			fmt.Fprintf(w, " channel=%s", err.Channel)
		}
		fmt.Fprintf(w, ": %v\n", err.Err)
		if err.StackTrace != "" {
			fmt.Fprintf(w, "Stack trace:\n%s\n", err.StackTrace)
		}
	} else {
		fmt.Fprintf(w, "[permissionx error] %s: %v\n", err.Op, err.Err)
	}
}

// HandlePanic logs a PanicError.
func (h *LogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	w := h.out()
	if err.Op != "" {
		fmt.Fprintf(w, "[permissionx panic] %s: %v\n", err.Op, err.Value)
	} else {
		fmt.Fprintf(w, "[permissionx panic] %v\n", err.Value)
	}
	if h.Verbose && err.StackTrace != "" {
		fmt.Fprintf(w, "Stack trace:\n%s\n", err.StackTrace)
	}
}

// SlogHandler is an ErrorHandler that forwards reports to a structured logger.
type SlogHandler struct {
	Logger *slog.Logger
}

func (h *SlogHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// HandleError logs a PermissionError at error level.
func (h *SlogHandler) HandleError(err *PermissionError) {
	if err == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("op", err.Op),
		slog.String("kind", err.Kind.String()),
		slog.Any("error", err.Err),
	}
	if err.Permission != "" {
		attrs = append(attrs, slog.String("permission", err.Permission))
	}
	if err.Channel != "" {
		attrs = append(attrs, slog.String("channel", err.Channel))
	}
	h.logger().LogAttrs(context.Background(), slog.LevelError, "permissionx error", attrs...)
}

// HandlePanic logs a PanicError at error level.
func (h *SlogHandler) HandlePanic(err *PanicError) {
	if err == nil {
		return
	}
	h.logger().LogAttrs(context.Background(), slog.LevelError, "permissionx panic",
		slog.String("op", err.Op),
		slog.Any("value", err.Value),
	)
}
