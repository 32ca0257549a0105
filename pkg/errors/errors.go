// Package errors provides structured error reporting for permissionx.
//
// Nothing in a permission request flow aborts on error: denials are results,
// not failures. Anomalies that do occur (a platform call that fails, an event
// that cannot be parsed, a callback that misuses its scope or panics) are
// reported to a global [ErrorHandler] and the flow degrades gracefully.
package errors

import (
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindPlatform indicates a platform channel or native bridge error.
	KindPlatform
	// KindParsing indicates an event parsing failure.
	KindParsing
	// KindMisuse indicates a scope or task operation invoked out of phase,
	// such as finishing a task twice.
	KindMisuse
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindConfig indicates invalid configuration.
	KindConfig
)

func (k ErrorKind) String() string {
	switch k {
	case KindPlatform:
		return "platform"
	case KindParsing:
		return "parsing"
	case KindMisuse:
		return "misuse"
	case KindPanic:
		return "panic"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// PermissionError represents a structured error in a permission flow.
type PermissionError struct {
	// Op is the operation that failed (e.g., "permissionx.finish").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Permission is the permission identifier involved, if any.
	Permission string
	// Channel is the platform channel name, if applicable.
	Channel string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *PermissionError) Error() string {
	msg := fmt.Sprintf("%s [%s]", e.Op, e.Kind)
	if e.Permission != "" {
		msg += " permission=" + e.Permission
	}
	if e.Channel != "" {
		msg += " channel=" + e.Channel
	}
	return fmt.Sprintf("%s: %v", msg, e.Err)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "permissionx.onExplainRequestReason").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ParseError represents a failure to parse event data.
type ParseError struct {
	// Channel is the platform channel that received the event.
	Channel string
	// DataType is the expected type name.
	DataType string
	// Got is the actual data received.
	Got any
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s from channel %s: got %T", e.DataType, e.Channel, e.Got)
}

// ErrorHandler receives errors reported by permissionx.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *PermissionError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
