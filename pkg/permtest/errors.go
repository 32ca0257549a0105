package permtest

import (
	"testing"

	"github.com/go-drift/permissionx/pkg/errors"
)

// ErrorLog collects reports sent to the global error handler.
type ErrorLog struct {
	Errors []*errors.PermissionError
	Panics []*errors.PanicError
}

// HandleError implements errors.ErrorHandler.
func (l *ErrorLog) HandleError(err *errors.PermissionError) { l.Errors = append(l.Errors, err) }

// HandlePanic implements errors.ErrorHandler.
func (l *ErrorLog) HandlePanic(err *errors.PanicError) { l.Panics = append(l.Panics, err) }

// Kinds returns the kinds of the collected errors, in order.
func (l *ErrorLog) Kinds() []errors.ErrorKind {
	kinds := make([]errors.ErrorKind, len(l.Errors))
	for i, err := range l.Errors {
		kinds[i] = err.Kind
	}
	return kinds
}

// CaptureErrors installs an ErrorLog as the global error handler until the
// test ends.
func CaptureErrors(t testing.TB) *ErrorLog {
	t.Helper()
	log := &ErrorLog{}
	prev := errors.DefaultHandler
	errors.SetHandler(log)
	t.Cleanup(func() { errors.SetHandler(prev) })
	return log
}
