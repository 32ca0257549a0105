package permissionx

import "errors"

var (
	// ErrNoResultCallback is returned by Run when the result callback is nil.
	ErrNoResultCallback = errors.New("permissionx: result callback is required")

	// ErrNoHost is returned by Run when the probe or broker is missing.
	ErrNoHost = errors.New("permissionx: host probe and broker are required")

	// ErrRequestInFlight is returned by Run while a previous run on the same
	// request has not delivered its result.
	ErrRequestInFlight = errors.New("permissionx: request already in flight")

	// ErrCanceled is returned by Await when its context is canceled.
	ErrCanceled = errors.New("permissionx: wait canceled")

	// ErrTimeout is returned by Await when its context deadline passes.
	ErrTimeout = errors.New("permissionx: wait timed out")

	errNotDeclared  = errors.New("permission was not declared")
	errTaskFinished = errors.New("task already finished")
	errNoDialogs    = errors.New("no dialog factory configured")
	errNoPositive   = errors.New("dialog has no positive control")
	errUnknownKind  = errors.New("unknown special permission kind")
)
