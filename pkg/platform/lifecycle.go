package platform

import (
	"slices"
	"sync"

	"github.com/go-drift/permissionx/pkg/errors"
	"github.com/go-drift/permissionx/pkg/permissionx"
)

const lifecycleEventsChannel = "drift/lifecycle/events"

// Lifecycle tracks the state of the container that hosts permission dialogs.
var Lifecycle = &LifecycleService{
	channel: NewMethodChannel("drift/lifecycle"),
	events:  NewEventChannel(lifecycleEventsChannel),
	state:   LifecycleStateResumed,
}

// LifecycleService manages app lifecycle events.
type LifecycleService struct {
	channel  *MethodChannel
	events   *EventChannel
	state    LifecycleState
	handlers []lifecycleEntry
	nextID   int
	mu       sync.RWMutex
}

type lifecycleEntry struct {
	id      int
	handler LifecycleHandler
}

// LifecycleState represents the current app lifecycle state.
type LifecycleState string

const (
	// LifecycleStateResumed indicates the app is visible and responding to user input.
	LifecycleStateResumed LifecycleState = "resumed"

	// LifecycleStateInactive indicates the app is transitioning, for example
	// while a system permission prompt covers it.
	LifecycleStateInactive LifecycleState = "inactive"

	// LifecycleStatePaused indicates the app is not visible but still running,
	// for example while a settings screen is open.
	LifecycleStatePaused LifecycleState = "paused"

	// LifecycleStateDetached indicates the app is still hosted but detached
	// from any view. Dialogs shown before cannot be interacted with.
	LifecycleStateDetached LifecycleState = "detached"
)

// LifecycleHandler is called when lifecycle state changes.
type LifecycleHandler func(state LifecycleState)

func init() {
	registerBuiltinInit(func() {
		Lifecycle.events.Listen(EventHandler{
			OnEvent: func(data any) {
				state, ok := parseMap(data)["state"].(string)
				if !ok {
					errors.Report(&errors.PermissionError{
						Op:      "lifecycle.parseEvent",
						Kind:    errors.KindParsing,
						Channel: lifecycleEventsChannel,
						Err: &errors.ParseError{
							Channel:  lifecycleEventsChannel,
							DataType: "LifecycleState",
							Got:      data,
						},
					})
					return
				}
				Lifecycle.updateState(LifecycleState(state))
			},
			OnError: func(err error) {
				errors.Report(&errors.PermissionError{
					Op:      "lifecycle.streamError",
					Kind:    errors.KindPlatform,
					Channel: lifecycleEventsChannel,
					Err:     err,
				})
			},
		})
	})

	Lifecycle.channel.SetHandler(func(method string, args any) (any, error) {
		switch method {
		case "didChangeState":
			if state, ok := parseMap(args)["state"].(string); ok {
				Lifecycle.updateState(LifecycleState(state))
			}
			return nil, nil
		default:
			return nil, ErrMethodNotFound
		}
	})
}

// State returns the current lifecycle state.
func (l *LifecycleService) State() LifecycleState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// AddHandler registers a handler to be called on lifecycle changes.
// Returns a function that removes the handler; calling it twice is a no-op.
func (l *LifecycleService) AddHandler(handler LifecycleHandler) func() {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.handlers = append(l.handlers, lifecycleEntry{id: id, handler: handler})
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		l.handlers = slices.DeleteFunc(l.handlers, func(e lifecycleEntry) bool { return e.id == id })
		l.mu.Unlock()
	}
}

// IsResumed returns true if the app is in the resumed state.
func (l *LifecycleService) IsResumed() bool {
	return l.State() == LifecycleStateResumed
}

// updateState updates the lifecycle state and notifies handlers.
func (l *LifecycleService) updateState(newState LifecycleState) {
	l.mu.Lock()
	if l.state == newState {
		l.mu.Unlock()
		return
	}
	l.state = newState
	entries := slices.Clone(l.handlers)
	l.mu.Unlock()

	for _, e := range entries {
		e.handler(newState)
	}
}

// DismissOnDetach dismisses req's current dialog when the hosting container
// detaches. The request itself stays suspended and resumes when the broker
// delivers its pending result. Call the returned function once the request
// has finished.
func DismissOnDetach(req *permissionx.PermissionRequest) func() {
	return Lifecycle.AddHandler(func(state LifecycleState) {
		if state == LifecycleStateDetached {
			deliver(req.DismissDialog)
		}
	})
}
