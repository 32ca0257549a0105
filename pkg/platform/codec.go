// Package platform connects permission requests to the native side over
// platform channels. It provides the channel layer (method and event
// channels, codecs, the native bridge registry, UI-thread dispatch and the
// lifecycle service) and the adapters built on it: PermissionHost, which
// implements the permissionx probe and broker, and DialogService, which
// renders permissionx dialogs natively.
package platform

import (
	"encoding/json"
	"errors"
	"sync"
)

// MessageCodec encodes and decodes messages for platform channel communication.
type MessageCodec interface {
	// Encode converts a Go value to bytes for transmission to native code.
	Encode(value any) ([]byte, error)

	// Decode converts bytes received from native code to a Go value.
	Decode(data []byte) (any, error)
}

// JsonCodec implements MessageCodec using JSON encoding.
// JSON prioritizes interoperability and minimal native dependencies.
type JsonCodec struct{}

// Encode serializes the value to JSON bytes.
func (c JsonCodec) Encode(value any) ([]byte, error) {
	return json.Marshal(value)
}

// Decode deserializes JSON bytes to a Go value.
func (c JsonCodec) Decode(data []byte) (any, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DefaultCodec is the codec used by platform channels. Change it with
// SetCodec.
var DefaultCodec MessageCodec = JsonCodec{}

var codecMu sync.RWMutex

// SetCodec selects the codec used for every channel payload. Both sides of
// the bridge must agree on it. Pass nil to restore JSON.
func SetCodec(c MessageCodec) {
	codecMu.Lock()
	defer codecMu.Unlock()
	if c == nil {
		c = JsonCodec{}
	}
	DefaultCodec = c
}

// currentCodec returns the codec selected with SetCodec.
func currentCodec() MessageCodec {
	codecMu.RLock()
	defer codecMu.RUnlock()
	return DefaultCodec
}

// Standard errors for platform channel operations.
var (
	// ErrChannelNotFound indicates the requested platform channel does not exist.
	ErrChannelNotFound = errors.New("platform channel not found")

	// ErrMethodNotFound indicates the method is not implemented on the native side.
	ErrMethodNotFound = errors.New("method not implemented")

	// ErrInvalidArguments indicates the arguments passed to the method were invalid.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrPlatformUnavailable indicates no native bridge is connected.
	ErrPlatformUnavailable = errors.New("platform feature unavailable")

	// ErrUnknownRequest indicates an event named a request or dialog id that
	// is not pending.
	ErrUnknownRequest = errors.New("unknown request id")
)

// ChannelError represents an error returned from native code.
type ChannelError struct {
	Code    string `json:"code" cbor:"code"`
	Message string `json:"message" cbor:"message"`
	Details any    `json:"details,omitempty" cbor:"details,omitempty"`
}

func (e *ChannelError) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

// NewChannelError creates a new ChannelError with the given code and message.
func NewChannelError(code, message string) *ChannelError {
	return &ChannelError{Code: code, Message: message}
}

// NewChannelErrorWithDetails creates a new ChannelError with additional details.
func NewChannelErrorWithDetails(code, message string, details any) *ChannelError {
	return &ChannelError{Code: code, Message: message, Details: details}
}
