// Package device simulates the native side of the permissionx platform
// channels.
//
// A Device answers method calls as the OS would, following a scenario's
// scripted user. Asynchronous answers (prompt results, settings returns,
// dialog taps) are queued on the device's event loop and delivered through
// platform.HandleEvent, so a simulated request exercises the same code paths
// as a request on a real device.
package device

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/go-drift/permissionx/cmd/permx/internal/scenario"
	"github.com/go-drift/permissionx/pkg/permissionx"
	"github.com/go-drift/permissionx/pkg/platform"
)

// Channel names of the permissionx protocol, as seen from the native side.
const (
	PermissionsChannel  = "permissionx/permissions"
	ResultsChannel      = "permissionx/permissions/results"
	DialogChannel       = "permissionx/dialog"
	DialogEventsChannel = "permissionx/dialog/events"
	LifecycleChannel    = "drift/lifecycle/events"
)

// ErrUnknownMethod is returned for calls the device does not implement.
var ErrUnknownMethod = errors.New("device: unknown method")

// Stats counts what the simulated user went through.
type Stats struct {
	Prompts        int
	Dialogs        int
	SettingsVisits int
	Dismissed      int
	Events         int
}

// Device is a scripted platform.NativeBridge with a single-threaded event
// loop. All callbacks, including the ones platform.Dispatch receives, run on
// the goroutine that calls Run.
type Device struct {
	codec  platform.MessageCodec
	logger *slog.Logger
	info   permissionx.Platform

	granted  map[string]bool
	forever  map[string]bool
	prompts  map[string][]scenario.Answer
	settings map[string]bool
	taps     []scenario.Tap
	detachOn int

	mu      sync.Mutex
	queue   []func()
	open    []string
	streams map[string]bool
	stats   Stats
}

// Option configures a Device.
type Option func(*Device)

// WithCodec selects the wire codec. Install applies it to the platform layer
// too. The default is JSON.
func WithCodec(c platform.MessageCodec) Option {
	return func(d *Device) { d.codec = c }
}

// WithLogger traces bridge traffic at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Device) { d.logger = logger }
}

// New creates a device scripted by script and reporting info as its API
// levels.
func New(script scenario.Device, info permissionx.Platform, opts ...Option) *Device {
	d := &Device{
		codec:    platform.JsonCodec{},
		logger:   slog.New(slog.DiscardHandler),
		info:     info,
		granted:  make(map[string]bool),
		forever:  make(map[string]bool),
		prompts:  make(map[string][]scenario.Answer, len(script.Prompts)),
		settings: make(map[string]bool),
		taps:     slices.Clone(script.Dialogs),
		detachOn: script.DetachOnDialog,
		streams:  make(map[string]bool),
	}
	for _, id := range script.Granted {
		d.granted[id] = true
	}
	for id, answers := range script.Prompts {
		d.prompts[id] = slices.Clone(answers)
	}
	for _, id := range script.Settings {
		d.settings[id] = true
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Install makes d the platform's native bridge and dispatcher.
func (d *Device) Install() {
	platform.SetCodec(d.codec)
	platform.SetNativeBridge(d)
	platform.RegisterDispatch(d.Post)
}

// Post queues fn on the event loop.
func (d *Device) Post(fn func()) {
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
}

// Run executes queued callbacks, including the ones they queue, until the
// queue is empty or ctx is done. It returns the number of callbacks run.
func (d *Device) Run(ctx context.Context) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return n, nil
		}
		fn := d.queue[0]
		d.queue = d.queue[1:]
		d.mu.Unlock()

		fn()
		n++
	}
}

// Stats returns the counters collected so far.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// OpenDialogs returns the ids of the dialogs shown and not dismissed, in the
// order they were shown.
func (d *Device) OpenDialogs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.open)
}

// Granted reports whether the simulated OS holds id.
func (d *Device) Granted(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.granted[id]
}

// InvokeMethod implements platform.NativeBridge.
func (d *Device) InvokeMethod(channel, method string, argsData []byte) ([]byte, error) {
	decoded, err := d.codec.Decode(argsData)
	if err != nil {
		return nil, err
	}
	args, _ := decoded.(map[string]any)
	d.logger.Debug("native call", "channel", channel, "method", method, "args", args)

	var result any
	switch channel {
	case PermissionsChannel:
		result, err = d.handlePermissions(method, args)
	case DialogChannel:
		result, err = d.handleDialog(method, args)
	default:
		err = platform.ErrChannelNotFound
	}
	if err != nil {
		return nil, err
	}
	return d.codec.Encode(result)
}

// StartEventStream implements platform.NativeBridge.
func (d *Device) StartEventStream(channel string) error {
	d.mu.Lock()
	d.streams[channel] = true
	d.mu.Unlock()
	return nil
}

// StopEventStream implements platform.NativeBridge.
func (d *Device) StopEventStream(channel string) error {
	d.mu.Lock()
	delete(d.streams, channel)
	d.mu.Unlock()
	return nil
}

func (d *Device) handlePermissions(method string, args map[string]any) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	switch method {
	case "check":
		id, _ := args["permission"].(string)
		return granted(d.granted[id]), nil
	case "canDrawOverlays":
		return granted(d.granted[permissionx.PermissionSystemAlertWindow]), nil
	case "canWriteSettings":
		return granted(d.granted[permissionx.PermissionWriteSettings]), nil
	case "isExternalStorageManager":
		return granted(d.granted[permissionx.PermissionManageExternalStorage]), nil
	case "platformInfo":
		return map[string]any{"sdkInt": d.info.SDKVersion, "targetSdkInt": d.info.TargetSDKVersion}, nil
	case "request":
		requestID, _ := args["requestId"].(string)
		if requestID == "" {
			return nil, platform.ErrInvalidArguments
		}
		d.stats.Prompts++
		results := make(map[string]any)
		for _, id := range stringList(args["permissions"]) {
			results[id] = d.answerLocked(id)
		}
		d.emitLocked(ResultsChannel, map[string]any{"requestId": requestID, "results": results})
		return nil, nil
	case "openSettings":
		requestID, _ := args["requestId"].(string)
		target, _ := args["target"].(string)
		if requestID == "" {
			return nil, platform.ErrInvalidArguments
		}
		d.stats.SettingsVisits++
		for id := range d.settings {
			if settingsTarget(id) == target {
				d.granted[id] = true
			}
		}
		d.emitLocked(ResultsChannel, map[string]any{"requestId": requestID, "returned": true})
		return nil, nil
	}
	return nil, ErrUnknownMethod
}

// answerLocked pops the scripted answer for one prompted permission.
func (d *Device) answerLocked(id string) map[string]any {
	if d.granted[id] {
		return map[string]any{"granted": true}
	}
	if d.forever[id] {
		return map[string]any{"granted": false, "mayAskAgain": false}
	}
	answer := scenario.AnswerDeny
	if queue := d.prompts[id]; len(queue) > 0 {
		answer = queue[0]
		d.prompts[id] = queue[1:]
	}
	switch answer {
	case scenario.AnswerGrant:
		d.granted[id] = true
		return map[string]any{"granted": true}
	case scenario.AnswerDenyForever:
		d.forever[id] = true
		return map[string]any{"granted": false, "mayAskAgain": false}
	default:
		return map[string]any{"granted": false, "mayAskAgain": true}
	}
}

func (d *Device) handleDialog(method string, args map[string]any) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id, _ := args["id"].(string)
	if id == "" {
		return nil, platform.ErrInvalidArguments
	}
	switch method {
	case "show":
		d.stats.Dialogs++
		d.open = append(d.open, id)
		if d.detachOn > 0 && d.stats.Dialogs == d.detachOn {
			d.emitLocked(LifecycleChannel, map[string]any{"state": "detached"})
			return nil, nil
		}
		if len(d.taps) == 0 {
			// Nobody answers: the dialog stays up.
			return nil, nil
		}
		tap := d.taps[0]
		d.taps = d.taps[1:]
		d.emitLocked(DialogEventsChannel, map[string]any{"id": id, "action": string(tap)})
		return nil, nil
	case "dismiss":
		if i := slices.Index(d.open, id); i >= 0 {
			d.open = slices.Delete(d.open, i, i+1)
			d.stats.Dismissed++
		}
		return nil, nil
	}
	return nil, ErrUnknownMethod
}

// emitLocked queues an event for delivery on the event loop.
func (d *Device) emitLocked(channel string, payload map[string]any) {
	d.stats.Events++
	d.queue = append(d.queue, func() {
		data, err := d.codec.Encode(payload)
		if err != nil {
			d.logger.Error("encode event", "channel", channel, "error", err)
			return
		}
		d.logger.Debug("native event", "channel", channel, "payload", payload)
		if err := platform.HandleEvent(channel, data); err != nil {
			d.logger.Debug("deliver event", "channel", channel, "error", err)
		}
	})
}

func granted(v bool) map[string]any {
	return map[string]any{"granted": v}
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, e := range list {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// settingsTarget names the settings screen that grants id.
func settingsTarget(id string) string {
	if kind, err := permissionx.ParseSpecial(id); err == nil {
		return kind.SettingsTarget().String()
	}
	return permissionx.SettingsApp.String()
}
