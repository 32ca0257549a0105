package permtest

import (
	"slices"
	"testing"

	"github.com/go-drift/permissionx/pkg/permissionx"
)

// Outcome is the scripted user answer to one OS permission prompt.
type Outcome string

const (
	// Grant allows the permission.
	Grant Outcome = "grant"
	// Deny refuses the permission; the app may ask again.
	Deny Outcome = "deny"
	// DenyForever refuses with "don't ask again". Every later prompt for the
	// same permission is refused the same way without asking.
	DenyForever Outcome = "deny_forever"
)

// Host is a scripted device implementing permissionx.Probe,
// permissionx.Broker and permissionx.DialogFactory.
//
// By default the broker answers synchronously. With Async set, answers are
// queued and delivered by Pump, which mirrors the OS resuming the app later.
type Host struct {
	// Async queues broker answers and dialog actions until Pump.
	Async bool
	// Platform is reported through Collaborators.
	Platform permissionx.Platform

	granted    map[string]bool
	forever    map[string]bool
	responses  map[string][]Outcome
	inSettings map[string]bool

	dispatches []func()
	answers    []Action

	// Requests records the ids of every OS prompt, in order.
	Requests [][]string
	// Settings records every settings screen opened, in order.
	Settings []permissionx.SettingsTarget
	// Dialogs records every dialog created by the host, in order.
	Dialogs []*Dialog
}

// NewHost returns a host where nothing is granted.
func NewHost() *Host {
	return &Host{
		granted:    make(map[string]bool),
		forever:    make(map[string]bool),
		responses:  make(map[string][]Outcome),
		inSettings: make(map[string]bool),
	}
}

// NewHostWithT is NewHost for tests that want errors reported during the
// test collected instead of printed.
func NewHostWithT(t testing.TB) (*Host, *ErrorLog) {
	return NewHost(), CaptureErrors(t)
}

// Grant marks ids as granted before the request starts.
func (h *Host) Grant(ids ...string) *Host {
	for _, id := range ids {
		h.granted[id] = true
	}
	return h
}

// Revoke marks ids as not granted, as if the user turned them off.
func (h *Host) Revoke(ids ...string) *Host {
	for _, id := range ids {
		delete(h.granted, id)
	}
	return h
}

// Respond scripts the answers to successive prompts that include id.
// Unscripted prompts are answered with Deny.
func (h *Host) Respond(id string, outcomes ...Outcome) *Host {
	h.responses[id] = append(h.responses[id], outcomes...)
	return h
}

// GrantInSettings makes ids become granted when the user visits the settings
// screen that controls them.
func (h *Host) GrantInSettings(ids ...string) *Host {
	for _, id := range ids {
		h.inSettings[id] = true
	}
	return h
}

// Collaborators returns the host wired as every permissionx collaborator.
func (h *Host) Collaborators() permissionx.Host {
	return permissionx.Host{
		Probe:    h,
		Broker:   h,
		Dialogs:  h,
		Platform: h.Platform,
	}
}

// IsGranted implements permissionx.Probe.
func (h *Host) IsGranted(id string) bool { return h.granted[id] }

// CanDrawOverlays implements permissionx.Probe.
func (h *Host) CanDrawOverlays() bool { return h.granted[permissionx.PermissionSystemAlertWindow] }

// CanWriteSystemSettings implements permissionx.Probe.
func (h *Host) CanWriteSystemSettings() bool { return h.granted[permissionx.PermissionWriteSettings] }

// IsExternalStorageManager implements permissionx.Probe.
func (h *Host) IsExternalStorageManager() bool {
	return h.granted[permissionx.PermissionManageExternalStorage]
}

// RequestPermissions implements permissionx.Broker.
func (h *Host) RequestPermissions(ids []string, done func(map[string]permissionx.GrantResult)) {
	h.Requests = append(h.Requests, slices.Clone(ids))
	results := make(map[string]permissionx.GrantResult, len(ids))
	for _, id := range ids {
		results[id] = h.answer(id)
	}
	h.post(func() { done(results) })
}

func (h *Host) answer(id string) permissionx.GrantResult {
	if h.granted[id] {
		return permissionx.GrantResult{Granted: true}
	}
	if h.forever[id] {
		return permissionx.GrantResult{}
	}
	outcome := Deny
	if queue := h.responses[id]; len(queue) > 0 {
		outcome = queue[0]
		h.responses[id] = queue[1:]
	}
	switch outcome {
	case Grant:
		h.granted[id] = true
		return permissionx.GrantResult{Granted: true}
	case DenyForever:
		h.forever[id] = true
		return permissionx.GrantResult{}
	default:
		return permissionx.GrantResult{MayAskAgain: true}
	}
}

// OpenSettings implements permissionx.Broker.
func (h *Host) OpenSettings(target permissionx.SettingsTarget, done func()) {
	h.Settings = append(h.Settings, target)
	for id := range h.inSettings {
		if settingsTargetFor(id) == target {
			h.granted[id] = true
			delete(h.forever, id)
		}
	}
	h.post(done)
}

func settingsTargetFor(id string) permissionx.SettingsTarget {
	for _, kind := range permissionx.SpecialKinds() {
		if kind.Permission() == id {
			return kind.SettingsTarget()
		}
	}
	return permissionx.SettingsApp
}

func (h *Host) post(fn func()) {
	if h.Async {
		h.dispatches = append(h.dispatches, fn)
		return
	}
	fn()
}

// Dispatch queues fn for the next Pump.
func (h *Host) Dispatch(fn func()) {
	h.dispatches = append(h.dispatches, fn)
}

// Pump runs the callbacks queued so far and reports how many ran. Callbacks
// queued while pumping wait for the next Pump.
func (h *Host) Pump() int {
	dispatches := h.dispatches
	h.dispatches = nil
	for _, fn := range dispatches {
		fn()
	}
	return len(dispatches)
}

// PumpAll pumps until the queue stays empty and reports the number of
// callbacks run.
func (h *Host) PumpAll() int {
	total := 0
	for len(h.dispatches) > 0 {
		total += h.Pump()
	}
	return total
}

// Pending reports the number of queued callbacks.
func (h *Host) Pending() int {
	return len(h.dispatches)
}
