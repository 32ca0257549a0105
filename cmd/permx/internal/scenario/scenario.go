// Package scenario models the YAML files run by "permx simulate".
//
// A scenario declares a request, scripts how the caller reacts in the
// explain and forward callbacks, scripts how the simulated user answers OS
// prompts and dialogs, and optionally states the expected result.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/permissionx/pkg/permissionx"
)

// Scenario is one simulated permission request.
type Scenario struct {
	Name     string    `yaml:"name"`
	Platform *Platform `yaml:"platform,omitempty"`
	Request  Request   `yaml:"request"`
	Explain  []Action  `yaml:"explain,omitempty"`
	Forward  []Action  `yaml:"forward,omitempty"`
	Device   Device    `yaml:"device"`
	Expect   *Expect   `yaml:"expect,omitempty"`
}

// Platform overrides the configured API levels.
type Platform struct {
	SDK       int `yaml:"sdk"`
	TargetSDK int `yaml:"targetSdk"`
}

// Request is the declaration handed to permissionx.
type Request struct {
	Permissions          []string `yaml:"permissions"`
	Special              []string `yaml:"special,omitempty"`
	ExplainBeforeRequest bool     `yaml:"explainBeforeRequest,omitempty"`
}

// ActionKind names a caller reaction inside a callback.
type ActionKind string

const (
	// ActionNone returns from the callback without deciding. The request
	// waits, as for an app that never answers.
	ActionNone ActionKind = "none"
	// ActionDialog shows the default dialog for the callback.
	ActionDialog ActionKind = "dialog"
	// ActionSettingsDialog shows a rationale dialog whose positive button
	// opens settings. Explain only.
	ActionSettingsDialog ActionKind = "settingsDialog"
	// ActionRetry requests again without a dialog. Explain only.
	ActionRetry ActionKind = "retry"
	// ActionSettings opens settings without a dialog. Forward only.
	ActionSettings ActionKind = "settings"
	// ActionFinish ends the task.
	ActionFinish ActionKind = "finish"
)

// Action is the reaction to one callback invocation. Invocations consume
// actions in order; once the list is exhausted the callback does nothing.
type Action struct {
	Action ActionKind `yaml:"action"`
	// Permissions narrows the action to a subset. Empty means the denied
	// list passed to the callback.
	Permissions []string `yaml:"permissions,omitempty"`
	Message     string   `yaml:"message,omitempty"`
	Positive    string   `yaml:"positive,omitempty"`
	Negative    string   `yaml:"negative,omitempty"`
	// OnCancel makes a dialog cancelable and names the reaction to a cancel.
	OnCancel *Action `yaml:"onCancel,omitempty"`
}

// Answer is the simulated user's reply to an OS prompt.
type Answer string

const (
	AnswerGrant       Answer = "grant"
	AnswerDeny        Answer = "deny"
	AnswerDenyForever Answer = "denyForever"
)

// Tap is the simulated user's reply to a dialog.
type Tap string

const (
	TapPositive Tap = "positive"
	TapNegative Tap = "negative"
	TapCancel   Tap = "cancel"
)

// Device scripts the simulated user and OS state.
type Device struct {
	// Granted lists the permissions granted before the request starts.
	Granted []string `yaml:"granted,omitempty"`
	// Prompts queues answers per permission. A permission with no answer
	// left is denied.
	Prompts map[string][]Answer `yaml:"prompts,omitempty"`
	// Settings lists the permissions the user enables on a settings screen.
	Settings []string `yaml:"settings,omitempty"`
	// Dialogs queues taps for dialogs in the order they are shown.
	Dialogs []Tap `yaml:"dialogs,omitempty"`
	// DetachOnDialog detaches the host container when the given dialog
	// (1-based) is shown. Zero never detaches.
	DetachOnDialog int `yaml:"detachOnDialog,omitempty"`
}

// Expect is the expected outcome.
type Expect struct {
	AllGranted bool     `yaml:"allGranted"`
	Granted    []string `yaml:"granted"`
	Denied     []string `yaml:"denied"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario. Unknown keys are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks the scenario and returns every problem found.
func (s *Scenario) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if len(s.Request.Permissions) == 0 && len(s.Request.Special) == 0 {
		add("request: declares no permissions")
	}
	for i, id := range s.Request.Permissions {
		if strings.TrimSpace(id) == "" {
			add("request.permissions[%d]: empty identifier", i)
		}
	}
	if _, err := s.Specials(); err != nil {
		add("request.special: %w", err)
	}
	if p := s.Platform; p != nil && (p.SDK < 0 || p.TargetSDK < 0) {
		add("platform: levels cannot be negative")
	}

	for i, a := range s.Explain {
		validateAction(add, fmt.Sprintf("explain[%d]", i), a, true)
	}
	for i, a := range s.Forward {
		validateAction(add, fmt.Sprintf("forward[%d]", i), a, false)
	}

	for id, answers := range s.Device.Prompts {
		for i, a := range answers {
			switch a {
			case AnswerGrant, AnswerDeny, AnswerDenyForever:
			default:
				add("device.prompts[%s][%d]: unknown answer %q", id, i, a)
			}
		}
	}
	for i, tap := range s.Device.Dialogs {
		switch tap {
		case TapPositive, TapNegative, TapCancel:
		default:
			add("device.dialogs[%d]: unknown tap %q", i, tap)
		}
	}
	if s.Device.DetachOnDialog < 0 {
		add("device.detachOnDialog: cannot be negative")
	}

	if s.Expect != nil && s.Expect.AllGranted && len(s.Expect.Denied) > 0 {
		add("expect: allGranted with a non-empty denied list")
	}

	return errors.Join(errs...)
}

func validateAction(add func(string, ...any), path string, a Action, explain bool) {
	switch a.Action {
	case ActionNone, ActionFinish, ActionDialog:
	case ActionSettingsDialog, ActionRetry:
		if !explain {
			add("%s: %q is only valid in explain", path, a.Action)
		}
	case ActionSettings:
		if explain {
			add("%s: %q is only valid in forward", path, a.Action)
		}
	default:
		add("%s: unknown action %q", path, a.Action)
	}
	if a.OnCancel != nil {
		if !explain || (a.Action != ActionDialog && a.Action != ActionSettingsDialog) {
			add("%s: onCancel is only valid on explain dialogs", path)
		}
		validateAction(add, path+".onCancel", *a.OnCancel, explain)
	}
}

// Specials parses the declared special kinds.
func (s *Scenario) Specials() ([]permissionx.Special, error) {
	kinds := make([]permissionx.Special, 0, len(s.Request.Special))
	for _, name := range s.Request.Special {
		kind, err := permissionx.ParseSpecial(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, kind)
	}
	return kinds, nil
}

// DisplayName returns the scenario name, or fallback when it has none.
func (s *Scenario) DisplayName(fallback string) string {
	if s.Name != "" {
		return s.Name
	}
	return fallback
}
