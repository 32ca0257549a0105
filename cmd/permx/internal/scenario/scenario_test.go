package scenario

import (
	"slices"
	"strings"
	"testing"

	"github.com/go-drift/permissionx/pkg/permissionx"
	"github.com/go-drift/permissionx/pkg/permtest"
)

const camera = "android.permission.CAMERA"

func TestParse(t *testing.T) {
	s, err := Parse([]byte(`
name: camera with rationale
platform:
  sdk: 30
  targetSdk: 33
request:
  permissions: [android.permission.CAMERA]
  special: [manage_external_storage, android.permission.SYSTEM_ALERT_WINDOW]
explain:
  - action: dialog
    message: Needed to scan
    negative: Deny
    onCancel:
      action: settingsDialog
device:
  prompts:
    android.permission.CAMERA: [deny, grant]
  dialogs: [positive]
expect:
  allGranted: true
  granted: [android.permission.CAMERA]
  denied: []
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if s.DisplayName("file.yaml") != "camera with rationale" {
		t.Errorf("unexpected name %q", s.Name)
	}
	if s.Platform == nil || s.Platform.SDK != 30 || s.Platform.TargetSDK != 33 {
		t.Errorf("unexpected platform %+v", s.Platform)
	}
	kinds, err := s.Specials()
	if err != nil {
		t.Fatalf("Specials: %v", err)
	}
	want := []permissionx.Special{permissionx.ManageExternalStorage, permissionx.SystemAlertWindow}
	if !slices.Equal(kinds, want) {
		t.Errorf("expected %v, got %v", want, kinds)
	}
	if got := s.Device.Prompts[camera]; !slices.Equal(got, []Answer{AnswerDeny, AnswerGrant}) {
		t.Errorf("unexpected prompts %v", got)
	}
	if s.Explain[0].OnCancel == nil || s.Explain[0].OnCancel.Action != ActionSettingsDialog {
		t.Errorf("expected onCancel settingsDialog, got %+v", s.Explain[0].OnCancel)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"unknown key", "request:\n  permissions: [a]\nbogus: 1\n", "bogus"},
		{"empty request", "name: x\n", "declares no permissions"},
		{"unknown special", "request:\n  special: [bluetooth]\n", "bluetooth"},
		{"blank id", "request:\n  permissions: [\" \"]\n", "empty identifier"},
		{"unknown action", "request:\n  permissions: [a]\nexplain:\n  - action: shrug\n", "unknown action"},
		{"retry in forward", "request:\n  permissions: [a]\nforward:\n  - action: retry\n", "only valid in explain"},
		{"settings in explain", "request:\n  permissions: [a]\nexplain:\n  - action: settings\n", "only valid in forward"},
		{"cancel on retry", "request:\n  permissions: [a]\nexplain:\n  - action: retry\n    onCancel:\n      action: finish\n", "onCancel"},
		{"unknown answer", "request:\n  permissions: [a]\ndevice:\n  prompts:\n    a: [maybe]\n", "unknown answer"},
		{"unknown tap", "request:\n  permissions: [a]\ndevice:\n  dialogs: [swipe]\n", "unknown tap"},
		{"contradictory expect", "request:\n  permissions: [a]\nexpect:\n  allGranted: true\n  denied: [a]\n", "allGranted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	s := &Scenario{
		Explain: []Action{{Action: "shrug"}},
		Device:  Device{Dialogs: []Tap{"swipe"}},
	}
	err := s.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"declares no permissions", "unknown action", "unknown tap"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}

func TestReactions(t *testing.T) {
	s := &Scenario{
		Request: Request{Permissions: []string{camera}},
		Explain: []Action{{Action: ActionDialog, Negative: "Deny"}},
		Forward: []Action{{Action: ActionFinish}},
	}

	host := permtest.NewHost().
		Respond(camera, permtest.Deny, permtest.DenyForever).
		AnswerDialogs(permtest.Positive)
	reactions := s.Reactions()
	var cfg permissionx.Config
	reactions.Configure(&cfg)

	var denied []string
	err := permissionx.NewRequest(host.Collaborators()).
		Declare([]string{camera}).
		Configure(cfg).
		Run(func(_ bool, _, d []string) { denied = d })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if reactions.Explained != 1 || reactions.Forwarded != 1 {
		t.Errorf("expected one explain and one forward, got %d and %d", reactions.Explained, reactions.Forwarded)
	}
	if len(host.Dialogs) != 1 {
		t.Fatalf("expected one dialog, got %d", len(host.Dialogs))
	}
	spec := host.Dialogs[0].Spec
	if spec.Message != DefaultMessage || spec.PositiveText != DefaultPositive || spec.NegativeText != "Deny" {
		t.Errorf("unexpected dialog %+v", spec)
	}
	if !slices.Equal(denied, []string{camera}) {
		t.Errorf("expected camera denied, got %v", denied)
	}
}

func TestReactionsWithoutScript(t *testing.T) {
	var cfg permissionx.Config
	(&Scenario{}).Reactions().Configure(&cfg)
	if cfg.OnExplainRequestReason != nil || cfg.OnForwardToSettings != nil {
		t.Error("expected no callbacks")
	}
}

func TestReactionsExhaustedAndNone(t *testing.T) {
	tests := []struct {
		name         string
		explain      []Action
		wantDone     bool
		wantExplains int
	}{
		{"exhausted script finishes", []Action{{Action: ActionRetry}}, true, 2},
		{"none keeps the request waiting", []Action{{Action: ActionNone}}, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Scenario{Request: Request{Permissions: []string{camera}}, Explain: tt.explain}
			host := permtest.NewHost()
			reactions := s.Reactions()
			var cfg permissionx.Config
			reactions.Configure(&cfg)

			done := false
			req := permissionx.NewRequest(host.Collaborators()).Declare([]string{camera}).Configure(cfg)
			if err := req.Run(func(bool, []string, []string) { done = true }); err != nil {
				t.Fatalf("Run: %v", err)
			}
			if done != tt.wantDone {
				t.Errorf("expected done=%v, got %v", tt.wantDone, done)
			}
			if req.InFlight() == tt.wantDone {
				t.Errorf("expected in flight=%v, got %v", !tt.wantDone, req.InFlight())
			}
			if reactions.Explained != tt.wantExplains {
				t.Errorf("expected %d explains, got %d", tt.wantExplains, reactions.Explained)
			}
		})
	}
}
