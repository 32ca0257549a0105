package platform

import (
	"errors"
	"image/color"
	"slices"
	"testing"

	perrors "github.com/go-drift/permissionx/pkg/errors"
	"github.com/go-drift/permissionx/pkg/permissionx"
	"github.com/go-drift/permissionx/pkg/permtest"
)

type flowResult struct {
	calls int
	permissionx.Result
}

// startCameraFlow runs a camera request until its rationale dialog is shown
// and returns the dialog id.
func startCameraFlow(t *testing.T, f *fakeNative, cfg permissionx.Config) (*permissionx.PermissionRequest, *flowResult, string) {
	t.Helper()
	res := &flowResult{}
	req := NewPermissionRequest().Declare([]string{camera}).Configure(cfg)
	err := req.Run(func(allGranted bool, granted, denied []string) {
		res.calls++
		res.Result = permissionx.Result{AllGranted: allGranted, Granted: granted, Denied: denied}
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	emit(t, resultsChannelName, map[string]any{
		"requestId": f.last(t, "request").args["requestId"],
		"results":   map[string]any{camera: map[string]any{"granted": false, "mayAskAgain": true}},
	})
	if f.count("show") == 0 {
		return req, res, ""
	}
	return req, res, parseString(f.last(t, "show").args["id"])
}

func reasonDialog(onCancel func(*permissionx.ExplainScope)) permissionx.Config {
	return permissionx.Config{
		OnExplainRequestReason: func(s *permissionx.ExplainScope, denied []string, _ bool) {
			var cancel func()
			if onCancel != nil {
				cancel = func() { onCancel(s) }
			}
			s.ShowRequestReasonDialog(denied, "Camera is needed to scan", "Allow", "Deny", cancel)
		},
	}
}

func TestNativeRequestFlow(t *testing.T) {
	f := installFake(t)
	errs := permtest.CaptureErrors(t)

	cfg := reasonDialog(nil)
	cfg.DialogTint = permissionx.TintColors{Light: color.RGBA{R: 0x1e, G: 0x88, B: 0xe5, A: 0xff}}
	req, res, dialogID := startCameraFlow(t, f, cfg)

	show := f.last(t, "show")
	if show.channel != dialogChannelName {
		t.Errorf("expected dialog channel, got %s", show.channel)
	}
	if show.args["message"] != "Camera is needed to scan" || show.args["negativeText"] != "Deny" {
		t.Errorf("unexpected show args %v", show.args)
	}
	if show.args["lightTint"] != "#1e88e5ff" || show.args["darkTint"] != nil {
		t.Errorf("unexpected tints %v %v", show.args["lightTint"], show.args["darkTint"])
	}
	if show.args["cancelable"] != false {
		t.Errorf("expected non-cancelable dialog, got %v", show.args["cancelable"])
	}
	if !slices.Equal(Dialogs.Open(), []string{dialogID}) {
		t.Errorf("expected %s open, got %v", dialogID, Dialogs.Open())
	}

	emit(t, dialogEventsChannelName, map[string]any{"id": dialogID, "action": "positive"})
	if got := parseString(f.last(t, "dismiss").args["id"]); got != dialogID {
		t.Errorf("expected dialog %s dismissed, got %s", dialogID, got)
	}
	if f.count("request") != 2 {
		t.Fatalf("expected a retry prompt, got %d prompts", f.count("request"))
	}

	f.granted[camera] = true
	emit(t, resultsChannelName, map[string]any{
		"requestId": f.last(t, "request").args["requestId"],
		"results":   map[string]any{camera: map[string]any{"granted": true}},
	})

	if res.calls != 1 || !res.AllGranted || !slices.Equal(res.Granted, []string{camera}) {
		t.Errorf("unexpected result %+v", res)
	}
	if req.InFlight() {
		t.Error("expected request to be idle")
	}
	if len(errs.Errors) != 0 {
		t.Errorf("unexpected reports: %v", errs.Errors)
	}
}

func TestNativeDialogNegative(t *testing.T) {
	f := installFake(t)
	_, res, dialogID := startCameraFlow(t, f, reasonDialog(nil))

	emit(t, dialogEventsChannelName, map[string]any{"id": dialogID, "action": "negative"})
	if res.calls != 1 || res.AllGranted || !slices.Equal(res.Denied, []string{camera}) {
		t.Errorf("unexpected result %+v", res)
	}
	if f.count("request") != 1 {
		t.Errorf("expected no retry, got %d prompts", f.count("request"))
	}
}

func TestNativeDialogCancel(t *testing.T) {
	t.Run("not cancelable", func(t *testing.T) {
		f := installFake(t)
		_, res, dialogID := startCameraFlow(t, f, reasonDialog(nil))

		emit(t, dialogEventsChannelName, map[string]any{"id": dialogID, "action": "cancel"})
		if res.calls != 0 {
			t.Error("expected request to keep waiting")
		}
		if !slices.Equal(Dialogs.Open(), []string{dialogID}) {
			t.Errorf("expected dialog to stay open, got %v", Dialogs.Open())
		}
	})

	t.Run("cancel handler", func(t *testing.T) {
		f := installFake(t)
		_, res, dialogID := startCameraFlow(t, f, reasonDialog(func(s *permissionx.ExplainScope) {
			s.Finish()
		}))

		if f.last(t, "show").args["cancelable"] != true {
			t.Error("expected cancelable dialog")
		}
		emit(t, dialogEventsChannelName, map[string]any{"id": dialogID, "action": "cancel"})
		if res.calls != 1 || res.AllGranted {
			t.Errorf("unexpected result %+v", res)
		}
	})
}

func TestNativeDialogShowFailure(t *testing.T) {
	f := installFake(t)
	errs := permtest.CaptureErrors(t)
	f.fail["show"] = errors.New("no window")

	_, res, _ := startCameraFlow(t, f, reasonDialog(nil))

	if res.calls != 1 || !slices.Equal(res.Denied, []string{camera}) {
		t.Errorf("expected the task to finish denied, got %+v", res)
	}
	if len(Dialogs.Open()) != 0 {
		t.Errorf("expected no open dialogs, got %v", Dialogs.Open())
	}
	if !slices.Equal(errs.Kinds(), []perrors.ErrorKind{perrors.KindPlatform}) {
		t.Errorf("expected one platform report, got %v", errs.Errors)
	}
}

func TestDismissOnDetach(t *testing.T) {
	f := installFake(t)
	req, res, dialogID := startCameraFlow(t, f, reasonDialog(nil))

	stop := DismissOnDetach(req)
	defer stop()

	emit(t, lifecycleEventsChannel, map[string]any{"state": "detached"})
	if f.count("dismiss") != 1 || parseString(f.last(t, "dismiss").args["id"]) != dialogID {
		t.Fatalf("expected dialog %s dismissed once", dialogID)
	}
	if len(Dialogs.Open()) != 0 {
		t.Errorf("expected no open dialogs, got %v", Dialogs.Open())
	}
	if !req.InFlight() || res.calls != 0 {
		t.Error("expected request to stay suspended")
	}

	// The native side may still report a tap on the torn down dialog.
	emit(t, dialogEventsChannelName, map[string]any{"id": dialogID, "action": "positive"})
	if f.count("request") != 1 {
		t.Errorf("expected stale action to be ignored, got %d prompts", f.count("request"))
	}
}

func TestDialogEventErrors(t *testing.T) {
	installFake(t)
	errs := permtest.CaptureErrors(t)

	emit(t, dialogEventsChannelName, map[string]any{"id": "x", "action": "maybe"})
	emit(t, dialogEventsChannelName, map[string]any{"action": "positive"})

	want := []perrors.ErrorKind{perrors.KindParsing, perrors.KindParsing}
	if !slices.Equal(errs.Kinds(), want) {
		t.Errorf("expected %v, got %v", want, errs.Kinds())
	}
}

func TestTintHex(t *testing.T) {
	tests := []struct {
		name string
		in   color.Color
		want any
	}{
		{"nil", nil, nil},
		{"opaque", color.RGBA{R: 0xff, G: 0x57, B: 0x22, A: 0xff}, "#ff5722ff"},
		{"translucent", color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x80}, "#10203080"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tintHex(tt.in); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
