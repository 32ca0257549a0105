package platform

import (
	"errors"
	"maps"
	"slices"
	"testing"

	"github.com/google/uuid"

	perrors "github.com/go-drift/permissionx/pkg/errors"
	"github.com/go-drift/permissionx/pkg/permissionx"
	"github.com/go-drift/permissionx/pkg/permtest"
)

var codecs = []struct {
	name  string
	codec MessageCodec
}{
	{"json", JsonCodec{}},
	{"cbor", CBORCodec{}},
}

func TestPermissionHostProbe(t *testing.T) {
	f := installFake(t)
	f.granted[camera] = true
	f.granted[permissionx.PermissionManageExternalStorage] = true

	tests := []struct {
		name  string
		probe func() bool
		want  bool
	}{
		{"granted permission", func() bool { return Permissions.IsGranted(camera) }, true},
		{"denied permission", func() bool { return Permissions.IsGranted(audio) }, false},
		{"overlay", Permissions.CanDrawOverlays, false},
		{"write settings", Permissions.CanWriteSystemSettings, false},
		{"storage manager", Permissions.IsExternalStorageManager, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.probe(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	call := f.calls[0]
	if call.channel != permissionsChannelName || call.method != "check" || call.args["permission"] != camera {
		t.Errorf("unexpected probe call %+v", call)
	}
}

func TestPermissionHostProbeFailure(t *testing.T) {
	f := installFake(t)
	errs := permtest.CaptureErrors(t)
	f.granted[camera] = true
	f.fail["check"] = errors.New("bridge down")

	if Permissions.IsGranted(camera) {
		t.Error("expected failed probe to read as not granted")
	}
	if !slices.Equal(errs.Kinds(), []perrors.ErrorKind{perrors.KindPlatform}) {
		t.Fatalf("expected one platform report, got %v", errs.Errors)
	}
	if errs.Errors[0].Permission != camera {
		t.Errorf("expected report for %s, got %q", camera, errs.Errors[0].Permission)
	}
}

func TestPermissionHostProbeWithoutBridge(t *testing.T) {
	t.Cleanup(ResetForTest)
	errs := permtest.CaptureErrors(t)

	if Permissions.CanDrawOverlays() {
		t.Error("expected false without a bridge")
	}
	if len(errs.Errors) != 1 || !errors.Is(errs.Errors[0], ErrPlatformUnavailable) {
		t.Errorf("expected ErrPlatformUnavailable report, got %v", errs.Errors)
	}
}

func TestPlatformInfo(t *testing.T) {
	for _, tt := range codecs {
		t.Run(tt.name, func(t *testing.T) {
			installFake(t)
			SetCodec(tt.codec)

			info, err := Permissions.PlatformInfo()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := permissionx.Platform{SDKVersion: 30, TargetSDKVersion: 33}
			if info != want {
				t.Errorf("expected %+v, got %+v", want, info)
			}
		})
	}
}

func TestPermissionHostRequestRoundTrip(t *testing.T) {
	for _, tt := range codecs {
		t.Run(tt.name, func(t *testing.T) {
			f := installFake(t)
			SetCodec(tt.codec)

			var got map[string]permissionx.GrantResult
			Permissions.RequestPermissions([]string{camera, audio}, func(r map[string]permissionx.GrantResult) {
				got = r
			})

			call := f.last(t, "request")
			id := parseString(call.args["requestId"])
			if _, err := uuid.Parse(id); err != nil {
				t.Errorf("expected uuid request id, got %q", id)
			}
			if ids := parseStrings(call.args["permissions"]); !slices.Equal(ids, []string{camera, audio}) {
				t.Errorf("expected permissions %v, got %v", []string{camera, audio}, ids)
			}
			if got != nil {
				t.Fatal("result delivered before the native answer")
			}
			if !slices.Equal(Permissions.Pending(), []string{id}) {
				t.Errorf("expected %s pending, got %v", id, Permissions.Pending())
			}

			emit(t, resultsChannelName, map[string]any{
				"requestId": id,
				"results": map[string]any{
					camera: map[string]any{"granted": true},
					audio:  map[string]any{"granted": false, "mayAskAgain": true},
				},
			})

			want := map[string]permissionx.GrantResult{
				camera: {Granted: true},
				audio:  {MayAskAgain: true},
			}
			if !maps.Equal(got, want) {
				t.Errorf("expected %v, got %v", want, got)
			}
			if len(Permissions.Pending()) != 0 {
				t.Errorf("expected nothing pending, got %v", Permissions.Pending())
			}
		})
	}
}

func TestPermissionHostRequestFailure(t *testing.T) {
	f := installFake(t)
	errs := permtest.CaptureErrors(t)
	f.fail["request"] = NewChannelError("busy", "another prompt is showing")

	var got map[string]permissionx.GrantResult
	Permissions.RequestPermissions([]string{camera}, func(r map[string]permissionx.GrantResult) { got = r })

	want := map[string]permissionx.GrantResult{camera: {MayAskAgain: true}}
	if !maps.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if len(Permissions.Pending()) != 0 {
		t.Errorf("expected nothing pending, got %v", Permissions.Pending())
	}
	var chErr *ChannelError
	if len(errs.Errors) != 1 || !errors.As(errs.Errors[0], &chErr) || chErr.Code != "busy" {
		t.Errorf("expected channel error report, got %v", errs.Errors)
	}
}

func TestPermissionHostOpenSettings(t *testing.T) {
	f := installFake(t)
	Permissions.SetPackageName("com.example.scanner")

	returned := false
	Permissions.OpenSettings(permissionx.SettingsOverlay, func() { returned = true })

	call := f.last(t, "openSettings")
	if call.args["target"] != "overlay" || call.args["package"] != "com.example.scanner" {
		t.Errorf("unexpected openSettings args %v", call.args)
	}
	if returned {
		t.Fatal("returned before the native side answered")
	}

	emit(t, resultsChannelName, map[string]any{"requestId": call.args["requestId"], "returned": true})
	if !returned {
		t.Error("expected settings return to be delivered")
	}
}

func TestPermissionHostOpenSettingsFailure(t *testing.T) {
	f := installFake(t)
	permtest.CaptureErrors(t)
	f.fail["openSettings"] = errors.New("no activity")

	returned := false
	Permissions.OpenSettings(permissionx.SettingsApp, func() { returned = true })
	if !returned {
		t.Error("expected immediate return when settings cannot open")
	}
}

func TestPermissionHostEventErrors(t *testing.T) {
	tests := []struct {
		name    string
		payload any
		kind    perrors.ErrorKind
	}{
		{"unknown request", map[string]any{"requestId": "stale", "returned": true}, perrors.KindPlatform},
		{"missing request id", map[string]any{"returned": true}, perrors.KindParsing},
		{"malformed results", map[string]any{"requestId": "x", "results": 5}, perrors.KindParsing},
		{"not a map", "granted", perrors.KindParsing},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			installFake(t)
			errs := permtest.CaptureErrors(t)

			emit(t, resultsChannelName, tt.payload)
			if !slices.Equal(errs.Kinds(), []perrors.ErrorKind{tt.kind}) {
				t.Errorf("expected one %v report, got %v", tt.kind, errs.Errors)
			}
		})
	}
}

func TestPermissionHostDeliversThroughDispatch(t *testing.T) {
	f := installFake(t)
	var queue []func()
	RegisterDispatch(func(cb func()) { queue = append(queue, cb) })

	returned := false
	Permissions.OpenSettings(permissionx.SettingsApp, func() { returned = true })
	emit(t, resultsChannelName, map[string]any{"requestId": f.last(t, "openSettings").args["requestId"], "returned": true})

	if returned || len(queue) != 1 {
		t.Fatalf("expected delivery to be queued, returned=%v queued=%d", returned, len(queue))
	}
	queue[0]()
	if !returned {
		t.Error("expected queued delivery to resume the caller")
	}
}

func TestSetupTestBridge(t *testing.T) {
	SetupTestBridge(t.Cleanup)
	errs := permtest.CaptureErrors(t)

	if Permissions.IsGranted(camera) {
		t.Error("expected camera not granted")
	}
	info, err := Permissions.PlatformInfo()
	if err != nil || info != (permissionx.Platform{}) {
		t.Errorf("expected unknown platform, got %+v (%v)", info, err)
	}

	req := NewPermissionRequest().Declare([]string{camera})
	if err := req.Run(func(bool, []string, []string) {}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !req.InFlight() || len(Permissions.Pending()) != 1 {
		t.Errorf("expected the request to wait for the native answer, pending %v", Permissions.Pending())
	}
	if len(errs.Errors) != 0 {
		t.Errorf("unexpected reports: %v", errs.Errors)
	}
}
