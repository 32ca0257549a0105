package platform

import (
	"testing"

	"github.com/go-drift/permissionx/pkg/permissionx"
)

const (
	camera = "android.permission.CAMERA"
	audio  = "android.permission.RECORD_AUDIO"
)

type nativeCall struct {
	channel string
	method  string
	args    map[string]any
}

// fakeNative answers probe calls from a grant table and records every call.
// Events are emitted by the test through emit.
type fakeNative struct {
	granted map[string]bool
	fail    map[string]error
	info    map[string]any
	calls   []nativeCall
	started []string
	stopped []string
}

func newFakeNative() *fakeNative {
	return &fakeNative{
		granted: make(map[string]bool),
		fail:    make(map[string]error),
		info:    map[string]any{"sdkInt": 30, "targetSdkInt": 33},
	}
}

func (f *fakeNative) InvokeMethod(channel, method string, args []byte) ([]byte, error) {
	codec := currentCodec()
	decoded, err := codec.Decode(args)
	if err != nil {
		return nil, err
	}
	m := parseMap(decoded)
	f.calls = append(f.calls, nativeCall{channel: channel, method: method, args: m})
	if err := f.fail[method]; err != nil {
		return nil, err
	}

	var resp any
	switch method {
	case "check":
		resp = map[string]any{"granted": f.granted[parseString(m["permission"])]}
	case "canDrawOverlays":
		resp = map[string]any{"granted": f.granted[permissionx.PermissionSystemAlertWindow]}
	case "canWriteSettings":
		resp = map[string]any{"granted": f.granted[permissionx.PermissionWriteSettings]}
	case "isExternalStorageManager":
		resp = map[string]any{"granted": f.granted[permissionx.PermissionManageExternalStorage]}
	case "platformInfo":
		resp = f.info
	}
	return codec.Encode(resp)
}

func (f *fakeNative) StartEventStream(channel string) error {
	f.started = append(f.started, channel)
	return nil
}

func (f *fakeNative) StopEventStream(channel string) error {
	f.stopped = append(f.stopped, channel)
	return nil
}

func (f *fakeNative) count(method string) int {
	n := 0
	for _, c := range f.calls {
		if c.method == method {
			n++
		}
	}
	return n
}

func (f *fakeNative) last(t *testing.T, method string) nativeCall {
	t.Helper()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].method == method {
			return f.calls[i]
		}
	}
	t.Fatalf("no %q call recorded", method)
	return nativeCall{}
}

// installFake sets up a fakeNative with synchronous dispatch.
func installFake(t *testing.T) *fakeNative {
	t.Helper()
	f := newFakeNative()
	SetNativeBridge(f)
	RegisterDispatch(func(cb func()) { cb() })
	t.Cleanup(ResetForTest)
	return f
}

// emit delivers payload on channel as the native side would.
func emit(t *testing.T, channel string, payload any) {
	t.Helper()
	data, err := currentCodec().Encode(payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := HandleEvent(channel, data); err != nil {
		t.Fatalf("HandleEvent(%s): %v", channel, err)
	}
}
