package platform

import (
	"errors"
	"testing"
)

func TestCBORCodecRoundTrip(t *testing.T) {
	codec := CBORCodec{}
	data, err := codec.Encode(map[string]any{
		"requestId":   "r1",
		"permissions": []string{camera, audio},
		"sdkInt":      33,
		"cancelable":  true,
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := codec.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	m, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("expected map[string]any, got %T", decoded)
	}
	if m["requestId"] != "r1" || m["cancelable"] != true {
		t.Errorf("unexpected payload %v", m)
	}
	if got, ok := toInt(m["sdkInt"]); !ok || got != 33 {
		t.Errorf("expected sdkInt 33, got %v (%T)", m["sdkInt"], m["sdkInt"])
	}
	perms := parseStrings(m["permissions"])
	if len(perms) != 2 || perms[0] != camera || perms[1] != audio {
		t.Errorf("unexpected permissions %v", perms)
	}
}

func TestCBORCodecDeterministic(t *testing.T) {
	payload := map[string]any{"b": 1, "a": 2, "c": map[string]any{"z": true, "y": false}}
	first, err := CBORCodec{}.Encode(payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for range 10 {
		again, _ := CBORCodec{}.Encode(payload)
		if string(again) != string(first) {
			t.Fatal("expected identical encodings")
		}
	}
}

func TestCodecDecodeEmpty(t *testing.T) {
	for _, tt := range codecs {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.codec.Decode(nil)
			if err != nil || got != nil {
				t.Errorf("expected nil, got %v, %v", got, err)
			}
		})
	}
}

func TestSetCodec(t *testing.T) {
	t.Cleanup(ResetForTest)

	SetCodec(CBORCodec{})
	if _, ok := currentCodec().(CBORCodec); !ok {
		t.Errorf("expected CBORCodec, got %T", currentCodec())
	}
	SetCodec(nil)
	if _, ok := currentCodec().(JsonCodec); !ok {
		t.Errorf("expected JsonCodec, got %T", currentCodec())
	}
}

func TestChannelError(t *testing.T) {
	tests := []struct {
		err  *ChannelError
		want string
	}{
		{NewChannelError("denied", "user refused"), "denied: user refused"},
		{NewChannelError("busy", ""), "busy"},
		{NewChannelErrorWithDetails("io", "write failed", map[string]any{"path": "/x"}), "io: write failed"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}

	var wrapped error = NewChannelError("busy", "")
	var target *ChannelError
	if !errors.As(wrapped, &target) || target.Code != "busy" {
		t.Errorf("expected ChannelError busy, got %v", wrapped)
	}
}
