package platform

import (
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/go-drift/permissionx/pkg/errors"
	"github.com/go-drift/permissionx/pkg/permissionx"
)

const (
	permissionsChannelName = "permissionx/permissions"
	resultsChannelName     = "permissionx/permissions/results"
)

// Permissions is the device's permission host.
var Permissions = newPermissionHost()

// PermissionHost implements permissionx.Probe and permissionx.Broker over
// platform channels.
//
// Probes are synchronous method calls. Prompts and settings navigation are
// started with a method call carrying a fresh request id; the native side
// answers later on the results event channel. Pending continuations are kept
// here, keyed by request id, so a result still reaches its request after the
// native container was recreated. Continuations run through Dispatch.
type PermissionHost struct {
	channel *MethodChannel
	results *Stream[brokerEvent]

	mu          sync.Mutex
	pending     map[string]*pendingRequest
	packageName string
}

type pendingRequest struct {
	ids       []string
	onResults func(map[string]permissionx.GrantResult)
	onReturn  func()
}

// brokerEvent is one message on the results channel.
type brokerEvent struct {
	RequestID string
	Results   map[string]permissionx.GrantResult
	Returned  bool
}

func newPermissionHost() *PermissionHost {
	h := &PermissionHost{
		channel: NewMethodChannel(permissionsChannelName),
		pending: make(map[string]*pendingRequest),
	}
	h.results = NewStream(NewEventChannel(resultsChannelName), parseBrokerEvent)
	return h
}

func init() {
	registerBuiltinInit(func() {
		Permissions.results.Listen(Permissions.deliver)
	})
}

// SetPackageName sets the application id sent with settings navigation, so
// the native side can open the app's own details screen.
func (h *PermissionHost) SetPackageName(name string) {
	h.mu.Lock()
	h.packageName = name
	h.mu.Unlock()
}

// Host returns the collaborators for a request on this device. Version
// gates come from PlatformInfo; when it fails they are left unknown.
func (h *PermissionHost) Host() permissionx.Host {
	info, _ := h.PlatformInfo()
	return permissionx.Host{
		Probe:    h,
		Broker:   h,
		Dialogs:  Dialogs,
		Platform: info,
	}
}

// NewPermissionRequest creates a request wired to the device's permission
// host and native dialogs.
func NewPermissionRequest() *permissionx.PermissionRequest {
	return permissionx.NewRequest(Permissions.Host())
}

// PlatformInfo queries the OS API level and the app's target API level.
func (h *PermissionHost) PlatformInfo() (permissionx.Platform, error) {
	result, err := h.channel.Invoke("platformInfo", nil)
	if err != nil {
		h.report("permissions.platformInfo", "", err)
		return permissionx.Platform{}, err
	}
	m := parseMap(result)
	if m == nil {
		err := &errors.ParseError{Channel: permissionsChannelName, DataType: "platformInfo", Got: result}
		h.reportParse("permissions.platformInfo", err)
		return permissionx.Platform{}, err
	}
	sdk, _ := toInt(m["sdkInt"])
	target, _ := toInt(m["targetSdkInt"])
	return permissionx.Platform{SDKVersion: sdk, TargetSDKVersion: target}, nil
}

// IsGranted implements permissionx.Probe.
func (h *PermissionHost) IsGranted(permission string) bool {
	return h.query("check", map[string]any{"permission": permission}, permission)
}

// CanDrawOverlays implements permissionx.Probe.
func (h *PermissionHost) CanDrawOverlays() bool {
	return h.query("canDrawOverlays", nil, permissionx.PermissionSystemAlertWindow)
}

// CanWriteSystemSettings implements permissionx.Probe.
func (h *PermissionHost) CanWriteSystemSettings() bool {
	return h.query("canWriteSettings", nil, permissionx.PermissionWriteSettings)
}

// IsExternalStorageManager implements permissionx.Probe.
func (h *PermissionHost) IsExternalStorageManager() bool {
	return h.query("isExternalStorageManager", nil, permissionx.PermissionManageExternalStorage)
}

// query invokes a probe method. Any failure reads as not granted.
func (h *PermissionHost) query(method string, args any, permission string) bool {
	result, err := h.channel.Invoke(method, args)
	if err != nil {
		h.report("permissions."+method, permission, err)
		return false
	}
	m := parseMap(result)
	if m == nil {
		h.reportParse("permissions."+method, &errors.ParseError{
			Channel:  permissionsChannelName,
			DataType: "probeResult",
			Got:      result,
		})
		return false
	}
	return parseBool(m["granted"])
}

// RequestPermissions implements permissionx.Broker. If the prompt cannot be
// shown, every id is reported denied with MayAskAgain set.
func (h *PermissionHost) RequestPermissions(ids []string, done func(map[string]permissionx.GrantResult)) {
	id := uuid.NewString()
	h.track(id, &pendingRequest{ids: slices.Clone(ids), onResults: done})

	_, err := h.channel.Invoke("request", map[string]any{
		"requestId":   id,
		"permissions": ids,
	})
	if err != nil {
		h.report("permissions.request", "", err)
		if p := h.take(id); p != nil {
			results := make(map[string]permissionx.GrantResult, len(p.ids))
			for _, permission := range p.ids {
				results[permission] = permissionx.GrantResult{MayAskAgain: true}
			}
			deliver(func() { p.onResults(results) })
		}
	}
}

// OpenSettings implements permissionx.Broker. If the screen cannot be opened,
// done runs right away.
func (h *PermissionHost) OpenSettings(target permissionx.SettingsTarget, done func()) {
	id := uuid.NewString()
	h.track(id, &pendingRequest{onReturn: done})

	h.mu.Lock()
	pkg := h.packageName
	h.mu.Unlock()

	_, err := h.channel.Invoke("openSettings", map[string]any{
		"requestId": id,
		"target":    target.String(),
		"package":   pkg,
	})
	if err != nil {
		h.report("permissions.openSettings", "", err)
		if p := h.take(id); p != nil {
			deliver(p.onReturn)
		}
	}
}

// Pending returns the ids of the requests waiting for a native answer.
func (h *PermissionHost) Pending() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Sorted(maps.Keys(h.pending))
}

func (h *PermissionHost) track(id string, p *pendingRequest) {
	h.mu.Lock()
	h.pending[id] = p
	h.mu.Unlock()
}

func (h *PermissionHost) take(id string) *pendingRequest {
	h.mu.Lock()
	defer h.mu.Unlock()
	p := h.pending[id]
	delete(h.pending, id)
	return p
}

// deliver resumes the request an event answers.
func (h *PermissionHost) deliver(ev brokerEvent) {
	p := h.take(ev.RequestID)
	if p == nil {
		h.report("permissions.deliver", "", ErrUnknownRequest)
		return
	}
	switch {
	case p.onResults != nil:
		results := ev.Results
		if results == nil {
			results = map[string]permissionx.GrantResult{}
		}
		deliver(func() { p.onResults(results) })
	case p.onReturn != nil:
		deliver(p.onReturn)
	}
}

func (h *PermissionHost) report(op, permission string, err error) {
	errors.Report(&errors.PermissionError{
		Op:         op,
		Kind:       errors.KindPlatform,
		Permission: permission,
		Channel:    permissionsChannelName,
		Err:        err,
	})
}

func (h *PermissionHost) reportParse(op string, err *errors.ParseError) {
	errors.Report(&errors.PermissionError{
		Op:      op,
		Kind:    errors.KindParsing,
		Channel: err.Channel,
		Err:     err,
	})
}

func parseBrokerEvent(data any) (brokerEvent, error) {
	m := parseMap(data)
	id := parseString(m["requestId"])
	if id == "" {
		return brokerEvent{}, &errors.ParseError{Channel: resultsChannelName, DataType: "brokerEvent", Got: data}
	}
	ev := brokerEvent{RequestID: id, Returned: parseBool(m["returned"])}
	if raw, ok := m["results"]; ok {
		results := parseMap(raw)
		if results == nil {
			return brokerEvent{}, &errors.ParseError{Channel: resultsChannelName, DataType: "grantResults", Got: raw}
		}
		ev.Results = make(map[string]permissionx.GrantResult, len(results))
		for permission, v := range results {
			r := parseMap(v)
			ev.Results[permission] = permissionx.GrantResult{
				Granted:     parseBool(r["granted"]),
				MayAskAgain: parseBool(r["mayAskAgain"]),
			}
		}
	}
	return ev, nil
}
