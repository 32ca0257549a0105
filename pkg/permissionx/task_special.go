package permissionx

import "slices"

// specialVariant describes how one special kind is gated, probed and granted.
type specialVariant struct {
	// minSDK is the API level from which the capability model applies.
	// Below it the permission is implicitly granted. Zero means always.
	minSDK int
	// since is the OS API level that introduced the kind. Below it the kind
	// cannot be granted at all.
	since int
	probe func(Probe) bool
	// ready reports whether the kind can be requested at all right now.
	ready func(Probe) bool
}

var specialVariants = map[Special]specialVariant{
	BackgroundLocation: {
		probe: func(p Probe) bool { return p.IsGranted(PermissionBackgroundLocation) },
		// Background access builds on a granted foreground permission.
		ready: func(p Probe) bool {
			return p.IsGranted(PermissionAccessFineLocation) || p.IsGranted(PermissionAccessCoarseLocation)
		},
	},
	SystemAlertWindow: {
		minSDK: SDKMarshmallow,
		probe:  Probe.CanDrawOverlays,
	},
	WriteSettings: {
		minSDK: SDKMarshmallow,
		probe:  Probe.CanWriteSystemSettings,
	},
	ManageExternalStorage: {
		since: SDKR,
		probe: Probe.IsExternalStorageManager,
	},
}

// probeSpecial reports whether kind is granted on r's host.
func probeSpecial(r *PermissionRequest, kind Special) bool {
	v, ok := specialVariants[kind]
	if !ok {
		return false
	}
	if v.since > 0 && !r.host.Platform.OSAtLeast(v.since) {
		return false
	}
	if v.minSDK > 0 && !r.host.Platform.AtLeast(v.minSDK) {
		return true
	}
	return v.probe(r.host.Probe)
}

// specialTask guards a single special permission. It can only be granted from
// the kind's settings screen.
type specialTask struct {
	baseTask
	kind    Special
	variant specialVariant
}

func newSpecialTask(req *PermissionRequest, chain *requestChain, kind Special) *specialTask {
	t := &specialTask{kind: kind, variant: specialVariants[kind]}
	t.init(t, req, chain)
	return t
}

func (t *specialTask) name() string { return t.kind.String() }

func (t *specialTask) activate() {
	r := t.req
	id := t.kind.Permission()
	if t.variant.ready != nil && !t.variant.ready(r.host.Probe) {
		r.logger.Debug("permissionx: special permission not requestable", "permission", id)
		t.finish()
		return
	}
	if t.variant.since > 0 && !r.host.Platform.OSAtLeast(t.variant.since) {
		r.logger.Debug("permissionx: special permission not available on this OS", "permission", id)
		r.classify(id, classDenied)
		t.finish()
		return
	}
	if probeSpecial(r, t.kind) {
		r.classify(id, classGranted)
		t.finish()
		return
	}

	explain := r.cfg.OnExplainRequestReason
	if explain == nil {
		r.classify(id, classDenied)
		t.finish()
		return
	}
	t.invoke("permissionx.onExplainRequestReason", func() {
		explain(t.explain, []string{id}, true)
	})
}

// retryWith navigates to the kind's settings screen. No OS prompt exists for
// special permissions.
func (t *specialTask) retryWith(perms []string) {
	if !t.live("permissionx.retryWith") {
		return
	}
	if !slices.Contains(perms, t.kind.Permission()) {
		t.req.classify(t.kind.Permission(), classDenied)
		t.finish()
		return
	}
	target := t.kind.SettingsTarget()
	t.req.logger.Debug("permissionx: opening settings", "permission", t.kind.Permission(), "target", target.String())
	t.req.host.Broker.OpenSettings(target, t.returned)
}

func (t *specialTask) settingsReturned([]string) {
	t.returned()
}

func (t *specialTask) returned() {
	if !t.live("permissionx.settingsReturned") {
		return
	}
	if probeSpecial(t.req, t.kind) {
		t.req.classify(t.kind.Permission(), classGranted)
	} else {
		t.req.classify(t.kind.Permission(), classDenied)
	}
	t.finish()
}

func (t *specialTask) finish() {
	if !t.live("permissionx.finish") {
		return
	}
	t.complete()
}
