package permissionx

import (
	"slices"

	"github.com/go-drift/permissionx/pkg/errors"
)

// normalTask requests every declared prompt-based permission that is not
// granted yet.
type normalTask struct {
	baseTask
	// pending holds the ids not granted at activation.
	pending []string
	// requesting holds the ids of the OS request in flight.
	requesting []string
}

func newNormalTask(req *PermissionRequest, chain *requestChain) *normalTask {
	t := &normalTask{}
	t.init(t, req, chain)
	return t
}

func (t *normalTask) name() string { return "normal" }

func (t *normalTask) activate() {
	r := t.req
	t.pending = t.pending[:0]
	for _, id := range r.normal.list() {
		if r.host.Probe.IsGranted(id) {
			r.classify(id, classGranted)
		} else {
			t.pending = append(t.pending, id)
		}
	}
	if len(t.pending) == 0 {
		t.finish()
		return
	}

	explain := r.cfg.OnExplainRequestReason
	if r.cfg.ExplainReasonBeforeRequest && explain != nil {
		pending := slices.Clone(t.pending)
		t.invoke("permissionx.onExplainRequestReason", func() {
			explain(t.explain, pending, true)
		})
		return
	}
	t.request(t.pending)
}

func (t *normalTask) request(ids []string) {
	t.requesting = slices.Clone(ids)
	t.req.logger.Debug("permissionx: requesting permissions", "permissions", t.requesting)
	t.req.host.Broker.RequestPermissions(slices.Clone(ids), t.onRequestResult)
}

func (t *normalTask) onRequestResult(results map[string]GrantResult) {
	if !t.live("permissionx.requestResult") {
		return
	}
	r := t.req
	var deniedNow []string
	for _, id := range t.requesting {
		res, ok := results[id]
		if !ok {
			res = GrantResult{Granted: r.host.Probe.IsGranted(id), MayAskAgain: true}
		}
		switch {
		case res.Granted:
			r.classify(id, classGranted)
		case res.MayAskAgain:
			r.classify(id, classDenied)
			deniedNow = append(deniedNow, id)
		default:
			r.classify(id, classPermanentlyDenied)
		}
	}
	t.requesting = nil

	// Explaining takes precedence over forwarding within one round; ids
	// denied permanently stay buffered until no plain denial is left.
	if explain := r.cfg.OnExplainRequestReason; len(deniedNow) > 0 && explain != nil {
		t.invoke("permissionx.onExplainRequestReason", func() {
			explain(t.explain, deniedNow, false)
		})
		return
	}
	if forward := r.cfg.OnForwardToSettings; r.tempPermanentlyDenied.len() > 0 && forward != nil {
		forwardList := r.tempPermanentlyDenied.list()
		r.tempPermanentlyDenied.clear()
		t.invoke("permissionx.onForwardToSettings", func() {
			forward(t.forward, forwardList)
		})
		return
	}
	t.finish()
}

func (t *normalTask) retryWith(perms []string) {
	if !t.live("permissionx.retryWith") {
		return
	}
	var ids []string
	for _, id := range perms {
		if !t.req.normal.has(id) {
			errors.Report(&errors.PermissionError{
				Op:         "permissionx.retryWith",
				Kind:       errors.KindMisuse,
				Permission: id,
				Err:        errNotDeclared,
			})
			continue
		}
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		t.finish()
		return
	}
	t.request(ids)
}

func (t *normalTask) settingsReturned(perms []string) {
	if !t.live("permissionx.settingsReturned") {
		return
	}
	r := t.req
	for _, id := range perms {
		if !r.normal.has(id) {
			continue
		}
		if r.host.Probe.IsGranted(id) {
			r.classify(id, classGranted)
		} else if !r.classified(id) {
			r.classify(id, classDenied)
		}
	}
	t.finish()
}

func (t *normalTask) finish() {
	if !t.live("permissionx.finish") {
		return
	}
	// Anything never sent to the OS is reported as not requested.
	for _, id := range t.pending {
		if !t.req.classified(id) {
			t.req.classify(id, classWontRequest)
		}
	}
	t.complete()
}
