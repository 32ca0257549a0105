package scenario

import (
	"slices"

	"github.com/go-drift/permissionx/pkg/permissionx"
)

// Default dialog texts for actions that leave them empty.
const (
	DefaultMessage  = "This app needs the following permissions to continue."
	DefaultPositive = "OK"
)

// Reactions replays the scripted explain and forward actions of a scenario.
// Its methods are the permissionx callbacks.
type Reactions struct {
	explain []Action
	forward []Action

	// Explained counts explain callback invocations.
	Explained int
	// Forwarded counts forward callback invocations.
	Forwarded int
}

// Reactions returns a fresh replay of s's callback script.
func (s *Scenario) Reactions() *Reactions {
	return &Reactions{
		explain: slices.Clone(s.Explain),
		forward: slices.Clone(s.Forward),
	}
}

// Configure installs the callbacks that have a script. A scenario without
// explain actions runs with no explain callback at all, and likewise for
// forward.
func (r *Reactions) Configure(cfg *permissionx.Config) {
	if len(r.explain) > 0 {
		cfg.OnExplainRequestReason = r.Explain
	}
	if len(r.forward) > 0 {
		cfg.OnForwardToSettings = r.Forward
	}
}

// Explain is a permissionx.ExplainReasonFunc. Once the script runs out the
// task is finished.
func (r *Reactions) Explain(s *permissionx.ExplainScope, denied []string, _ bool) {
	r.Explained++
	a, ok := next(&r.explain)
	if !ok {
		s.Finish()
		return
	}
	r.applyExplain(s, a, denied)
}

// Forward is a permissionx.ForwardToSettingsFunc. Once the script runs out
// the task is finished.
func (r *Reactions) Forward(s *permissionx.ForwardScope, denied []string) {
	r.Forwarded++
	a, ok := next(&r.forward)
	if !ok {
		s.Finish()
		return
	}
	perms := a.targets(denied)
	switch a.Action {
	case ActionDialog:
		s.ShowForwardToSettingsDialog(perms, a.message(), a.positive(), a.Negative)
	case ActionSettings:
		s.ForwardToSettings(perms)
	case ActionFinish:
		s.Finish()
	}
}

func (r *Reactions) applyExplain(s *permissionx.ExplainScope, a Action, denied []string) {
	perms := a.targets(denied)
	switch a.Action {
	case ActionDialog:
		s.ShowRequestReasonDialog(perms, a.message(), a.positive(), a.Negative, r.onCancel(s, a, denied))
	case ActionSettingsDialog:
		s.ShowRequestSettingDialog(perms, a.message(), a.positive(), a.Negative, r.onCancel(s, a, denied))
	case ActionRetry:
		s.Retry(perms)
	case ActionFinish:
		s.Finish()
	}
}

func (r *Reactions) onCancel(s *permissionx.ExplainScope, a Action, denied []string) func() {
	if a.OnCancel == nil {
		return nil
	}
	then := *a.OnCancel
	return func() { r.applyExplain(s, then, denied) }
}

func next(queue *[]Action) (Action, bool) {
	if len(*queue) == 0 {
		return Action{}, false
	}
	a := (*queue)[0]
	*queue = (*queue)[1:]
	return a, true
}

func (a Action) targets(denied []string) []string {
	if len(a.Permissions) > 0 {
		return slices.Clone(a.Permissions)
	}
	return denied
}

func (a Action) message() string {
	if a.Message == "" {
		return DefaultMessage
	}
	return a.Message
}

func (a Action) positive() string {
	if a.Positive == "" {
		return DefaultPositive
	}
	return a.Positive
}
