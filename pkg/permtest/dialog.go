package permtest

import (
	"slices"

	"github.com/go-drift/permissionx/pkg/permissionx"
)

// Action is a scripted user answer to a dialog.
type Action string

const (
	// Positive taps the positive button.
	Positive Action = "positive"
	// Negative taps the negative button.
	Negative Action = "negative"
	// Cancel dismisses the dialog without choosing (back press).
	Cancel Action = "cancel"
)

// Button is a permissionx.Control that can be tapped from tests.
type Button struct {
	Text    string
	handler func()
}

// OnClick implements permissionx.Control.
func (b *Button) OnClick(handler func()) { b.handler = handler }

// Tap runs the installed handler, if any.
func (b *Button) Tap() {
	if b.handler != nil {
		b.handler()
	}
}

// Dialog is a recording permissionx.Dialog.
type Dialog struct {
	Spec      permissionx.DialogSpec
	Shown     bool
	Dismissed bool

	host     *Host
	positive *Button
	negative *Button
	onCancel func()
}

// NewDialog implements permissionx.DialogFactory.
func (h *Host) NewDialog(spec permissionx.DialogSpec) permissionx.Dialog {
	d := h.newDialog(spec)
	h.Dialogs = append(h.Dialogs, d)
	return d
}

// CustomDialog returns a dialog for perms that is not created through the
// factory, as a caller-supplied dialog would be. It still answers scripted
// actions.
func (h *Host) CustomDialog(withNegative bool, perms ...string) *Dialog {
	spec := permissionx.DialogSpec{Permissions: perms, PositiveText: "OK"}
	if withNegative {
		spec.NegativeText = "Cancel"
	}
	return h.newDialog(spec)
}

func (h *Host) newDialog(spec permissionx.DialogSpec) *Dialog {
	d := &Dialog{
		Spec:     spec,
		host:     h,
		positive: &Button{Text: spec.PositiveText},
	}
	if spec.NegativeText != "" {
		d.negative = &Button{Text: spec.NegativeText}
	}
	return d
}

// AnswerDialogs scripts the actions taken on successive dialogs as soon as
// they are shown. Dialogs shown after the script runs out stay open.
func (h *Host) AnswerDialogs(actions ...Action) *Host {
	h.answers = append(h.answers, actions...)
	return h
}

// Visible returns the most recently shown dialog that is still open, or nil.
func (h *Host) Visible() *Dialog {
	for _, d := range slices.Backward(h.Dialogs) {
		if d.Open() {
			return d
		}
	}
	return nil
}

// PermissionsToRequest implements permissionx.Dialog.
func (d *Dialog) PermissionsToRequest() []string { return slices.Clone(d.Spec.Permissions) }

// PositiveControl implements permissionx.Dialog.
func (d *Dialog) PositiveControl() permissionx.Control { return d.positive }

// NegativeControl implements permissionx.Dialog.
func (d *Dialog) NegativeControl() permissionx.Control {
	if d.negative == nil {
		return nil
	}
	return d.negative
}

// OnCancel implements permissionx.Cancelable.
func (d *Dialog) OnCancel(handler func()) { d.onCancel = handler }

// Show implements permissionx.Dialog. A scripted answer, if any, is applied
// through the host's dispatch.
func (d *Dialog) Show() {
	d.Shown = true
	if !slices.Contains(d.host.Dialogs, d) {
		d.host.Dialogs = append(d.host.Dialogs, d)
	}
	if len(d.host.answers) == 0 {
		return
	}
	action := d.host.answers[0]
	d.host.answers = d.host.answers[1:]
	d.host.post(func() { d.Do(action) })
}

// Dismiss implements permissionx.Dialog.
func (d *Dialog) Dismiss() { d.Dismissed = true }

// Open reports whether the dialog is shown and not dismissed.
func (d *Dialog) Open() bool { return d.Shown && !d.Dismissed }

// Do applies action. Actions on a dismissed dialog are ignored, as a real
// dialog could not receive them.
func (d *Dialog) Do(action Action) {
	if !d.Open() {
		return
	}
	switch action {
	case Positive:
		d.positive.Tap()
	case Negative:
		if d.negative != nil {
			d.negative.Tap()
		}
	case Cancel:
		if d.onCancel != nil {
			d.Dismissed = true
			d.onCancel()
		}
	}
}
