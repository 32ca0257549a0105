package permissionx

import "image/color"

// Control is a clickable element of a Dialog.
type Control interface {
	// OnClick installs the handler run when the control is activated.
	OnClick(handler func())
}

// Dialog is a rationale or settings-forward dialog. Rendering is entirely up
// to the implementation; the request only wires button semantics.
//
// Once Dismiss has been called, the dialog must not invoke any of its
// handlers.
type Dialog interface {
	// PermissionsToRequest lists the permissions the positive action acts on.
	// An empty list makes the task finish without showing the dialog.
	PermissionsToRequest() []string
	PositiveControl() Control
	// NegativeControl may return nil when the dialog has no negative action.
	NegativeControl() Control
	Show()
	Dismiss()
}

// Cancelable is implemented by dialogs that can be dismissed without picking
// an action (back press, tap outside).
type Cancelable interface {
	OnCancel(handler func())
}

// TintColors are the accent colors applied to the default dialog.
// A nil color keeps the renderer's default.
type TintColors struct {
	Light color.Color
	Dark  color.Color
}

// DialogSpec describes a default dialog.
type DialogSpec struct {
	Permissions  []string
	Message      string
	PositiveText string
	// NegativeText is empty when the dialog has no negative button.
	NegativeText string
	Tint         TintColors
	// Cancelable reports whether a cancel handler is installed.
	Cancelable bool
}

// DialogFactory creates the default dialogs used by the scope helpers.
type DialogFactory interface {
	NewDialog(spec DialogSpec) Dialog
}

// activeDialog tracks the dialog currently shown by a request. Exactly one
// of its actions may take effect.
type activeDialog struct {
	dialog  Dialog
	settled bool
}

func (a *activeDialog) settle() bool {
	if a.settled {
		return false
	}
	a.settled = true
	return true
}
