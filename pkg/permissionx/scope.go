package permissionx

import "slices"

// ExplainScope is handed to OnExplainRequestReason. It exposes the actions a
// caller may take while explaining why permissions are needed, and stays
// valid until the task it belongs to finishes.
type ExplainScope struct {
	req  *PermissionRequest
	task chainTask
}

// ShowRequestReasonDialog shows a default rationale dialog. The positive
// button requests perms again; the negative button, shown only when
// negativeText is not empty, finishes the task.
//
// onCancel runs when the user cancels the dialog without choosing, and is
// commonly used to escalate to ShowRequestSettingDialog. When onCancel is nil
// the dialog cannot be canceled.
func (s *ExplainScope) ShowRequestReasonDialog(perms []string, message, positiveText, negativeText string, onCancel func()) {
	if !s.task.base().live("permissionx.ShowRequestReasonDialog") {
		return
	}
	s.req.showDefaultDialog(s.task, false, perms, message, positiveText, negativeText, onCancel)
}

// ShowRequestSettingDialog is like ShowRequestReasonDialog, but its positive
// button opens the app settings screen instead of prompting again.
func (s *ExplainScope) ShowRequestSettingDialog(perms []string, message, positiveText, negativeText string, onCancel func()) {
	if !s.task.base().live("permissionx.ShowRequestSettingDialog") {
		return
	}
	s.req.showDefaultDialog(s.task, true, perms, message, positiveText, negativeText, onCancel)
}

// ShowDialog shows a custom rationale dialog with the same button semantics
// as ShowRequestReasonDialog.
func (s *ExplainScope) ShowDialog(d Dialog) {
	if !s.task.base().live("permissionx.ShowDialog") {
		return
	}
	s.req.showDialog(s.task, false, d, nil)
}

// Retry requests perms again without showing a dialog.
func (s *ExplainScope) Retry(perms []string) {
	if !s.task.base().live("permissionx.Retry") {
		return
	}
	s.task.retryWith(slices.Clone(perms))
}

// Finish stops requesting and moves on to the next permission category.
func (s *ExplainScope) Finish() {
	s.task.finish()
}

// ForwardScope is handed to OnForwardToSettings, for permissions that can
// now only be granted from the settings screen.
type ForwardScope struct {
	req  *PermissionRequest
	task chainTask
}

// ShowForwardToSettingsDialog shows a default dialog whose positive button
// opens the app settings screen. The task finishes after the user returns.
// The negative button, shown only when negativeText is not empty, finishes
// the task right away.
func (s *ForwardScope) ShowForwardToSettingsDialog(perms []string, message, positiveText, negativeText string) {
	if !s.task.base().live("permissionx.ShowForwardToSettingsDialog") {
		return
	}
	s.req.showDefaultDialog(s.task, true, perms, message, positiveText, negativeText, nil)
}

// ShowDialog shows a custom dialog with the same button semantics as
// ShowForwardToSettingsDialog.
func (s *ForwardScope) ShowDialog(d Dialog) {
	if !s.task.base().live("permissionx.ShowDialog") {
		return
	}
	s.req.showDialog(s.task, true, d, nil)
}

// ForwardToSettings opens the app settings screen without a dialog.
func (s *ForwardScope) ForwardToSettings(perms []string) {
	if !s.task.base().live("permissionx.ForwardToSettings") {
		return
	}
	s.req.forwardToSettings(s.task, perms)
}

// Finish ends the task without visiting settings.
func (s *ForwardScope) Finish() {
	s.task.finish()
}
