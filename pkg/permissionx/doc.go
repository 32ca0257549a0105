// Package permissionx requests a batch of runtime permissions and reports one
// aggregated result.
//
// Permissions come in two flavors. Normal permissions are granted through the
// OS prompt and can be asked again. Special permissions ([Special]) can only
// be granted from a dedicated settings screen. A [PermissionRequest] runs one
// task per category, in a fixed order: normal permissions, then background
// location, overlay, write-settings and all-files access. Each task probes,
// optionally explains, requests, and optionally forwards to settings before
// handing over to the next.
//
// # Usage
//
//	req := permissionx.NewRequest(host).
//	    Declare([]string{"android.permission.CAMERA"}, permissionx.ManageExternalStorage).
//	    Configure(permissionx.Config{
//	        OnExplainRequestReason: func(s *permissionx.ExplainScope, denied []string, before bool) {
//	            s.ShowRequestReasonDialog(denied, "Needed to scan documents", "Allow", "Cancel", nil)
//	        },
//	        OnForwardToSettings: func(s *permissionx.ForwardScope, denied []string) {
//	            s.ShowForwardToSettingsDialog(denied, "Enable in Settings", "Open", "Not now")
//	        },
//	    })
//	err := req.Run(func(allGranted bool, granted, denied []string) {
//	    // exactly once
//	})
//
// The callbacks receive scopes that expose only the actions legal at that
// point. A callback may decide right away or keep its scope and decide on a
// later turn, for example after its own UI answers. Until one of the scope's
// actions runs, the request stays suspended.
//
// # Threading
//
// A request is single-threaded. Collaborators ([Probe], [Broker], [Dialog])
// suspend the request by deferring their callbacks and resume it by invoking
// them on the same thread. See package platform for an implementation over
// platform channels and package permtest for a scripted one.
package permissionx
