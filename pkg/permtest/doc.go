// Package permtest provides a scripted device for testing permission request
// flows without a platform bridge.
//
// # Quick Start
//
//	func TestCameraFlow(t *testing.T) {
//	    host := permtest.NewHost().
//	        Respond("android.permission.CAMERA", permtest.Deny, permtest.Grant).
//	        AnswerDialogs(permtest.Positive)
//
//	    var result permissionx.Result
//	    req := permissionx.NewRequest(host.Collaborators()).
//	        Declare([]string{"android.permission.CAMERA"}).
//	        Configure(permissionx.Config{
//	            OnExplainRequestReason: func(s *permissionx.ExplainScope, denied []string, _ bool) {
//	                s.ShowRequestReasonDialog(denied, "needed", "OK", "", nil)
//	            },
//	        })
//	    req.Run(func(all bool, granted, denied []string) {
//	        result = permissionx.Result{AllGranted: all, Granted: granted, Denied: denied}
//	    })
//	}
//
// Set Host.Async to queue every broker answer and dialog action, then drive
// the request with Pump or PumpAll to observe it while suspended.
package permtest
