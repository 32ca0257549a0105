package permissionx

import (
	"context"
	"log/slog"
	"slices"
	"sync/atomic"

	"github.com/go-drift/permissionx/pkg/errors"
)

// ExplainReasonFunc is called when the request should explain why permissions
// are needed. beforeRequest is true when no OS prompt has been shown yet for
// the permissions in denied.
type ExplainReasonFunc func(scope *ExplainScope, denied []string, beforeRequest bool)

// ForwardToSettingsFunc is called with permissions the user denied
// permanently, which can now only be granted from the settings screen.
type ForwardToSettingsFunc func(scope *ForwardScope, denied []string)

// ResultFunc receives the final outcome of a request. allGranted is true
// exactly when denied is empty.
type ResultFunc func(allGranted bool, granted, denied []string)

// Result is the final outcome of a request.
type Result struct {
	AllGranted bool
	Granted    []string
	Denied     []string
}

// Config holds the optional behavior of a request.
type Config struct {
	// ExplainReasonBeforeRequest calls OnExplainRequestReason before the
	// first OS prompt for normal permissions.
	ExplainReasonBeforeRequest bool

	OnExplainRequestReason ExplainReasonFunc
	OnForwardToSettings    ForwardToSettingsFunc

	// DialogTint is passed to the dialog factory for default dialogs.
	DialogTint TintColors

	// Logger receives chain tracing at debug level. Nil discards it.
	Logger *slog.Logger
}

type classification int

const (
	classGranted classification = iota
	classDenied
	classPermanentlyDenied
	classWontRequest
)

// PermissionRequest requests a batch of normal and special permissions and
// delivers one aggregated result.
//
// A request is driven from a single logical thread: Run, the collaborator
// callbacks and dialog handlers must all execute on it. Tasks run strictly
// one after another, so no state is shared between concurrent actors.
type PermissionRequest struct {
	host   Host
	cfg    Config
	logger *slog.Logger

	normal  *permissionSet
	special []Special

	granted               *permissionSet
	denied                *permissionSet
	permanentlyDenied     *permissionSet
	wontRequest           *permissionSet
	tempPermanentlyDenied *permissionSet

	onResult ResultFunc
	chain    *requestChain
	inFlight atomic.Bool
	current  *activeDialog
}

// NewRequest creates a request that runs against host.
func NewRequest(host Host) *PermissionRequest {
	r := &PermissionRequest{
		host:                  host,
		logger:                slog.New(slog.DiscardHandler),
		normal:                newPermissionSet(),
		granted:               newPermissionSet(),
		denied:                newPermissionSet(),
		permanentlyDenied:     newPermissionSet(),
		wontRequest:           newPermissionSet(),
		tempPermanentlyDenied: newPermissionSet(),
	}
	return r
}

// Declare sets the permissions to request, replacing any earlier declaration.
// Normal identifiers that name a special permission are treated as that
// special kind. Empty identifiers and unknown kinds are ignored.
func (r *PermissionRequest) Declare(normal []string, special ...Special) *PermissionRequest {
	r.normal = newPermissionSet()
	r.special = r.special[:0]
	for _, id := range normal {
		if id == "" {
			continue
		}
		if kind, ok := specialFor(id); ok {
			r.addSpecial(kind)
			continue
		}
		r.normal.add(id)
	}
	for _, kind := range special {
		if !kind.Valid() {
			errors.Report(&errors.PermissionError{
				Op:   "permissionx.Declare",
				Kind: errors.KindConfig,
				Err:  errUnknownKind,
			})
			continue
		}
		r.addSpecial(kind)
	}
	return r
}

func (r *PermissionRequest) addSpecial(kind Special) {
	if !slices.Contains(r.special, kind) {
		r.special = append(r.special, kind)
	}
}

// Configure replaces the request's optional behavior.
func (r *PermissionRequest) Configure(cfg Config) *PermissionRequest {
	r.cfg = cfg
	if cfg.Logger != nil {
		r.logger = cfg.Logger
	} else {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r
}

// Run starts the request. onResult is invoked exactly once, after every
// declared permission has been classified. Run returns before the result
// when a collaborator defers its answer.
func (r *PermissionRequest) Run(onResult ResultFunc) error {
	if onResult == nil {
		return ErrNoResultCallback
	}
	if r.host.Probe == nil || r.host.Broker == nil {
		return ErrNoHost
	}
	if !r.inFlight.CompareAndSwap(false, true) {
		return ErrRequestInFlight
	}

	r.onResult = onResult
	r.granted.clear()
	r.denied.clear()
	r.permanentlyDenied.clear()
	r.wontRequest.clear()
	r.tempPermanentlyDenied.clear()

	// Fixed priority: normal permissions first, then each special kind.
	r.chain = &requestChain{req: r}
	if r.normal.len() > 0 {
		r.chain.append(newNormalTask(r, r.chain))
	}
	for _, kind := range specialOrder {
		if slices.Contains(r.special, kind) {
			r.chain.append(newSpecialTask(r, r.chain, kind))
		}
	}

	r.logger.Debug("permissionx: request started",
		"normal", r.normal.len(),
		"special", len(r.special),
		"tasks", len(r.chain.tasks))
	r.chain.start()
	return nil
}

// Await runs the request and blocks until its result is delivered or ctx is
// done. When ctx ends first the request keeps running; its result is dropped.
//
// Await must not be called on the thread that delivers collaborator
// callbacks, or the request can never resume.
func (r *PermissionRequest) Await(ctx context.Context) (Result, error) {
	resultChan := make(chan Result, 1)
	err := r.Run(func(allGranted bool, granted, denied []string) {
		resultChan <- Result{AllGranted: allGranted, Granted: granted, Denied: denied}
	})
	if err != nil {
		return Result{}, err
	}
	select {
	case res := <-resultChan:
		return res, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return Result{}, ErrTimeout
		}
		return Result{}, ErrCanceled
	}
}

// InFlight reports whether the request has started and not yet delivered its
// result.
func (r *PermissionRequest) InFlight() bool {
	return r.inFlight.Load()
}

// DismissDialog dismisses the dialog currently shown, if any, without running
// any of its actions. Hosts call this when the context that shows dialogs is
// destroyed. The request stays suspended.
func (r *PermissionRequest) DismissDialog() {
	a := r.current
	if a == nil {
		return
	}
	r.current = nil
	if a.settle() {
		a.dialog.Dismiss()
	}
}

// classify moves id into the set for c, removing it from all others.
func (r *PermissionRequest) classify(id string, c classification) {
	sets := [...]*permissionSet{r.granted, r.denied, r.permanentlyDenied, r.wontRequest}
	for i, s := range sets {
		if classification(i) != c {
			s.remove(id)
		}
	}
	sets[c].add(id)
	if c == classPermanentlyDenied {
		r.tempPermanentlyDenied.add(id)
	} else {
		r.tempPermanentlyDenied.remove(id)
	}
}

func (r *PermissionRequest) classified(id string) bool {
	return r.granted.has(id) || r.denied.has(id) || r.permanentlyDenied.has(id) || r.wontRequest.has(id)
}

// finalize runs after the last task finishes and delivers the result.
func (r *PermissionRequest) finalize() {
	onResult := r.onResult
	if onResult == nil {
		errors.Report(&errors.PermissionError{
			Op:   "permissionx.finalize",
			Kind: errors.KindMisuse,
			Err:  errTaskFinished,
		})
		return
	}
	r.onResult = nil

	// Special kinds are probed once more here, even if their task already
	// classified them: the user may have changed them in settings since.
	for _, kind := range r.special {
		if probeSpecial(r, kind) {
			r.classify(kind.Permission(), classGranted)
		} else {
			r.classify(kind.Permission(), classDenied)
		}
	}

	denied := make([]string, 0, r.denied.len()+r.permanentlyDenied.len()+r.wontRequest.len())
	denied = append(denied, r.denied.list()...)
	denied = append(denied, r.permanentlyDenied.list()...)
	denied = append(denied, r.wontRequest.list()...)
	granted := r.granted.list()
	allGranted := len(denied) == 0

	r.logger.Debug("permissionx: request finished",
		"allGranted", allGranted,
		"granted", granted,
		"denied", denied)

	r.chain = nil
	r.inFlight.Store(false)

	defer errors.Recover("permissionx.onResult")
	onResult(allGranted, granted, denied)
}

// showDialog shows d on behalf of task. The positive action retries the
// dialog's permissions, or forwards them to settings when forSettings is
// set. The negative action finishes the task.
func (r *PermissionRequest) showDialog(task chainTask, forSettings bool, d Dialog, onCancel func()) {
	perms := d.PermissionsToRequest()
	if len(perms) == 0 {
		task.finish()
		return
	}
	positive := d.PositiveControl()
	if positive == nil {
		errors.Report(&errors.PermissionError{
			Op:   "permissionx.showDialog",
			Kind: errors.KindMisuse,
			Err:  errNoPositive,
		})
		task.finish()
		return
	}

	r.DismissDialog()
	a := &activeDialog{dialog: d}
	r.current = a
	release := func() bool {
		if !a.settle() {
			return false
		}
		if r.current == a {
			r.current = nil
		}
		return true
	}

	positive.OnClick(func() {
		if !release() {
			return
		}
		d.Dismiss()
		if forSettings {
			r.forwardToSettings(task, perms)
		} else {
			task.retryWith(perms)
		}
	})
	if negative := d.NegativeControl(); negative != nil {
		negative.OnClick(func() {
			if !release() {
				return
			}
			d.Dismiss()
			task.finish()
		})
	}
	if c, ok := d.(Cancelable); ok && onCancel != nil {
		c.OnCancel(func() {
			if !release() {
				return
			}
			task.base().invoke("permissionx.onCancel", onCancel)
		})
	}

	r.logger.Debug("permissionx: showing dialog",
		"task", task.name(),
		"permissions", perms,
		"forSettings", forSettings)
	d.Show()
}

// showDefaultDialog builds a dialog through the host's factory and shows it.
func (r *PermissionRequest) showDefaultDialog(task chainTask, forSettings bool, perms []string, message, positiveText, negativeText string, onCancel func()) {
	if r.host.Dialogs == nil {
			errors.Report(&errors.PermissionError{
			Op:   "permissionx.showDialog",
			Kind: errors.KindConfig,
			Err:  errNoDialogs,
		})
		task.finish()
		return
	}
	d := r.host.Dialogs.NewDialog(DialogSpec{
		Permissions:  slices.Clone(perms),
		Message:      message,
		PositiveText: positiveText,
		NegativeText: negativeText,
		Tint:         r.cfg.DialogTint,
		Cancelable:   onCancel != nil,
	})
	r.showDialog(task, forSettings, d, onCancel)
}

// forwardToSettings opens the app settings screen and resumes task on return.
func (r *PermissionRequest) forwardToSettings(task chainTask, perms []string) {
	perms = slices.Clone(perms)
	r.logger.Debug("permissionx: forwarding to settings", "task", task.name(), "permissions", perms)
	r.host.Broker.OpenSettings(SettingsApp, func() {
		task.settingsReturned(perms)
	})
}
