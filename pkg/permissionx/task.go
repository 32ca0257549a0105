package permissionx

import (
	"github.com/go-drift/permissionx/pkg/errors"
)

// chainTask is one permission category in a request chain.
type chainTask interface {
	name() string

	// activate begins the probe/request cycle.
	activate()

	// finish ends the task and advances the chain. It takes effect once.
	finish()

	// retryWith re-issues the task's request restricted to perms.
	retryWith(perms []string)

	// settingsReturned resumes the task after the app settings screen
	// was shown for perms.
	settingsReturned(perms []string)

	base() *baseTask
}

// baseTask holds the state shared by every task variant.
type baseTask struct {
	req     *PermissionRequest
	chain   *requestChain
	self    chainTask
	explain *ExplainScope
	forward *ForwardScope

	done bool
}

func (b *baseTask) init(self chainTask, req *PermissionRequest, chain *requestChain) {
	b.self = self
	b.req = req
	b.chain = chain
	b.explain = &ExplainScope{req: req, task: self}
	b.forward = &ForwardScope{req: req, task: self}
}

func (b *baseTask) base() *baseTask { return b }

// live reports whether the task still accepts operations, reporting misuse
// otherwise.
func (b *baseTask) live(op string) bool {
	if b.done {
		errors.Report(&errors.PermissionError{
			Op:   op,
			Kind: errors.KindMisuse,
			Err:  errTaskFinished,
		})
		return false
	}
	return true
}

// complete marks the task finished and hands control to the chain.
func (b *baseTask) complete() {
	b.done = true
	b.req.logger.Debug("permissionx: task finished", "task", b.self.name())
	b.chain.advance()
}

// invoke runs a caller callback on the task's behalf. The callback decides
// what happens next through the task's scopes, now or on a later turn; until
// then the task stays suspended. A panicking callback finishes the task.
func (b *baseTask) invoke(op string, fn func()) {
	panicked := false
	func() {
		defer errors.RecoverWithCallback(op, func(any) { panicked = true })
		fn()
	}()
	if panicked && !b.done {
		b.req.DismissDialog()
		b.self.finish()
	}
}
