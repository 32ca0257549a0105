package permissionx

// requestChain runs its tasks strictly one at a time. There is no driving
// loop: a task's finish advances the chain, which activates the next task or
// finalizes the request after the last one.
type requestChain struct {
	req   *PermissionRequest
	tasks []chainTask
	index int
}

func (c *requestChain) append(t chainTask) {
	c.tasks = append(c.tasks, t)
}

func (c *requestChain) start() {
	c.index = 0
	c.activateCurrent()
}

func (c *requestChain) advance() {
	c.index++
	c.activateCurrent()
}

// active returns the task in flight, or nil once the chain has completed.
func (c *requestChain) active() chainTask {
	if c.index < len(c.tasks) {
		return c.tasks[c.index]
	}
	return nil
}

func (c *requestChain) activateCurrent() {
	t := c.active()
	if t == nil {
		c.req.finalize()
		return
	}
	c.req.logger.Debug("permissionx: task activated", "task", t.name(), "position", c.index)
	t.activate()
}
