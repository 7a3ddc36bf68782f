package session

import "github.com/aretw0/molstage/pkg/core"

// drainQueue opens queued startup paths one at a time, in order. An entry
// that cannot be resolved is reported and the next one is tried.
func (c *Coordinator) drainQueue() {
	for len(c.queue) > 0 && c.reading == nil && c.depth == 0 {
		path := c.queue[0]
		c.queue = c.queue[1:]

		job, err := c.submitRead(c.runCtx, path, "")
		if err != nil {
			c.logger.Warn("queued file not opened", "path", path, "error", err)
			c.publish(core.Event{Type: core.EventOpenFailed, Path: path, Error: err.Error()})
			continue
		}
		job.queued = true
	}
	if len(c.queue) == 0 {
		c.stopQueueTimer()
	}
}

// expireQueue reports every entry still queued at the deadline, once.
func (c *Coordinator) expireQueue() {
	c.queueTimer = nil
	for _, path := range c.queue {
		c.logger.Warn("queued file dropped", "path", path, "error", core.ErrQueueTimeout)
		c.publish(core.Event{Type: core.EventOpenFailed, Path: path, Error: core.ErrQueueTimeout.Error()})
	}
	c.queue = nil
}

func (c *Coordinator) stopQueueTimer() {
	if c.queueTimer != nil {
		c.queueTimer.Stop()
		c.queueTimer = nil
	}
}
