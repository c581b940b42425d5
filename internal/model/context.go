package model

import "sync"

// Context is the cancellation token and completion flag handed to every
// behavior invocation (entry, exit, effect, activity, timer). It is distinct
// from the user's extended state E: E carries domain data, Context carries
// only the engine's "please wind down" signal.
//
// Activities are expected to poll Cancelled cooperatively; the engine makes
// no forced-termination guarantees.
type Context struct {
	mu        sync.Mutex
	done      chan struct{}
	cancelled bool
	completed bool
}

// NewContext returns a fresh, live Context.
func NewContext() *Context {
	return &Context{done: make(chan struct{})}
}

// Background returns a Context that is never cancelled, suitable for
// synchronous behavior invocations (entry/exit/effect) that do not
// participate in activity cancellation.
func Background() *Context {
	return &Context{done: make(chan struct{})}
}

// Cancelled reports whether Cancel has been called.
func (c *Context) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Done returns a channel that is closed when Cancel is called, for use in
// select statements alongside SleepFor or other blocking operations.
func (c *Context) Done() <-chan struct{} {
	return c.done
}

// Cancel signals the context. Safe to call more than once.
func (c *Context) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.cancelled {
		c.cancelled = true
		close(c.done)
	}
}

// MarkCompleted records that the behavior finished on its own (as opposed to
// being cancelled). The activity manager calls it when an activity or timer
// function returns before its context was cancelled, so a timer that fired
// is marked and one that was cut short is not.
func (c *Context) MarkCompleted() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = true
}

// Completed reports whether MarkCompleted was called.
func (c *Context) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}
