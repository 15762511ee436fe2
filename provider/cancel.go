package provider

import (
	"context"
	"sync"
)

// CancelController tracks the cancellation token for the one in-flight
// transport operation a provider may have. A fresh token is bound
// immediately before each attempt and discarded when that attempt finishes,
// so a token is never reused across requests.
type CancelController struct {
	mu     sync.Mutex
	active *binding
}

type binding struct {
	cancel context.CancelFunc
}

// Bind derives a cancellable context for one request attempt and makes it
// the controller's active token. The returned release func must be called
// when the attempt finishes (success, failure, or cancellation); it unbinds
// the token and releases the context. Release is safe to call more than once
// and safe to race with Cancel.
func (c *CancelController) Bind(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	b := &binding{cancel: cancel}

	c.mu.Lock()
	c.active = b
	c.mu.Unlock()

	release := func() {
		c.mu.Lock()
		if c.active == b {
			c.active = nil
		}
		c.mu.Unlock()
		cancel()
	}
	return ctx, release
}

// Cancel fires the active token, aborting the bound operation. With no
// operation bound it is a no-op. Idempotent and safe to call concurrently
// with natural completion.
func (c *CancelController) Cancel() {
	c.mu.Lock()
	b := c.active
	c.active = nil
	c.mu.Unlock()

	if b != nil {
		b.cancel()
	}
}
