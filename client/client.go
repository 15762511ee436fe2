// Package client is the public facade of the streaming client core. A Client
// owns a fixed registry of providers, an active-provider selector, and the
// single-flight FIFO queue that serializes every chat, generate, and stream
// request against the active backend.
package client

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/papercomputeco/loom/config"
	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/provider"
)

// StatusResult is an on-demand liveness snapshot for one provider. It is
// recomputed every call, never cached.
type StatusResult struct {
	Provider string          `json:"provider"`
	Endpoint string          `json:"endpoint"`
	Online   bool            `json:"online"`
	Models   []llm.ModelInfo `json:"models"`
	Error    string          `json:"error,omitempty"`
}

// Client is one client instance. Safe for concurrent use; all shared state
// (active selector, executing entry) is mutex-guarded and the queue worker is
// the only goroutine that dispatches requests.
type Client struct {
	logger    *zap.Logger
	providers map[string]provider.Provider
	queue     *queue
	submitted atomic.Uint64

	mu        sync.Mutex
	active    string
	executing provider.Provider
}

// New creates a Client over a fixed provider set with the named provider
// active.
func New(providers map[string]provider.Provider, active string, logger *zap.Logger) (*Client, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers configured")
	}
	if _, ok := providers[active]; !ok {
		return nil, fmt.Errorf("unknown active provider %q", active)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		logger:    logger,
		providers: providers,
		active:    active,
	}
	c.queue = newQueue(c.dispatchEntry, logger)
	return c, nil
}

// NewFromConfig builds the provider registry described by cfg and wraps it
// in a Client.
func NewFromConfig(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	providers := make(map[string]provider.Provider, len(cfg.Providers))
	for name, pcfg := range cfg.Providers {
		p, err := provider.FromConfig(name, pcfg, logger)
		if err != nil {
			return nil, fmt.Errorf("building provider %q: %w", name, err)
		}
		providers[name] = p
	}
	return New(providers, cfg.Active, logger)
}

// Close stops the queue worker. Requests still queued fail with ErrClosed;
// the entry being executed is allowed to finish.
func (c *Client) Close() {
	c.queue.close()
}

// SetActiveProvider switches the active backend. Unknown names are an error,
// never a panic. The switch applies to entries that have not started
// executing; the entry in flight keeps its provider.
func (c *Client) SetActiveProvider(name string) error {
	if _, ok := c.providers[name]; !ok {
		return fmt.Errorf("unknown provider %q", name)
	}
	c.mu.Lock()
	c.active = name
	c.mu.Unlock()

	c.logger.Info("active provider changed", zap.String("provider", name))
	return nil
}

// ActiveProvider returns the name of the currently selected provider.
func (c *Client) ActiveProvider() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// CheckStatus composes a liveness probe and a model listing into one
// StatusResult for the named provider, or the active one when name is empty.
// It never returns an error: failures of any kind degrade to online=false
// with a description attached.
func (c *Client) CheckStatus(ctx context.Context, name string) StatusResult {
	if name == "" {
		name = c.ActiveProvider()
	}
	p, ok := c.providers[name]
	if !ok {
		return StatusResult{
			Provider: name,
			Models:   []llm.ModelInfo{},
			Error:    fmt.Sprintf("unknown provider %q", name),
		}
	}

	result := StatusResult{
		Provider: p.Name(),
		Endpoint: p.Endpoint(),
		Models:   []llm.ModelInfo{},
	}
	if err := p.Available(ctx); err != nil {
		result.Error = err.Error()
		return result
	}
	result.Online = true
	if models := p.ListModels(ctx); models != nil {
		result.Models = models
	}
	return result
}

// ListModels returns the active provider's models; nil on any failure.
func (c *Client) ListModels(ctx context.Context) []llm.ModelInfo {
	return c.activeProvider().ListModels(ctx)
}

// SendMessage enqueues a chat request and blocks until its turn completes.
func (c *Client) SendMessage(ctx context.Context, messages []llm.Message, opts *llm.Options) (provider.Result, error) {
	e := &entry{
		kind:     kindChat,
		ctx:      ctx,
		messages: messages,
		opts:     opts,
		index:    c.submitted.Add(1),
		done:     make(chan struct{}),
	}
	if !c.queue.enqueue(e) {
		return provider.Result{}, ErrClosed
	}
	<-e.done
	return e.result, e.err
}

// GenerateText enqueues a single-prompt completion and blocks until its turn
// completes.
func (c *Client) GenerateText(ctx context.Context, prompt string, opts *llm.Options) (provider.Result, error) {
	e := &entry{
		kind:   kindGenerate,
		ctx:    ctx,
		prompt: prompt,
		opts:   opts,
		index:  c.submitted.Add(1),
		done:   make(chan struct{}),
	}
	if !c.queue.enqueue(e) {
		return provider.Result{}, ErrClosed
	}
	<-e.done
	return e.result, e.err
}

// StreamMessage enqueues a streaming chat request and returns its chunk
// sequence immediately; the first Recv blocks until the entry reaches the
// head of the queue. Closing the stream cancels the entry.
func (c *Client) StreamMessage(ctx context.Context, messages []llm.Message, opts *llm.Options) provider.Stream {
	e := &entry{
		kind:     kindStream,
		ctx:      ctx,
		messages: messages,
		opts:     opts,
		index:    c.submitted.Add(1),
		stream:   newPendingStream(),
	}
	if !c.queue.enqueue(e) {
		e.stream.fail(ErrClosed)
	}
	return e.stream
}

// CancelRequest aborts the entry currently executing, if any. Queued entries
// are untouched; with nothing in flight this is a no-op.
func (c *Client) CancelRequest() {
	c.mu.Lock()
	p := c.executing
	c.mu.Unlock()

	if p == nil {
		return
	}
	c.logger.Info("cancelling in-flight request", zap.String("provider", p.Name()))
	p.Cancel()
}

// PullModel asks the active provider to install a model. Providers without
// model management report UnsupportedError.
func (c *Client) PullModel(ctx context.Context, model string) (bool, error) {
	p := c.activeProvider()
	mgr, ok := p.(provider.ModelManager)
	if !ok {
		return false, &llm.UnsupportedError{Provider: p.Name(), Op: "pull"}
	}
	return mgr.Pull(ctx, model), nil
}

// DeleteModel asks the active provider to remove a model.
func (c *Client) DeleteModel(ctx context.Context, model string) (bool, error) {
	p := c.activeProvider()
	mgr, ok := p.(provider.ModelManager)
	if !ok {
		return false, &llm.UnsupportedError{Provider: p.Name(), Op: "delete"}
	}
	return mgr.DeleteModel(ctx, model), nil
}

func (c *Client) activeProvider() provider.Provider {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.providers[c.active]
}

// dispatchEntry runs one queue entry to completion on the queue worker. The
// active provider is resolved here, at dispatch time, so a provider switch
// takes effect for not-yet-started entries only.
func (c *Client) dispatchEntry(e *entry) {
	p := c.activeProvider()

	c.mu.Lock()
	c.executing = p
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.executing = nil
		c.mu.Unlock()
	}()

	c.logger.Debug("dispatching request",
		zap.Uint64("index", e.index),
		zap.Stringer("kind", e.kind),
		zap.String("provider", p.Name()),
	)

	// The caller may have given up while the entry sat queued.
	if err := e.ctx.Err(); err != nil {
		if e.kind == kindStream {
			e.stream.fail(err)
		} else {
			e.complete(provider.Result{}, err)
		}
		return
	}

	switch e.kind {
	case kindChat:
		res, err := p.Chat(e.ctx, e.messages, e.opts)
		e.complete(res, err)
	case kindGenerate:
		res, err := p.Generate(e.ctx, e.prompt, e.opts)
		e.complete(res, err)
	case kindStream:
		if e.stream.isClosed() {
			// Cancelled before it ever started; nothing to open.
			return
		}
		s, err := p.Stream(e.ctx, e.messages, e.opts)
		if err != nil {
			e.stream.fail(err)
			return
		}
		e.stream.bind(s)
		// Hold the queue until the consumer drains or abandons the stream:
		// later entries must not start while this one is in flight. A consumer
		// that cancels its context and walks away, or a client shutting down,
		// must not wedge the queue, so both force the teardown; Close ends the
		// handle with a clean EOF and releases the transport.
		select {
		case <-e.stream.finished:
		case <-e.ctx.Done():
			e.stream.Close()
		case <-c.queue.stop:
			e.stream.Close()
		}
	}
}
