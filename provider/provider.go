// Package provider implements the backend adapters that speak to
// model-serving services. One variant exists per backend: the local Ollama
// server is fully implemented, and the cloud backends (OpenAI, Anthropic,
// Gemini) implement liveness and model listing while declaring the
// chat/generate/stream capabilities they do not yet carry.
package provider

import (
	"context"

	"github.com/papercomputeco/loom/pkg/llm"
)

// Capabilities declares which operations a provider backend implements.
// A missing capability surfaces as *llm.UnsupportedError from the matching
// call, a first-class, recoverable outcome.
type Capabilities struct {
	Status   bool
	List     bool
	Chat     bool
	Generate bool
	Stream   bool
}

// Usage is token accounting reported by a backend, when available.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Result is a completed single-shot chat or generate round trip.
type Result struct {
	Content string `json:"content"`
	Model   string `json:"model"`
	Done    bool   `json:"done"`
	Usage   Usage  `json:"usage"`
}

// Stream is a lazy, finite, non-restartable sequence of stream chunks.
//
// Recv blocks until the next chunk is available and returns io.EOF once the
// terminal chunk has been delivered. Close is idempotent and may be called at
// any point to stop the stream early; a closed or cancelled stream ends with
// io.EOF, never with an error, and chunks already delivered stay valid.
type Stream interface {
	Recv() (llm.StreamChunk, error)
	Close() error
}

// Provider is one backend adapter. Implementations are immutable after
// construction and safe for concurrent use; each owns its own cancellation
// state, so cancelling one provider never disturbs another.
type Provider interface {
	// Name returns the provider identity (e.g. "ollama").
	Name() string

	// Endpoint returns the base endpoint the provider talks to.
	Endpoint() string

	// Capabilities returns the declared capability set.
	Capabilities() Capabilities

	// Available probes backend liveness with a short timeout. It absorbs
	// network failures into the returned error and never panics; a nil
	// return means the backend is reachable.
	Available(ctx context.Context) error

	// ListModels returns the models the backend serves. Failures are
	// absorbed and logged; the result is nil on any error.
	ListModels(ctx context.Context) []llm.ModelInfo

	// Chat performs a single blocking chat round trip. Caller options merge
	// with backend defaults field-by-field.
	Chat(ctx context.Context, messages []llm.Message, opts *llm.Options) (Result, error)

	// Generate performs a single-prompt completion round trip.
	Generate(ctx context.Context, prompt string, opts *llm.Options) (Result, error)

	// Stream opens one network stream and returns the decoded chunk
	// sequence. Consumers may Close the stream early to cancel it.
	Stream(ctx context.Context, messages []llm.Message, opts *llm.Options) (Stream, error)

	// Cancel aborts the operation currently bound to this provider's
	// cancellation token, if any; otherwise it is a no-op.
	Cancel()
}

// ModelManager is implemented by providers that can install and remove
// models (currently only Ollama).
type ModelManager interface {
	Pull(ctx context.Context, model string) bool
	DeleteModel(ctx context.Context, model string) bool
}
