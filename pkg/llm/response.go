package llm

import "time"

// ChatResponse represents a non-streaming chat completion response
// (Ollama-compatible).
//
// Done is a pointer so that a backend explicitly reporting an incomplete
// response (done: false) can be told apart from one that omits the flag.
// Callers should use Completed and IncompleteExplicit rather than reading
// the field directly.
type ChatResponse struct {
	Model     string    `json:"model"`      // Model that generated the response
	CreatedAt time.Time `json:"created_at"` // Response timestamp
	Message   Message   `json:"message"`    // The assistant's response
	Done      *bool     `json:"done"`       // Whether generation is complete

	// Metrics (only present when done=true)
	TotalDuration      int64 `json:"total_duration,omitempty"`       // Total time in nanoseconds
	LoadDuration       int64 `json:"load_duration,omitempty"`        // Model load time
	PromptEvalCount    int   `json:"prompt_eval_count,omitempty"`    // Tokens in prompt
	PromptEvalDuration int64 `json:"prompt_eval_duration,omitempty"` // Prompt processing time
	EvalCount          int   `json:"eval_count,omitempty"`           // Generated tokens
	EvalDuration       int64 `json:"eval_duration,omitempty"`        // Generation time
}

// Completed reports whether the backend considers the response complete.
// A missing done flag counts as complete.
func (r *ChatResponse) Completed() bool {
	return r.Done == nil || *r.Done
}

// IncompleteExplicit reports whether the backend explicitly flagged the
// response as incomplete (done: false). On a non-streaming call this is a
// protocol violation, not something to silently upgrade to "complete".
func (r *ChatResponse) IncompleteExplicit() bool {
	return r.Done != nil && !*r.Done
}

// GenerateResponse represents a non-streaming single-prompt completion
// response (POST /api/generate). The content field is `response` instead of
// `message.content`.
type GenerateResponse struct {
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Response  string    `json:"response"`
	Done      *bool     `json:"done"`

	TotalDuration   int64 `json:"total_duration,omitempty"`
	PromptEvalCount int   `json:"prompt_eval_count,omitempty"`
	EvalCount       int   `json:"eval_count,omitempty"`
}

// Completed reports whether the backend considers the response complete.
func (r *GenerateResponse) Completed() bool {
	return r.Done == nil || *r.Done
}

// IncompleteExplicit reports whether the backend explicitly flagged the
// response as incomplete.
func (r *GenerateResponse) IncompleteExplicit() bool {
	return r.Done != nil && !*r.Done
}

// ModelInfo describes one model in a listing response.
type ModelInfo struct {
	Name       string    `json:"name"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
	Size       int64     `json:"size,omitempty"`
	Digest     string    `json:"digest,omitempty"`
}

// TagsResponse is the body of GET /api/tags.
type TagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ErrorResponse represents an error envelope from the LLM API.
type ErrorResponse struct {
	Error string `json:"error"`
}
