// Package llm provides the wire-level representations of LLM inference API
// requests and responses, the typed error taxonomy for transport failures,
// and the incremental decoder for newline-delimited JSON response streams.
package llm

// Message represents a single message in a conversation.
type Message struct {
	Role    string   `json:"role"`             // "system", "user", "assistant"
	Content string   `json:"content"`          // The message content
	Images  []string `json:"images,omitempty"` // Optional base64-encoded images (for multimodal)
}
