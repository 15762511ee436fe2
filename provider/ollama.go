package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/papercomputeco/loom/pkg/llm"
)

const (
	// DefaultTimeout bounds ordinary chat/generate/stream calls.
	DefaultTimeout = 2 * time.Minute

	// probeTimeout bounds liveness probes. Deliberately much shorter than
	// the request timeout: a status poll must come back fast or not at all.
	probeTimeout = 3 * time.Second
)

// Ollama talks to a local Ollama server over its native HTTP API.
// It implements every capability, including model pull/delete management.
type Ollama struct {
	name     string
	endpoint string
	model    string
	timeout  time.Duration

	httpClient *http.Client
	logger     *zap.Logger
	cancels    CancelController
}

// NewOllama creates an Ollama provider for the given base endpoint
// (e.g. "http://localhost:11434"). An empty timeout falls back to
// DefaultTimeout; model is the default target when a request names none.
func NewOllama(name, endpoint, model string, timeout time.Duration, logger *zap.Logger) *Ollama {
	if name == "" {
		name = "ollama"
	}
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ollama{
		name:       name,
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		timeout:    timeout,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

func (o *Ollama) Name() string     { return o.name }
func (o *Ollama) Endpoint() string { return o.endpoint }

func (o *Ollama) Capabilities() Capabilities {
	return Capabilities{Status: true, List: true, Chat: true, Generate: true, Stream: true}
}

// Available probes the server via the model-listing endpoint.
func (o *Ollama) Available(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var tags llm.TagsResponse
	if err := o.roundTrip(ctx, "status", http.MethodGet, "/api/tags", nil, &tags); err != nil {
		return err
	}
	return nil
}

// ListModels returns the installed models. Failures are absorbed and logged.
func (o *Ollama) ListModels(ctx context.Context) []llm.ModelInfo {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var tags llm.TagsResponse
	if err := o.roundTrip(ctx, "list", http.MethodGet, "/api/tags", nil, &tags); err != nil {
		o.logger.Warn("listing models failed", zap.String("provider", o.name), zap.Error(err))
		return nil
	}
	return tags.Models
}

// Chat performs one blocking chat round trip.
func (o *Ollama) Chat(ctx context.Context, messages []llm.Message, opts *llm.Options) (Result, error) {
	merged := opts.WithDefaults()
	stream := false
	req := &llm.ChatRequest{
		Model:    resolveModel(merged.Model, o.model),
		Messages: messages,
		Stream:   &stream,
		Options:  &merged,
	}

	ctx, release := o.cancels.Bind(ctx)
	defer release()
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	var resp llm.ChatResponse
	if err := o.roundTrip(ctx, "chat", http.MethodPost, "/api/chat", req, &resp); err != nil {
		return Result{}, err
	}
	if resp.IncompleteExplicit() {
		return Result{}, &llm.ProtocolError{Op: "chat", Reason: "backend reported done=false on a non-streaming call"}
	}

	o.logger.Debug("chat round trip complete",
		zap.String("model", resp.Model),
		zap.Int("eval_count", resp.EvalCount),
		zap.Duration("duration", time.Since(start)),
	)

	return Result{
		Content: resp.Message.Content,
		Model:   resp.Model,
		Done:    true,
		Usage:   usageFromCounts(resp.PromptEvalCount, resp.EvalCount),
	}, nil
}

// Generate performs one blocking single-prompt completion.
func (o *Ollama) Generate(ctx context.Context, prompt string, opts *llm.Options) (Result, error) {
	merged := opts.WithDefaults()
	stream := false
	req := &llm.GenerateRequest{
		Model:   resolveModel(merged.Model, o.model),
		Prompt:  prompt,
		Stream:  &stream,
		Options: &merged,
	}

	ctx, release := o.cancels.Bind(ctx)
	defer release()
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	var resp llm.GenerateResponse
	if err := o.roundTrip(ctx, "generate", http.MethodPost, "/api/generate", req, &resp); err != nil {
		return Result{}, err
	}
	if resp.IncompleteExplicit() {
		return Result{}, &llm.ProtocolError{Op: "generate", Reason: "backend reported done=false on a non-streaming call"}
	}

	return Result{
		Content: resp.Response,
		Model:   resp.Model,
		Done:    true,
		Usage:   usageFromCounts(resp.PromptEvalCount, resp.EvalCount),
	}, nil
}

// Stream opens a streaming chat call and returns the decoded chunk sequence.
func (o *Ollama) Stream(ctx context.Context, messages []llm.Message, opts *llm.Options) (Stream, error) {
	merged := opts.WithDefaults()
	stream := true
	req := &llm.ChatRequest{
		Model:    resolveModel(merged.Model, o.model),
		Messages: messages,
		Stream:   &stream,
		Options:  &merged,
	}

	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, &llm.ProtocolError{Op: "stream", Reason: "marshal request", Cause: err}
	}

	bctx, release := o.cancels.Bind(ctx)
	tctx, cancel := context.WithTimeout(bctx, o.timeout)
	teardown := func() {
		cancel()
		release()
	}

	httpReq, err := http.NewRequestWithContext(tctx, http.MethodPost, o.endpoint+"/api/chat", bytes.NewReader(reqBody))
	if err != nil {
		teardown()
		return nil, &llm.ProtocolError{Op: "stream", Reason: "build request", Cause: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := o.httpClient.Do(httpReq)
	if err != nil {
		teardown()
		return nil, o.wrapErr("stream", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		teardown()
		return nil, &llm.ProtocolError{Op: "stream", Reason: fmt.Sprintf("backend returned %d: %s", httpResp.StatusCode, errorMessage(body))}
	}

	o.logger.Debug("stream opened", zap.String("model", req.Model))

	return &ollamaStream{
		provider: o,
		body:     httpResp.Body,
		dec:      llm.NewStreamDecoder(o.logger),
		release:  teardown,
		readBuf:  make([]byte, 4096),
	}, nil
}

// Cancel aborts the operation bound to the active cancellation token, if any.
func (o *Ollama) Cancel() {
	o.cancels.Cancel()
}

// Pull asks the server to download a model. Fire-and-forget: the result is a
// plain success flag and failures are only logged.
func (o *Ollama) Pull(ctx context.Context, model string) bool {
	stream := false
	req := &llm.PullRequest{Model: model, Stream: &stream}
	if err := o.roundTrip(ctx, "pull", http.MethodPost, "/api/pull", req, nil); err != nil {
		o.logger.Warn("model pull failed", zap.String("model", model), zap.Error(err))
		return false
	}
	return true
}

// DeleteModel removes an installed model, returning a plain success flag.
func (o *Ollama) DeleteModel(ctx context.Context, model string) bool {
	req := &llm.DeleteRequest{Model: model}
	if err := o.roundTrip(ctx, "delete", http.MethodDelete, "/api/delete", req, nil); err != nil {
		o.logger.Warn("model delete failed", zap.String("model", model), zap.Error(err))
		return false
	}
	return true
}

// roundTrip performs one JSON request/response cycle. A nil in skips the
// request body; a nil out discards the response body.
func (o *Ollama) roundTrip(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &llm.ProtocolError{Op: op, Reason: "marshal request", Cause: err}
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, o.endpoint+path, body)
	if err != nil {
		return &llm.ProtocolError{Op: op, Reason: "build request", Cause: err}
	}
	if in != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return o.wrapErr(op, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return o.wrapErr(op, err)
	}
	if httpResp.StatusCode != http.StatusOK {
		return &llm.ProtocolError{Op: op, Reason: fmt.Sprintf("backend returned %d: %s", httpResp.StatusCode, errorMessage(respBody))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &llm.ProtocolError{Op: op, Reason: "unmarshal response", Cause: err}
	}
	return nil
}

// wrapErr classifies a transport-level failure. Cancellation passes through
// unchanged so callers can tell "cancelled" from "failed" with errors.Is;
// deadline expiry becomes a TimeoutError, everything else a TransportError.
func (o *Ollama) wrapErr(op string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &llm.TimeoutError{Op: op, Endpoint: o.endpoint, Timeout: o.timeout, Cause: err}
	}
	return &llm.TransportError{Op: op, Endpoint: o.endpoint, Cause: err}
}

// ollamaStream adapts an open NDJSON response body into the Stream contract.
// Recv is single-consumer; Close may race with Recv.
type ollamaStream struct {
	provider *Ollama
	body     io.ReadCloser
	dec      *llm.StreamDecoder
	release  func()
	readBuf  []byte

	pending  []llm.StreamChunk
	finished bool  // terminal chunk delivered or source drained
	err      error // sticky transport failure

	mu     sync.Mutex
	closed bool
}

func (s *ollamaStream) Recv() (llm.StreamChunk, error) {
	for {
		if len(s.pending) > 0 {
			chunk := s.pending[0]
			s.pending = s.pending[1:]
			if chunk.Done {
				s.finish()
			}
			return chunk, nil
		}
		if s.err != nil {
			return llm.StreamChunk{}, s.err
		}
		if s.finished || s.isClosed() {
			return llm.StreamChunk{}, io.EOF
		}

		n, err := s.body.Read(s.readBuf)
		if n > 0 {
			s.pending = append(s.pending, s.dec.Feed(s.readBuf[:n])...)
		}
		if err == nil {
			continue
		}

		// Whatever the body ended with, hand out everything already decoded
		// before reporting the outcome.
		s.pending = append(s.pending, s.dec.Flush()...)
		switch {
		case err == io.EOF || s.dec.Done():
			s.finish()
		case s.isClosed() || errors.Is(err, context.Canceled):
			// Cancellation is a normal exit, not a fault.
			s.finish()
		default:
			s.err = s.provider.wrapErr("stream", err)
			s.finish()
		}
	}
}

// Close stops the stream early. Idempotent; implicitly cancels the transport.
func (s *ollamaStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.release()
	return s.body.Close()
}

// finish releases the cancellation token and the transport once the stream
// has reached its natural end.
func (s *ollamaStream) finish() {
	if s.finished {
		return
	}
	s.finished = true
	s.release()
	s.body.Close()
}

func (s *ollamaStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// resolveModel returns requestModel when non-empty, otherwise defaultModel.
func resolveModel(requestModel, defaultModel string) string {
	if m := strings.TrimSpace(requestModel); m != "" {
		return m
	}
	return defaultModel
}

func usageFromCounts(prompt, completion int) Usage {
	return Usage{
		PromptTokens:     prompt,
		CompletionTokens: completion,
		TotalTokens:      prompt + completion,
	}
}

// errorMessage extracts the error field from a backend error envelope,
// falling back to the raw body.
func errorMessage(body []byte) string {
	var envelope llm.ErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return string(body)
}
