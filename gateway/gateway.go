// Package gateway exposes the streaming client core over a local HTTP
// surface for UI processes: chat and generate round trips, NDJSON streaming,
// status probing, model management, and provider selection.
package gateway

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/papercomputeco/loom/client"
	"github.com/papercomputeco/loom/pkg/llm"
)

// Gateway serves the client facade over HTTP.
type Gateway struct {
	config Config
	client *client.Client
	logger *zap.Logger
	server *fiber.App
}

// New creates a Gateway over an existing client.
func New(config Config, cl *client.Client, logger *zap.Logger) *Gateway {
	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		// Enable streaming
		StreamRequestBody: true,
	})

	g := &Gateway{
		config: config,
		client: cl,
		logger: logger,
		server: app,
	}

	// Register routes
	app.Post("/api/chat", g.handleChat)
	app.Post("/api/generate", g.handleGenerate)
	app.Get("/api/tags", g.handleTags)
	app.Get("/api/status", g.handleStatus)
	app.Get("/api/status/:provider", g.handleStatus)
	app.Post("/api/provider/active", g.handleSetActiveProvider)
	app.Post("/api/cancel", g.handleCancel)
	app.Post("/api/pull", g.handlePull)
	app.Delete("/api/delete", g.handleDelete)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(map[string]string{"status": "ok"})
	})

	return g
}

// Run starts the gateway server on the configured listening address.
func (g *Gateway) Run() error {
	g.logger.Info("starting gateway server",
		zap.String("listen", g.config.ListenAddr),
		zap.String("active_provider", g.client.ActiveProvider()),
	)
	return g.server.Listen(g.config.ListenAddr)
}

// Close shuts down the server and the client core.
func (g *Gateway) Close() error {
	g.client.Close()
	return g.server.Shutdown()
}

// handleChat serves chat requests, streaming or not, against the active
// provider through the request queue.
func (g *Gateway) handleChat(c *fiber.Ctx) error {
	startTime := time.Now()

	var req llm.ChatRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		g.logger.Error("failed to parse request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	opts := req.Options
	if req.Model != "" {
		if opts == nil {
			opts = &llm.Options{}
		}
		opts.Model = req.Model
	}

	g.logger.Debug("received chat request",
		zap.String("model", req.Model),
		zap.Int("message_count", len(req.Messages)),
		zap.Bool("stream", req.Stream == nil || *req.Stream),
	)

	// Ollama defaults to streaming
	if req.Stream == nil || *req.Stream {
		return g.streamChat(c, req.Messages, opts)
	}

	result, err := g.client.SendMessage(c.Context(), req.Messages, opts)
	if err != nil {
		g.logger.Error("chat request failed", zap.Error(err))
		return writeError(c, err)
	}

	g.logger.Debug("chat request complete",
		zap.String("model", result.Model),
		zap.Duration("duration", time.Since(startTime)),
	)
	return c.JSON(result)
}

// streamChat writes decoded chunks to the client as NDJSON, one frame per
// chunk, terminal frame last. Chunks already written stay with the client
// even if the stream fails partway.
func (g *Gateway) streamChat(c *fiber.Ctx, messages []llm.Message, opts *llm.Options) error {
	stream := g.client.StreamMessage(c.Context(), messages, opts)

	c.Set("Content-Type", "application/x-ndjson")
	c.Set("Transfer-Encoding", "chunked")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer stream.Close()

		for {
			chunk, err := stream.Recv()
			if err == io.EOF {
				return
			}
			if err != nil {
				g.logger.Error("stream failed", zap.Error(err))
				writeStreamError(w, err)
				return
			}

			line, err := json.Marshal(chunk)
			if err != nil {
				g.logger.Error("failed to marshal chunk", zap.Error(err))
				return
			}
			w.Write(line)
			w.Write([]byte("\n"))
			if err := w.Flush(); err != nil {
				// Client went away; closing the stream cancels upstream.
				return
			}
		}
	}))

	return nil
}

// handleGenerate serves single-prompt completions.
func (g *Gateway) handleGenerate(c *fiber.Ctx) error {
	var req llm.GenerateRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		g.logger.Error("failed to parse request", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	opts := req.Options
	if req.Model != "" {
		if opts == nil {
			opts = &llm.Options{}
		}
		opts.Model = req.Model
	}

	result, err := g.client.GenerateText(c.Context(), req.Prompt, opts)
	if err != nil {
		g.logger.Error("generate request failed", zap.Error(err))
		return writeError(c, err)
	}
	return c.JSON(result)
}

// handleTags lists the active provider's models in the Ollama tag shape.
func (g *Gateway) handleTags(c *fiber.Ctx) error {
	models := g.client.ListModels(c.Context())
	if models == nil {
		models = []llm.ModelInfo{}
	}
	return c.JSON(llm.TagsResponse{Models: models})
}

// handleStatus reports liveness for the named or active provider. Always
// HTTP 200: an unreachable backend is a result, not a server error.
func (g *Gateway) handleStatus(c *fiber.Ctx) error {
	return c.JSON(g.client.CheckStatus(c.Context(), c.Params("provider")))
}

func (g *Gateway) handleSetActiveProvider(c *fiber.Ctx) error {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}
	if err := g.client.SetActiveProvider(req.Name); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: err.Error()})
	}
	return c.JSON(map[string]string{"active": req.Name})
}

func (g *Gateway) handleCancel(c *fiber.Ctx) error {
	g.client.CancelRequest()
	return c.JSON(map[string]string{"status": "ok"})
}

func (g *Gateway) handlePull(c *fiber.Ctx) error {
	var req llm.PullRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil || req.Model == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "model required"})
	}
	ok, err := g.client.PullModel(c.Context(), req.Model)
	if err != nil {
		return writeError(c, err)
	}
	if !ok {
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: "pull failed"})
	}
	return c.JSON(map[string]any{"success": true})
}

func (g *Gateway) handleDelete(c *fiber.Ctx) error {
	var req llm.DeleteRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil || req.Model == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "model required"})
	}
	ok, err := g.client.DeleteModel(c.Context(), req.Model)
	if err != nil {
		return writeError(c, err)
	}
	if !ok {
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: "delete failed"})
	}
	return c.JSON(map[string]any{"success": true})
}

// writeError maps the error taxonomy onto HTTP statuses with a single
// human-readable envelope.
func writeError(c *fiber.Ctx, err error) error {
	return c.Status(httpStatus(err)).JSON(llm.ErrorResponse{Error: err.Error()})
}

func httpStatus(err error) int {
	var unsupported *llm.UnsupportedError
	if errors.As(err, &unsupported) {
		return fiber.StatusNotImplemented
	}
	var timeout *llm.TimeoutError
	if errors.As(err, &timeout) {
		return fiber.StatusGatewayTimeout
	}
	return fiber.StatusBadGateway
}

// writeStreamError appends an error envelope as a final NDJSON line. Frames
// already delivered stay usable by the consumer.
func writeStreamError(w *bufio.Writer, err error) {
	line, merr := json.Marshal(llm.ErrorResponse{Error: err.Error()})
	if merr != nil {
		return
	}
	w.Write(line)
	w.Write([]byte("\n"))
	w.Flush()
}
