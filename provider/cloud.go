package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/loom/pkg/llm"
)

// cloudBase carries the pieces shared by the cloud backends. They all probe
// liveness through their model-listing endpoint and declare chat, generate,
// and stream as unsupported until those paths land.
type cloudBase struct {
	name     string
	endpoint string
	apiKey   string

	httpClient *http.Client
	logger     *zap.Logger
}

func newCloudBase(name, endpoint, apiKey string, logger *zap.Logger) cloudBase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return cloudBase{
		name:       name,
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
		logger:     logger,
	}
}

func (c *cloudBase) Name() string     { return c.name }
func (c *cloudBase) Endpoint() string { return c.endpoint }

func (c *cloudBase) Capabilities() Capabilities {
	return Capabilities{Status: true, List: true}
}

// Cancel is a no-op: these backends carry no cancellable operations yet, so
// there is never a token bound.
func (c *cloudBase) Cancel() {}

func (c *cloudBase) unsupported(op string) error {
	return &llm.UnsupportedError{Provider: c.name, Op: op}
}

// getJSON performs one authenticated GET with the probe timeout.
func (c *cloudBase) getJSON(ctx context.Context, op, path string, headers map[string]string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+path, nil)
	if err != nil {
		return &llm.ProtocolError{Op: op, Reason: "build request", Cause: err}
	}
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return &llm.TimeoutError{Op: op, Endpoint: c.endpoint, Timeout: probeTimeout, Cause: err}
		}
		return &llm.TransportError{Op: op, Endpoint: c.endpoint, Cause: err}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return &llm.TransportError{Op: op, Endpoint: c.endpoint, Cause: err}
	}
	if httpResp.StatusCode != http.StatusOK {
		return &llm.ProtocolError{Op: op, Reason: fmt.Sprintf("backend returned %d", httpResp.StatusCode)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &llm.ProtocolError{Op: op, Reason: "unmarshal response", Cause: err}
	}
	return nil
}
