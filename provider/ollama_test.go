package provider_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/provider"
)

func newTestOllama(t *testing.T, handler http.HandlerFunc) *provider.Ollama {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return provider.NewOllama("ollama", srv.URL, "llama3", 30*time.Second, nil)
}

func TestChatRoundTrip(t *testing.T) {
	o := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/chat", r.URL.Path)

		var req llm.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Stream)
		assert.False(t, *req.Stream)
		require.Len(t, req.Messages, 1)
		assert.Equal(t, "user", req.Messages[0].Role)
		assert.Equal(t, "hi", req.Messages[0].Content)

		w.Write([]byte(`{"message":{"content":"hello"},"model":"x","done":true}`))
	})

	res, err := o.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Content)
	assert.Equal(t, "x", res.Model)
	assert.True(t, res.Done)
}

func TestChatMergesDefaultOptions(t *testing.T) {
	temp := 1.5
	o := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		var req llm.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Options)

		// Caller temperature wins; unset fields fill from defaults.
		assert.Equal(t, 1.5, *req.Options.Temperature)
		assert.Equal(t, llm.DefaultTopP, *req.Options.TopP)
		assert.Equal(t, llm.DefaultNumPredict, *req.Options.NumPredict)
		assert.Equal(t, "llama3", req.Model)

		w.Write([]byte(`{"message":{"content":"ok"},"model":"llama3","done":true}`))
	})

	_, err := o.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, &llm.Options{Temperature: &temp})
	require.NoError(t, err)
}

func TestChatExplicitIncompleteIsProtocolError(t *testing.T) {
	o := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"content":"partial"},"model":"x","done":false}`))
	})

	_, err := o.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil)
	var perr *llm.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "done=false")
}

func TestChatBackendErrorStatus(t *testing.T) {
	o := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"model not loaded"}`))
	})

	_, err := o.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil)
	var perr *llm.ProtocolError
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Reason, "model not loaded")
}

func TestGenerateRoundTrip(t *testing.T) {
	o := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)

		var req llm.GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what is 2+2?", req.Prompt)

		w.Write([]byte(`{"response":"4","model":"m","done":true}`))
	})

	res, err := o.Generate(context.Background(), "what is 2+2?", nil)
	require.NoError(t, err)
	assert.Equal(t, "4", res.Content)
	assert.Equal(t, "m", res.Model)
	assert.True(t, res.Done)
}

func TestStreamDeliversChunksThenTerminal(t *testing.T) {
	o := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		var req llm.ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.Stream)
		assert.True(t, *req.Stream)

		flusher := w.(http.Flusher)
		for _, line := range []string{
			`{"message":{"content":"he"},"done":false}`,
			`{"message":{"content":"llo"},"done":false}`,
			`{"done":true}`,
		} {
			w.Write([]byte(line + "\n"))
			flusher.Flush()
		}
	})

	s, err := o.Stream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)
	defer s.Close()

	first, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "he", first.Message.Content)

	second, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "llo", second.Message.Content)

	terminal, err := s.Recv()
	require.NoError(t, err)
	assert.True(t, terminal.Done)

	_, err = s.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestStreamSurvivesMalformedLine(t *testing.T) {
	o := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":{"content":"he"},"done":false}` + "\n" +
			`{not valid json` + "\n" +
			`{"message":{"content":"llo"},"done":false}` + "\n" +
			`{"done":true}` + "\n"))
	})

	s, err := o.Stream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)
	defer s.Close()

	var got []string
	for {
		chunk, err := s.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if !chunk.Done {
			got = append(got, chunk.Message.Content)
		}
	}
	assert.Equal(t, []string{"he", "llo"}, got)
}

func TestStreamCancelEndsIterationCleanly(t *testing.T) {
	o := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte(`{"message":{"content":"he"},"done":false}` + "\n"))
		flusher.Flush()
		// Hold the stream open until the client tears it down.
		<-r.Context().Done()
	})

	s, err := o.Stream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)

	first, err := s.Recv()
	require.NoError(t, err)
	assert.Equal(t, "he", first.Message.Content)

	o.Cancel()

	// Cancellation is a normal exit: iteration ends with EOF, not an error.
	for {
		_, err := s.Recv()
		if err != nil {
			assert.Equal(t, io.EOF, err)
			break
		}
	}
}

func TestStreamCloseStopsDelivery(t *testing.T) {
	o := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		w.Write([]byte(`{"message":{"content":"he"},"done":false}` + "\n"))
		flusher.Flush()
		<-r.Context().Done()
	})

	s, err := o.Stream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil)
	require.NoError(t, err)

	_, err = s.Recv()
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close()) // idempotent

	_, err = s.Recv()
	assert.Equal(t, io.EOF, err)
}

func TestCancelChatDistinctFromFailure(t *testing.T) {
	started := make(chan struct{})
	unblock := make(chan struct{})
	// The handler must not wait on the request context here: with the body
	// unread and no response started, the server never notices the client
	// going away, and shutdown would hang on the parked handler.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(started)
		<-unblock
	}))
	defer srv.Close()
	defer close(unblock)

	o := provider.NewOllama("ollama", srv.URL, "llama3", 30*time.Second, nil)

	errc := make(chan error, 1)
	go func() {
		_, err := o.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil)
		errc <- err
	}()

	<-started
	o.Cancel()

	err := <-errc
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	var terr *llm.TransportError
	assert.False(t, errors.As(err, &terr), "cancellation must not look like a transport failure")
}

func TestChatTimeoutIsDistinctFailureKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(5 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	o := provider.NewOllama("ollama", srv.URL, "llama3", 50*time.Millisecond, nil)
	_, err := o.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil)

	var terr *llm.TimeoutError
	require.ErrorAs(t, err, &terr)
	assert.False(t, errors.Is(err, context.Canceled))
}

func TestAvailableAbsorbsConnectionRefused(t *testing.T) {
	// Nothing listens here.
	o := provider.NewOllama("ollama", "http://127.0.0.1:1", "llama3", time.Second, nil)

	err := o.Available(context.Background())
	require.Error(t, err)

	assert.Nil(t, o.ListModels(context.Background()))
}

func TestListModels(t *testing.T) {
	o := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		w.Write([]byte(`{"models":[{"name":"llama3"},{"name":"mistral"}]}`))
	})

	models := o.ListModels(context.Background())
	require.Len(t, models, 2)
	assert.Equal(t, "llama3", models[0].Name)
	assert.Equal(t, "mistral", models[1].Name)
}

func TestPullAndDeleteModel(t *testing.T) {
	o := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/pull":
			require.Equal(t, http.MethodPost, r.Method)
			w.Write([]byte(`{"status":"success"}`))
		case "/api/delete":
			require.Equal(t, http.MethodDelete, r.Method)
			w.WriteHeader(http.StatusOK)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	assert.True(t, o.Pull(context.Background(), "llama3"))
	assert.True(t, o.DeleteModel(context.Background(), "llama3"))
}

func TestPullReportsFailure(t *testing.T) {
	o := newTestOllama(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	assert.False(t, o.Pull(context.Background(), "nope"))
	assert.False(t, o.DeleteModel(context.Background(), "nope"))
}

func TestOllamaCapabilities(t *testing.T) {
	o := provider.NewOllama("ollama", "http://localhost:11434", "", 0, nil)
	caps := o.Capabilities()
	assert.True(t, caps.Status)
	assert.True(t, caps.List)
	assert.True(t, caps.Chat)
	assert.True(t, caps.Generate)
	assert.True(t, caps.Stream)
}
