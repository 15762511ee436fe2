package provider_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/provider"
)

func TestOpenAIListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models", r.URL.Path)
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":[{"id":"gpt-4o"},{"id":"gpt-4o-mini"}]}`))
	}))
	defer srv.Close()

	p := provider.NewOpenAI("openai", srv.URL, "sk-test", nil)
	require.NoError(t, p.Available(context.Background()))

	models := p.ListModels(context.Background())
	require.Len(t, models, 2)
	assert.Equal(t, "gpt-4o", models[0].Name)
}

func TestAnthropicListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/models", r.URL.Path)
		require.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		require.NotEmpty(t, r.Header.Get("anthropic-version"))
		w.Write([]byte(`{"data":[{"id":"claude-sonnet-4"}]}`))
	}))
	defer srv.Close()

	p := provider.NewAnthropic("anthropic", srv.URL, "sk-ant", nil)
	require.NoError(t, p.Available(context.Background()))

	models := p.ListModels(context.Background())
	require.Len(t, models, 1)
	assert.Equal(t, "claude-sonnet-4", models[0].Name)
}

func TestGeminiListModelsStripsPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1beta/models", r.URL.Path)
		require.Equal(t, "g-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{"models":[{"name":"models/gemini-pro"}]}`))
	}))
	defer srv.Close()

	p := provider.NewGemini("gemini", srv.URL, "g-key", nil)
	models := p.ListModels(context.Background())
	require.Len(t, models, 1)
	assert.Equal(t, "gemini-pro", models[0].Name)
}

func TestCloudProvidersDeclareUnsupportedOps(t *testing.T) {
	providers := []provider.Provider{
		provider.NewOpenAI("openai", "", "k", nil),
		provider.NewAnthropic("anthropic", "", "k", nil),
		provider.NewGemini("gemini", "", "k", nil),
	}

	for _, p := range providers {
		caps := p.Capabilities()
		assert.True(t, caps.Status, p.Name())
		assert.True(t, caps.List, p.Name())
		assert.False(t, caps.Chat, p.Name())
		assert.False(t, caps.Stream, p.Name())

		var uerr *llm.UnsupportedError

		_, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil)
		require.ErrorAs(t, err, &uerr, p.Name())
		assert.Equal(t, p.Name(), uerr.Provider)

		_, err = p.Generate(context.Background(), "hi", nil)
		require.ErrorAs(t, err, &uerr, p.Name())

		_, err = p.Stream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil)
		require.ErrorAs(t, err, &uerr, p.Name())

		p.Cancel() // no token is ever bound; must be a no-op
	}
}

func TestCloudAvailableReportsUnreachable(t *testing.T) {
	p := provider.NewOpenAI("openai", "http://127.0.0.1:1", "k", nil)
	require.Error(t, p.Available(context.Background()))
	assert.Nil(t, p.ListModels(context.Background()))
}

func TestCloudAvailableReportsAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := provider.NewAnthropic("anthropic", srv.URL, "bad-key", nil)
	err := p.Available(context.Background())

	var perr *llm.ProtocolError
	require.ErrorAs(t, err, &perr)
}
