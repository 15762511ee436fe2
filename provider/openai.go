package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/papercomputeco/loom/pkg/llm"
)

// OpenAI is the OpenAI backend. Liveness and model listing are live;
// chat, generate, and stream are declared unsupported.
type OpenAI struct {
	cloudBase
}

// NewOpenAI creates an OpenAI provider. An empty endpoint defaults to the
// public API host.
func NewOpenAI(name, endpoint, apiKey string, logger *zap.Logger) *OpenAI {
	if name == "" {
		name = "openai"
	}
	if endpoint == "" {
		endpoint = "https://api.openai.com"
	}
	return &OpenAI{cloudBase: newCloudBase(name, endpoint, apiKey, logger)}
}

type openAIModelList struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (p *OpenAI) Available(ctx context.Context) error {
	var list openAIModelList
	return p.getJSON(ctx, "status", "/v1/models", p.authHeaders(), &list)
}

func (p *OpenAI) ListModels(ctx context.Context) []llm.ModelInfo {
	var list openAIModelList
	if err := p.getJSON(ctx, "list", "/v1/models", p.authHeaders(), &list); err != nil {
		p.logger.Warn("listing models failed", zap.String("provider", p.name), zap.Error(err))
		return nil
	}
	models := make([]llm.ModelInfo, 0, len(list.Data))
	for _, m := range list.Data {
		models = append(models, llm.ModelInfo{Name: m.ID})
	}
	return models
}

func (p *OpenAI) Chat(ctx context.Context, messages []llm.Message, opts *llm.Options) (Result, error) {
	return Result{}, p.unsupported("chat")
}

func (p *OpenAI) Generate(ctx context.Context, prompt string, opts *llm.Options) (Result, error) {
	return Result{}, p.unsupported("generate")
}

func (p *OpenAI) Stream(ctx context.Context, messages []llm.Message, opts *llm.Options) (Stream, error) {
	return nil, p.unsupported("stream")
}

func (p *OpenAI) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.apiKey}
}
