package provider

import (
	"context"

	"go.uber.org/zap"

	"github.com/papercomputeco/loom/pkg/llm"
)

// Anthropic is the Anthropic backend. Liveness and model listing are live;
// chat, generate, and stream are declared unsupported.
type Anthropic struct {
	cloudBase
}

func NewAnthropic(name, endpoint, apiKey string, logger *zap.Logger) *Anthropic {
	if name == "" {
		name = "anthropic"
	}
	if endpoint == "" {
		endpoint = "https://api.anthropic.com"
	}
	return &Anthropic{cloudBase: newCloudBase(name, endpoint, apiKey, logger)}
}

type anthropicModelList struct {
	Data []struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	} `json:"data"`
}

func (p *Anthropic) Available(ctx context.Context) error {
	var list anthropicModelList
	return p.getJSON(ctx, "status", "/v1/models", p.authHeaders(), &list)
}

func (p *Anthropic) ListModels(ctx context.Context) []llm.ModelInfo {
	var list anthropicModelList
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

func (p *Anthropic) Chat(ctx context.Context, messages []llm.Message, opts *llm.Options) (Result, error) {
	return Result{}, p.unsupported("chat")
}

func (p *Anthropic) Generate(ctx context.Context, prompt string, opts *llm.Options) (Result, error) {
	return Result{}, p.unsupported("generate")
}

func (p *Anthropic) Stream(ctx context.Context, messages []llm.Message, opts *llm.Options) (Stream, error) {
	return nil, p.unsupported("stream")
}

func (p *Anthropic) authHeaders() map[string]string {
	return map[string]string{
		"x-api-key":         p.apiKey,
		"anthropic-version": "2023-06-01",
	}
}
