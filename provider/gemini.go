package provider

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/papercomputeco/loom/pkg/llm"
)

// Gemini is the Google Gemini backend. Liveness and model listing are live;
// chat, generate, and stream are declared unsupported.
type Gemini struct {
	cloudBase
}

func NewGemini(name, endpoint, apiKey string, logger *zap.Logger) *Gemini {
	if name == "" {
		name = "gemini"
	}
	if endpoint == "" {
		endpoint = "https://generativelanguage.googleapis.com"
	}
	return &Gemini{cloudBase: newCloudBase(name, endpoint, apiKey, logger)}
}

type geminiModelList struct {
	Models []struct {
		Name        string `json:"name"` // e.g. "models/gemini-1.5-pro"
		DisplayName string `json:"displayName"`
	} `json:"models"`
}

func (p *Gemini) Available(ctx context.Context) error {
	var list geminiModelList
	return p.getJSON(ctx, "status", p.modelsPath(), nil, &list)
}

func (p *Gemini) ListModels(ctx context.Context) []llm.ModelInfo {
	var list geminiModelList
	if err := p.getJSON(ctx, "list", p.modelsPath(), nil, &list); err != nil {
		p.logger.Warn("listing models failed", zap.String("provider", p.name), zap.Error(err))
		return nil
	}
	models := make([]llm.ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		models = append(models, llm.ModelInfo{Name: strings.TrimPrefix(m.Name, "models/")})
	}
	return models
}

func (p *Gemini) Chat(ctx context.Context, messages []llm.Message, opts *llm.Options) (Result, error) {
	return Result{}, p.unsupported("chat")
}

func (p *Gemini) Generate(ctx context.Context, prompt string, opts *llm.Options) (Result, error) {
	return Result{}, p.unsupported("generate")
}

func (p *Gemini) Stream(ctx context.Context, messages []llm.Message, opts *llm.Options) (Stream, error) {
	return nil, p.unsupported("stream")
}

// modelsPath carries the key as a query parameter, per the Gemini API.
func (p *Gemini) modelsPath() string {
	return "/v1beta/models?key=" + url.QueryEscape(p.apiKey)
}
