package product

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
)

type chatCompleter interface {
	New(ctx context.Context, body openaisdk.ChatCompletionNewParams, opts ...option.RequestOption) (*openaisdk.ChatCompletion, error)
}

type AnalyzerConfig struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int64
}

// LLMAnalyzer asks a chat completion model for the comparison narrative.
// It satisfies tool.Analyzer.
type LLMAnalyzer struct {
	completions chatCompleter
	cfg         AnalyzerConfig
}

func NewLLMAnalyzer(client *openaisdk.Client, cfg AnalyzerConfig) (*LLMAnalyzer, error) {
	if client == nil {
		return nil, errors.New("analyzer: client is required")
	}
	return newLLMAnalyzer(&client.Chat.Completions, cfg)
}

func newLLMAnalyzer(completions chatCompleter, cfg AnalyzerConfig) (*LLMAnalyzer, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, errors.New("analyzer: model is required")
	}
	if strings.TrimSpace(cfg.Prompt) == "" {
		return nil, errors.New("analyzer: prompt is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 400
	}
	return &LLMAnalyzer{completions: completions, cfg: cfg}, nil
}

type analysisInput struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Price       string   `json:"price"`
	Currency    string   `json:"currency"`
	StoreName   string   `json:"store_name,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount int      `json:"review_count"`
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, products []contractx.Product) (string, error) {
	input := make([]analysisInput, 0, len(products))
	for _, p := range products {
		input = append(input, analysisInput{
			ID:          p.ID,
			Name:        p.Name,
			Price:       p.Price.StringFixed(2),
			Currency:    p.Currency,
			StoreName:   p.StoreName,
			Rating:      p.Rating,
			ReviewCount: p.ReviewCount,
		})
	}
	payload, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("encode analysis input: %w", err)
	}

	resp, err := a.completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(a.cfg.Model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.SystemMessage(a.cfg.Prompt),
			openaisdk.UserMessage(string(payload)),
		},
		Temperature: openaisdk.Float(a.cfg.Temperature),
		MaxTokens:   openaisdk.Int(a.cfg.MaxTokens),
	})
	if err != nil {
		return "", fmt.Errorf("%w: analysis completion: %v", contractx.ErrModelInvoke, err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: analysis completion returned no choices", contractx.ErrModelInvoke)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%w: analysis completion returned empty content", contractx.ErrModelInvoke)
	}
	return text, nil
}
