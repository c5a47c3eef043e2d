package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
	promptx "github.com/tanpawarit/Product-Shopping-Assistant/agent/prompt"
)

const modelAttempts = 2

type LoopConfig struct {
	SystemPrompt     string
	ComparisonPrompt string
	RequestTimeout   time.Duration
	MaxIterations    int
	FallbackAnswer   string
}

// RunToolLoop queries the model and dispatches requested tools until the model answers
// in text or MaxIterations model calls have been made.
func RunToolLoop(
	ctx context.Context,
	in *GraphState,
	gateway contractx.Gateway,
	executor contractx.ToolExecutor,
	cfg LoopConfig,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Products == nil {
		in.Products = contractx.NewProductSet()
	}

	logger := zerolog.Ctx(ctx).With().Str("conversation_id", in.ConversationID).Logger()
	schemas := executor.ListSchemas()

	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", contractx.ErrCancelled, err)
		}

		completion, err := queryModel(ctx, gateway, buildRequest(in, schemas, cfg), cfg.RequestTimeout)
		in.Iterations++
		if err != nil {
			return nil, err
		}
		if completion.Text != "" {
			in.LastText = completion.Text
		}

		if !completion.WantsTools() {
			in.Answer = answerOrFallback(in.LastText, cfg.FallbackAnswer)
			return in, nil
		}

		if in.Iterations >= cfg.MaxIterations {
			logger.Warn().
				Int("iterations", in.Iterations).
				Int("pending_tool_calls", len(completion.ToolCalls)).
				Msg("iteration cap reached; answering without further tool calls")
			in.Answer = answerOrFallback(in.LastText, cfg.FallbackAnswer)
			return in, nil
		}

		roundLogger := logger.With().Int("round", in.Iterations).Logger()
		results, err := DispatchTools(roundLogger.WithContext(ctx), executor, completion.ToolCalls)
		if err != nil {
			return nil, err
		}
		applyRound(in, completion, results)
	}
}

func buildRequest(in *GraphState, schemas []*schema.ToolInfo, cfg LoopConfig) contractx.CompletionRequest {
	system := cfg.SystemPrompt
	if in.Comparison {
		system = promptx.Compose(cfg.SystemPrompt, cfg.ComparisonPrompt)
	}

	messages := make([]*schema.Message, 0, len(in.History)+1+len(in.Transcript))
	messages = append(messages, in.History...)
	messages = append(messages, schema.UserMessage(in.Message))
	messages = append(messages, in.Transcript...)

	return contractx.CompletionRequest{
		SystemPrompt: system,
		Messages:     messages,
		Tools:        schemas,
	}
}

// queryModel calls the gateway and retries exactly once on failure.
func queryModel(
	ctx context.Context,
	gateway contractx.Gateway,
	req contractx.CompletionRequest,
	timeout time.Duration,
) (contractx.Completion, error) {
	var lastErr error
	for attempt := 1; attempt <= modelAttempts; attempt++ {
		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		out, err := gateway.Complete(callCtx, req)
		cancel()
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil {
			return contractx.Completion{}, fmt.Errorf("%w: %v", contractx.ErrCancelled, ctx.Err())
		}

		lastErr = err
		zerolog.Ctx(ctx).Warn().Err(err).Int("attempt", attempt).Msg("model call failed")
	}

	if errors.Is(lastErr, contractx.ErrUpstreamUnavailable) {
		return contractx.Completion{}, lastErr
	}
	return contractx.Completion{}, fmt.Errorf("%w: %v", contractx.ErrUpstreamUnavailable, lastErr)
}

func answerOrFallback(text string, fallback string) string {
	if text = strings.TrimSpace(text); text != "" {
		return text
	}
	return strings.TrimSpace(fallback)
}
