package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
	nodex "github.com/tanpawarit/Product-Shopping-Assistant/agent/nodes"
	promptx "github.com/tanpawarit/Product-Shopping-Assistant/agent/prompt"
)

type Request struct {
	ConversationID string
	UserID         string
	Message        string
}

type Response struct {
	Answer         string
	Products       []contractx.Product
	ConversationID string
}

// Agent turns one user message into an answer grounded by tool results.
// It holds no per-request state and is safe for concurrent use.
type Agent struct {
	memory   contractx.Memory
	gateway  contractx.Gateway
	executor contractx.ToolExecutor

	cfg  Config
	loop nodex.LoopConfig

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now func() time.Time
}

func New(
	memory contractx.Memory,
	gateway contractx.Gateway,
	executor contractx.ToolExecutor,
	cfg Config,
) (*Agent, error) {
	if memory == nil {
		return nil, errors.New("conversation memory is required")
	}
	if gateway == nil {
		return nil, errors.New("llm gateway is required")
	}
	if executor == nil {
		return nil, errors.New("tool executor is required")
	}

	cfg = cfg.withDefaults()
	prompts := promptx.LoadPromptSet()
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = prompts.System
	}
	if strings.TrimSpace(cfg.ComparisonPrompt) == "" {
		cfg.ComparisonPrompt = prompts.Comparison
	}

	a := &Agent{
		memory:   memory,
		gateway:  gateway,
		executor: executor,
		cfg:      cfg,
		loop: nodex.LoopConfig{
			SystemPrompt:     cfg.SystemPrompt,
			ComparisonPrompt: cfg.ComparisonPrompt,
			RequestTimeout:   cfg.RequestTimeout,
			MaxIterations:    cfg.MaxIterations,
			FallbackAnswer:   cfg.FallbackAnswer,
		},
		now: time.Now,
	}

	graphRunner, err := a.compileRespondGraph(context.Background())
	if err != nil {
		return nil, err
	}
	a.graphRunner = graphRunner

	return a, nil
}

// Respond handles one user message. Exactly one Turn is persisted when it succeeds;
// nothing is persisted when it fails.
func (a *Agent) Respond(ctx context.Context, req Request) (Response, error) {
	logger := zerolog.Ctx(ctx).With().
		Str("user_id", strings.TrimSpace(req.UserID)).
		Str("conversation_id", strings.TrimSpace(req.ConversationID)).
		Logger()
	ctx = logger.WithContext(ctx)
	ctx = contractx.WithCaller(ctx, req.UserID)

	started := time.Now()
	out, err := a.graphRunner.Invoke(ctx, nodex.GraphInput{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Message:        req.Message,
	})
	if err != nil {
		err = normalizeError(ctx, err)
		logger.Error().Err(err).Dur("elapsed", time.Since(started)).Msg("respond failed")
		return Response{}, err
	}

	logger.Info().
		Str("conversation_id", out.ConversationID).
		Int("products", len(out.Products)).
		Dur("elapsed", time.Since(started)).
		Msg("respond completed")

	return Response{
		Answer:         out.Answer,
		Products:       out.Products,
		ConversationID: out.ConversationID,
	}, nil
}

// Prefixes eino puts on errors raised inside a graph node.
var graphErrorPrefixes = []string{"[NodeRunError]", "[GraphRunError]"}

func normalizeError(ctx context.Context, err error) error {
	err = nodeError(err)
	if errors.Is(err, contractx.ErrCancelled) {
		return err
	}
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", contractx.ErrCancelled, err)
	}
	return err
}

// nodeError strips the graph framing and returns the error raised by the node itself.
func nodeError(err error) error {
	for err != nil && hasGraphPrefix(err.Error()) {
		inner := errors.Unwrap(err)
		if inner == nil {
			break
		}
		err = inner
	}
	return err
}

func hasGraphPrefix(msg string) bool {
	for _, prefix := range graphErrorPrefixes {
		if strings.HasPrefix(msg, prefix) {
			return true
		}
	}
	return false
}
