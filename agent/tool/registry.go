package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
)

const DefaultTimeout = 30 * time.Second

// Tool is one capability the model can request by name.
type Tool interface {
	Info() *schema.ToolInfo
	Run(ctx context.Context, args map[string]any) (Output, error)
}

// Output is a successful tool payload plus the products it surfaced.
type Output struct {
	Data     any
	Products []contractx.Product
}

type RegistryConfig struct {
	Timeout time.Duration
}

// Registry resolves tool names to implementations. It is immutable once built.
type Registry struct {
	byName  map[string]Tool
	schemas []*schema.ToolInfo
	timeout time.Duration
}

var _ contractx.ToolExecutor = (*Registry)(nil)

func NewRegistry(cfg RegistryConfig, tools ...Tool) (*Registry, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	r := &Registry{
		byName:  make(map[string]Tool, len(tools)),
		schemas: make([]*schema.ToolInfo, 0, len(tools)),
		timeout: timeout,
	}
	for _, t := range tools {
		if t == nil || t.Info() == nil {
			return nil, fmt.Errorf("%w: nil tool", contractx.ErrValidation)
		}
		info := t.Info()
		name := strings.TrimSpace(info.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: tool name is empty", contractx.ErrValidation)
		}
		if _, exists := r.byName[name]; exists {
			return nil, fmt.Errorf("%w: %s", contractx.ErrDuplicateTool, name)
		}
		r.byName[name] = t
		r.schemas = append(r.schemas, info)
	}
	return r, nil
}

// ListSchemas returns tool schemas in registration order.
func (r *Registry) ListSchemas() []*schema.ToolInfo {
	out := make([]*schema.ToolInfo, len(r.schemas))
	copy(out, r.schemas)
	return out
}

type runOutcome struct {
	out Output
	err error
}

// Execute runs one call and always returns a result; failures are carried in ToolResult.Failure.
func (r *Registry) Execute(ctx context.Context, call contractx.ToolCall) contractx.ToolResult {
	result := contractx.ToolResult{CallID: call.ID, Tool: call.Name}
	logger := zerolog.Ctx(ctx).With().Str("tool", call.Name).Str("call_id", call.ID).Logger()

	t, ok := r.byName[call.Name]
	if !ok {
		result.Failure = &contractx.ToolFailure{
			Kind:   contractx.FailureToolNotFound,
			Reason: fmt.Sprintf("%v: %q", contractx.ErrToolNotFound, call.Name),
		}
		logger.Warn().Msg("unknown tool requested")
		return result
	}
	if call.ArgsError != "" {
		result.Failure = &contractx.ToolFailure{
			Kind:   contractx.FailureValidation,
			Reason: "invalid arguments: " + call.ArgsError,
		}
		return result
	}
	if err := ctx.Err(); err != nil {
		result.Failure = cancelledFailure(err)
		return result
	}

	runCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := call.Args
	if args == nil {
		args = map[string]any{}
	}

	started := time.Now()
	done := make(chan runOutcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- runOutcome{err: fmt.Errorf("%w: panic: %v", contractx.ErrToolExecution, p)}
			}
		}()
		out, err := t.Run(runCtx, args)
		done <- runOutcome{out: out, err: err}
	}()

	var outcome runOutcome
	select {
	case outcome = <-done:
	case <-runCtx.Done():
		outcome = runOutcome{err: runCtx.Err()}
	}

	if outcome.err != nil {
		result.Failure = r.classify(ctx, outcome.err)
		logger.Warn().
			Err(outcome.err).
			Str("kind", string(result.Failure.Kind)).
			Dur("elapsed", time.Since(started)).
			Msg("tool failed")
		return result
	}

	result.Data = outcome.out.Data
	result.Products = outcome.out.Products
	logger.Debug().
		Int("products", len(outcome.out.Products)).
		Dur("elapsed", time.Since(started)).
		Msg("tool succeeded")
	return result
}

func (r *Registry) classify(parent context.Context, err error) *contractx.ToolFailure {
	switch {
	case parent.Err() != nil:
		return cancelledFailure(parent.Err())
	case errors.Is(err, context.DeadlineExceeded):
		return &contractx.ToolFailure{
			Kind:   contractx.FailureToolTimeout,
			Reason: fmt.Sprintf("%v after %s", contractx.ErrToolTimeout, r.timeout),
		}
	case errors.Is(err, contractx.ErrValidation):
		return &contractx.ToolFailure{Kind: contractx.FailureValidation, Reason: err.Error()}
	case errors.Is(err, contractx.ErrNotFound):
		return &contractx.ToolFailure{Kind: contractx.FailureNotFound, Reason: err.Error()}
	default:
		return &contractx.ToolFailure{Kind: contractx.FailureToolExecution, Reason: err.Error()}
	}
}

func cancelledFailure(err error) *contractx.ToolFailure {
	return &contractx.ToolFailure{
		Kind:   contractx.FailureCancelled,
		Reason: fmt.Sprintf("%v: %v", contractx.ErrCancelled, err),
	}
}
