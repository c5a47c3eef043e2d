package nodes

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"golang.org/x/sync/errgroup"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
	toolx "github.com/tanpawarit/Product-Shopping-Assistant/agent/tool"
)

// DispatchTools runs every call of a round concurrently and waits for all of them.
// Results come back in call order. Tool failures are carried in the results; only
// cancellation of ctx fails the round.
func DispatchTools(
	ctx context.Context,
	executor contractx.ToolExecutor,
	calls []contractx.ToolCall,
) ([]contractx.ToolResult, error) {
	results := make([]contractx.ToolResult, len(calls))

	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			results[i] = executor.Execute(ctx, call)
			return nil
		})
	}
	// The closures never fail; tool failures travel inside ToolResult.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrCancelled, err)
	}
	return results, nil
}

// applyRound records one round in the transcript and merges surfaced products in call order.
func applyRound(in *GraphState, completion contractx.Completion, results []contractx.ToolResult) {
	in.Transcript = append(in.Transcript, schema.AssistantMessage(completion.Text, toSchemaCalls(completion.ToolCalls)))

	for _, r := range results {
		in.Transcript = append(in.Transcript, schema.ToolMessage(toolMessage(r), r.CallID))
		if r.Failed() {
			continue
		}
		in.Products.Add(r.Products...)
		if r.Tool == toolx.NameCompareProducts {
			in.Comparison = true
		}
	}
}

func toSchemaCalls(calls []contractx.ToolCall) []schema.ToolCall {
	out := make([]schema.ToolCall, 0, len(calls))
	for _, c := range calls {
		args := "{}"
		if len(c.Args) > 0 {
			if raw, err := json.Marshal(c.Args); err == nil {
				args = string(raw)
			}
		}
		out = append(out, schema.ToolCall{
			ID:       c.ID,
			Type:     "function",
			Function: schema.FunctionCall{Name: c.Name, Arguments: args},
		})
	}
	return out
}

func toolMessage(r contractx.ToolResult) string {
	if r.Failed() {
		return fmt.Sprintf("tool %s failed: %s", r.Tool, r.Failure.Reason)
	}
	raw, err := json.Marshal(r.Data)
	if err != nil {
		return fmt.Sprintf("tool %s failed: encode result: %v", r.Tool, err)
	}
	return string(raw)
}
