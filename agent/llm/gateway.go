package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
)

// Gateway adapts an eino tool-calling chat model to contract.Gateway. It keeps no
// conversation state; tools are bound per call.
type Gateway struct {
	model  einomodel.ToolCallingChatModel
	nextID atomic.Uint64
}

var _ contractx.Gateway = (*Gateway)(nil)

func NewGateway(model einomodel.ToolCallingChatModel) (*Gateway, error) {
	if model == nil {
		return nil, errors.New("llm: chat model is required")
	}
	return &Gateway{model: model}, nil
}

func (g *Gateway) Complete(ctx context.Context, req contractx.CompletionRequest) (contractx.Completion, error) {
	chat := g.model
	if len(req.Tools) > 0 {
		bound, err := g.model.WithTools(req.Tools)
		if err != nil {
			return contractx.Completion{}, fmt.Errorf("%w: bind %d tools: %v", contractx.ErrModelInvoke, len(req.Tools), err)
		}
		chat = bound
	}

	input := make([]*schema.Message, 0, len(req.Messages)+1)
	if sys := strings.TrimSpace(req.SystemPrompt); sys != "" {
		input = append(input, schema.SystemMessage(sys))
	}
	input = append(input, req.Messages...)

	msg, err := chat.Generate(ctx, input)
	if err != nil {
		return contractx.Completion{}, fmt.Errorf("%w: %v", contractx.ErrUpstreamUnavailable, err)
	}
	if msg == nil {
		return contractx.Completion{}, fmt.Errorf("%w: empty model response", contractx.ErrUpstreamUnavailable)
	}

	out := contractx.Completion{Text: strings.TrimSpace(msg.Content)}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, g.toContract(tc))
	}

	zerolog.Ctx(ctx).Debug().
		Int("messages", len(input)).
		Int("tools", len(req.Tools)).
		Int("tool_calls", len(out.ToolCalls)).
		Msg("model completion")

	return out, nil
}

func (g *Gateway) toContract(tc schema.ToolCall) contractx.ToolCall {
	id := strings.TrimSpace(tc.ID)
	if id == "" {
		id = "call_" + strconv.FormatUint(g.nextID.Add(1), 10)
	}

	call := contractx.ToolCall{
		ID:   id,
		Name: strings.TrimSpace(tc.Function.Name),
		Args: map[string]any{},
	}

	raw := strings.TrimSpace(tc.Function.Arguments)
	if raw == "" {
		return call
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var args map[string]any
	if err := dec.Decode(&args); err != nil {
		call.ArgsError = err.Error()
		return call
	}
	if args != nil {
		call.Args = args
	}
	return call
}
