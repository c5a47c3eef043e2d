package nodes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
)

// LoadConversation resolves or creates the conversation and loads the history window.
func LoadConversation(
	ctx context.Context,
	in *GraphState,
	memory contractx.Memory,
	historyWindow int,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	resumed := in.ConversationID != ""
	conv, err := memory.GetOrCreateConversation(ctx, in.ConversationID, in.UserID, in.Message)
	if err != nil {
		return nil, memoryError(ctx, err, "load conversation id=%s", in.ConversationID)
	}
	in.Conversation = conv
	in.ConversationID = conv.ID

	if resumed && historyWindow > 0 {
		turns, err := memory.GetRecentHistory(ctx, conv.ID, historyWindow)
		if err != nil {
			return nil, memoryError(ctx, err, "load history conversation=%s", conv.ID)
		}
		in.History = historyMessages(turns)
	}

	zerolog.Ctx(ctx).Debug().
		Str("conversation_id", conv.ID).
		Int("history_messages", len(in.History)).
		Msg("conversation loaded")

	return in, nil
}

// memoryError keeps validation errors as they are and classifies everything else
// as a persistence failure.
func memoryError(ctx context.Context, err error, format string, args ...any) error {
	if errors.Is(err, contractx.ErrValidation) {
		return err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %v", contractx.ErrCancelled, ctxErr)
	}
	return fmt.Errorf("%w: %s: %v", contractx.ErrPersistence, fmt.Sprintf(format, args...), err)
}

func historyMessages(turns []contractx.Turn) []*schema.Message {
	out := make([]*schema.Message, 0, len(turns)*2)
	for _, turn := range turns {
		if text := strings.TrimSpace(turn.UserMessage); text != "" {
			out = append(out, schema.UserMessage(text))
		}
		if text := strings.TrimSpace(turn.AssistantMessage); text != "" {
			out = append(out, schema.AssistantMessage(text, nil))
		}
	}
	return out
}
