package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
)

// PersistTurn appends the single Turn of this request. It is not retried.
func PersistTurn(
	ctx context.Context,
	in *GraphState,
	memory contractx.Memory,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", contractx.ErrCancelled, err)
	}

	turn, err := memory.AppendTurn(ctx, contractx.Turn{
		ConversationID:   in.ConversationID,
		UserMessage:      in.Message,
		AssistantMessage: in.Answer,
		ProductIDs:       in.Products.IDs(),
		IsUserMessage:    false,
		CreatedAt:        in.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: append turn conversation=%s: %v", contractx.ErrPersistence, in.ConversationID, err)
	}
	in.Turn = turn

	zerolog.Ctx(ctx).Info().
		Str("conversation_id", in.ConversationID).
		Int64("turn_id", turn.ID).
		Int("iterations", in.Iterations).
		Int("products", in.Products.Len()).
		Msg("turn persisted")

	return in, nil
}
