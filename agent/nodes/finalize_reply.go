package nodes

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
)

func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	return GraphOutput{
		Answer:         strings.TrimSpace(in.Answer),
		Products:       in.Products.Products(),
		ConversationID: in.ConversationID,
	}, nil
}
