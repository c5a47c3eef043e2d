package nodes

import (
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
)

type GraphInput struct {
	ConversationID string
	UserID         string
	Message        string
}

type GraphOutput struct {
	Answer         string
	Products       []contractx.Product
	ConversationID string
}

// GraphState is the per-request agent context. It is never shared between requests.
type GraphState struct {
	ConversationID string
	UserID         string
	Message        string
	Now            time.Time

	Conversation contractx.Conversation
	History      []*schema.Message

	// Round messages produced while tools run: assistant tool-call messages and tool results.
	Transcript []*schema.Message
	Iterations int
	Products   *contractx.ProductSet
	Comparison bool
	LastText   string

	Answer string
	Turn   contractx.Turn
}

func ValidateRequest(in GraphInput, nowFn func() time.Time) (*GraphState, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message is empty", contractx.ErrValidation)
	}

	return &GraphState{
		ConversationID: strings.TrimSpace(in.ConversationID),
		UserID:         strings.TrimSpace(in.UserID),
		Message:        message,
		Now:            nowFn().UTC(),
		Products:       contractx.NewProductSet(),
	}, nil
}
