package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"
)

type CompletionRequest struct {
	SystemPrompt string
	Messages     []*schema.Message
	Tools        []*schema.ToolInfo
}

// Gateway is a stateless call to the remote language model.
type Gateway interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) ToolResult
	ListSchemas() []*schema.ToolInfo
}

type Memory interface {
	GetOrCreateConversation(ctx context.Context, id string, userID string, title string) (Conversation, error)
	// GetRecentHistory returns at most limit turns, oldest first.
	GetRecentHistory(ctx context.Context, conversationID string, limit int) ([]Turn, error)
	AppendTurn(ctx context.Context, turn Turn) (Turn, error)
}

type ProductSource interface {
	Search(ctx context.Context, query string, limit int) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	ListByUser(ctx context.Context, userID string) ([]Product, error)
}
