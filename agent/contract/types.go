package contract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	ImageURL    string          `json:"image_url,omitempty"`
	URL         string          `json:"url,omitempty"`
	StoreName   string          `json:"store_name,omitempty"`
	Rating      *float64        `json:"rating,omitempty"`
	ReviewCount int             `json:"review_count,omitempty"`
	ScrapedAt   time.Time       `json:"scraped_at"`
	UserID      *string         `json:"user_id,omitempty"` // nil for catalog products
}

// FormattedPrice renders the price with its currency tag, e.g. "19.99 USD".
func (p Product) FormattedPrice() string {
	currency := strings.TrimSpace(p.Currency)
	if currency == "" {
		return p.Price.StringFixed(2)
	}
	return fmt.Sprintf("%s %s", p.Price.StringFixed(2), currency)
}

type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Turn is one persisted user/assistant exchange.
type Turn struct {
	ID               int64     `json:"id"`
	ConversationID   string    `json:"conversation_id"`
	UserMessage      string    `json:"user_message"`
	AssistantMessage string    `json:"assistant_message"`
	ProductIDs       []int64   `json:"product_ids,omitempty"`
	IsUserMessage    bool      `json:"is_user_message"`
	CreatedAt        time.Time `json:"created_at"`
}

type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
	// ArgsError is set when the model produced arguments that could not be decoded.
	ArgsError string `json:"args_error,omitempty"`
}

type FailureKind string

const (
	FailureToolNotFound  FailureKind = "tool_not_found"
	FailureToolTimeout   FailureKind = "tool_timeout"
	FailureToolExecution FailureKind = "tool_execution_failed"
	FailureValidation    FailureKind = "validation"
	FailureNotFound      FailureKind = "not_found"
	FailureCancelled     FailureKind = "cancelled"
)

type ToolFailure struct {
	Kind   FailureKind `json:"kind"`
	Reason string      `json:"reason"`
}

type ToolResult struct {
	CallID   string       `json:"call_id"`
	Tool     string       `json:"tool"`
	Data     any          `json:"data,omitempty"`
	Products []Product    `json:"-"`
	Failure  *ToolFailure `json:"failure,omitempty"`
}

func (r ToolResult) Failed() bool {
	return r.Failure != nil
}

// Completion is either final text or a non-empty set of tool calls.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
}

func (c Completion) WantsTools() bool {
	return len(c.ToolCalls) > 0
}

type callerKey struct{}

// WithCaller attaches the authenticated user id of the current request.
func WithCaller(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, callerKey{}, strings.TrimSpace(userID))
}

// CallerFrom returns the user id attached by WithCaller.
func CallerFrom(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(callerKey{}).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}
