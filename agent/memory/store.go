package memory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
)

const maxTitleRunes = 80

type conversationModel struct {
	bun.BaseModel `bun:"table:conversations,alias:c"`

	ID        string    `bun:"id,pk"`
	UserID    string    `bun:"user_id,notnull"`
	Title     string    `bun:"title,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

type turnModel struct {
	bun.BaseModel `bun:"table:conversation_turns,alias:t"`

	ID               int64     `bun:"id,pk,autoincrement"`
	ConversationID   string    `bun:"conversation_id,notnull"`
	UserMessage      string    `bun:"user_message,notnull"`
	AssistantMessage string    `bun:"assistant_message,notnull"`
	ProductIDs       []int64   `bun:"product_ids"`
	IsUserMessage    bool      `bun:"is_user_message,notnull"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
}

// Store persists conversations and turns with bun.
type Store struct {
	db  *bun.DB
	now func() time.Time
}

var _ contractx.Memory = (*Store)(nil)

func NewStore(db *bun.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// InitSchema creates the conversation tables when missing.
func (s *Store) InitSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*conversationModel)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create conversations table: %w", err)
	}
	if _, err := s.db.NewCreateTable().
		Model((*turnModel)(nil)).
		IfNotExists().
		ForeignKey(`("conversation_id") REFERENCES "conversations" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create conversation_turns table: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*turnModel)(nil)).
		Index("conversation_turns_conversation_id_idx").
		IfNotExists().
		Column("conversation_id", "id").
		Exec(ctx); err != nil {
		return fmt.Errorf("create conversation_turns index: %w", err)
	}
	return nil
}

func (s *Store) GetOrCreateConversation(ctx context.Context, id string, userID string, title string) (contractx.Conversation, error) {
	id = strings.TrimSpace(id)
	userID = strings.TrimSpace(userID)

	if id != "" {
		var m conversationModel
		err := s.db.NewSelect().Model(&m).Where("c.id = ?", id).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return contractx.Conversation{}, fmt.Errorf("%w: id=%s", contractx.ErrConversationNotFound, id)
		}
		if err != nil {
			return contractx.Conversation{}, fmt.Errorf("load conversation id=%s: %w", id, err)
		}
		if m.UserID != userID {
			return contractx.Conversation{}, fmt.Errorf("%w: id=%s", contractx.ErrConversationNotFound, id)
		}
		return m.toContract(), nil
	}

	now := s.now().UTC()
	m := conversationModel{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     titleFrom(title),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.NewInsert().Model(&m).Exec(ctx); err != nil {
		return contractx.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}

	zerolog.Ctx(ctx).Info().
		Str("conversation_id", m.ID).
		Str("user_id", userID).
		Msg("created conversation")

	return m.toContract(), nil
}

func (s *Store) GetRecentHistory(ctx context.Context, conversationID string, limit int) ([]contractx.Turn, error) {
	if limit <= 0 {
		return nil, nil
	}

	var rows []turnModel
	err := s.db.NewSelect().
		Model(&rows).
		Where("t.conversation_id = ?", conversationID).
		OrderExpr("t.id DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history conversation=%s: %w", conversationID, err)
	}

	// Newest rows were selected; reverse so the prompt reads oldest first.
	turns := make([]contractx.Turn, len(rows))
	for i, row := range rows {
		turns[len(rows)-1-i] = row.toContract()
	}
	return turns, nil
}

func (s *Store) AppendTurn(ctx context.Context, turn contractx.Turn) (contractx.Turn, error) {
	if strings.TrimSpace(turn.ConversationID) == "" {
		return contractx.Turn{}, fmt.Errorf("%w: conversation id is required", contractx.ErrValidation)
	}

	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	m := turnModel{
		ConversationID:   turn.ConversationID,
		UserMessage:      turn.UserMessage,
		AssistantMessage: turn.AssistantMessage,
		ProductIDs:       append([]int64{}, turn.ProductIDs...),
		IsUserMessage:    turn.IsUserMessage,
		CreatedAt:        createdAt.UTC(),
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&m).Returning("id").Exec(ctx); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
		res, err := tx.NewUpdate().
			Model((*conversationModel)(nil)).
			Set("updated_at = ?", m.CreatedAt).
			Where("id = ?", m.ConversationID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: id=%s", contractx.ErrConversationNotFound, m.ConversationID)
		}
		return nil
	})
	if err != nil {
		return contractx.Turn{}, err
	}

	return m.toContract(), nil
}

// ListConversations returns the user's conversations, most recently updated first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]contractx.Conversation, error) {
	var rows []conversationModel
	err := s.db.NewSelect().
		Model(&rows).
		Where("c.user_id = ?", strings.TrimSpace(userID)).
		OrderExpr("c.updated_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list conversations user=%s: %w", userID, err)
	}

	out := make([]contractx.Conversation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toContract())
	}
	return out, nil
}

// DeleteConversation removes a conversation and its turns. Administrative only.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*turnModel)(nil)).Where("conversation_id = ?", id).Exec(ctx); err != nil {
			return fmt.Errorf("delete turns conversation=%s: %w", id, err)
		}
		res, err := tx.NewDelete().Model((*conversationModel)(nil)).Where("id = ?", id).Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete conversation=%s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("%w: id=%s", contractx.ErrConversationNotFound, id)
		}
		return nil
	})
}

func (m conversationModel) toContract() contractx.Conversation {
	return contractx.Conversation{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func (m turnModel) toContract() contractx.Turn {
	var ids []int64
	if len(m.ProductIDs) > 0 {
		ids = append(ids, m.ProductIDs...)
	}
	return contractx.Turn{
		ID:               m.ID,
		ConversationID:   m.ConversationID,
		UserMessage:      m.UserMessage,
		AssistantMessage: m.AssistantMessage,
		ProductIDs:       ids,
		IsUserMessage:    m.IsUserMessage,
		CreatedAt:        m.CreatedAt,
	}
}

func titleFrom(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return "New conversation"
	}
	runes := []rune(text)
	if len(runes) <= maxTitleRunes {
		return text
	}
	return strings.TrimSpace(string(runes[:maxTitleRunes-1])) + "…"
}
