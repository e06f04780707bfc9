package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"supportdesk/internal/entities"
)

const conversationColumns = "id, channel_id, client_id, chat_id, last_message, messages_count, status, created_at, updated_at"

type ConversationRepository struct {
	db *pgxpool.Pool
}

func NewConversationRepository(db *pgxpool.Pool) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// SaveInbound finds or creates the (channel, client) conversation, appends
// the inbound message and runs enqueue inside the same transaction, so the
// business write and its follow-up event commit together or not at all.
// The upsert keeps the conversation unique under concurrent first contact:
// the second writer updates instead of duplicating.
func (r *ConversationRepository) SaveInbound(
	ctx context.Context,
	tc entities.TenantContext,
	channelID int,
	clientID int64,
	inbound entities.UnifiedInboundMessage,
	enqueue func(tx pgx.Tx, conversation *entities.Conversation, message *entities.Message) error,
) (*entities.Conversation, *entities.Message, error) {
	convTable, err := qualifyTenantTable(tc, "conversations")
	if err != nil {
		return nil, nil, err
	}
	msgTable, err := qualifyTenantTable(tc, "messages")
	if err != nil {
		return nil, nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	var conv entities.Conversation
	var chatID, lastMessage *string
	err = tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s AS c (channel_id, client_id, chat_id, last_message, messages_count, status)
		VALUES ($1, $2, NULLIF($3,''), $4, 1, 'active')
		ON CONFLICT (channel_id, client_id) DO UPDATE SET
			chat_id = COALESCE(NULLIF(EXCLUDED.chat_id, ''), c.chat_id),
			last_message = EXCLUDED.last_message,
			messages_count = c.messages_count + 1,
			status = 'active',
			updated_at = NOW()
		RETURNING %s
	`, convTable, conversationColumns),
		channelID, clientID, inbound.ChatID, inbound.Text).
		Scan(&conv.ID, &conv.ChannelID, &conv.ClientID, &chatID, &lastMessage,
			&conv.MessagesCount, &conv.Status, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("upsert conversation: %w", err)
	}
	assignIfSet(&conv.ChatID, chatID)
	assignIfSet(&conv.LastMessage, lastMessage)

	msg := entities.Message{
		ConversationID: conv.ID,
		Direction:      entities.DirectionInbound,
		Content:        inbound.Text,
		RawJSON:        inbound.RawJSON,
	}
	err = tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (conversation_id, direction, content, raw_json)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, msgTable),
		msg.ConversationID, msg.Direction, msg.Content, msg.RawJSON).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("insert inbound message: %w", err)
	}

	if enqueue != nil {
		if err := enqueue(tx, &conv, &msg); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}
	return &conv, &msg, nil
}

// SaveInteraction persists one decision outcome: the outbound message (if
// any reply text), the conversation counters and the write-only audit row,
// all in one transaction.
func (r *ConversationRepository) SaveInteraction(
	ctx context.Context,
	tc entities.TenantContext,
	conversationID int64,
	decision entities.DecisionResult,
	intent entities.ReplyIntent,
) error {
	convTable, err := qualifyTenantTable(tc, "conversations")
	if err != nil {
		return err
	}
	msgTable, err := qualifyTenantTable(tc, "messages")
	if err != nil {
		return err
	}
	auditTable, err := qualifyTenantTable(tc, "decision_audits")
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	replyText := intent.ReplyText()
	if replyText != "" {
		if _, err := tx.Exec(ctx, fmt.Sprintf(`
			INSERT INTO %s (conversation_id, direction, content)
			VALUES ($1, 'outbound', $2)
		`, msgTable), conversationID, replyText); err != nil {
			return fmt.Errorf("insert outbound message: %w", err)
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(`
			UPDATE %s SET last_message = $2, messages_count = messages_count + 1,
				status = 'active', updated_at = NOW()
			WHERE id = $1
		`, convTable), conversationID, replyText); err != nil {
			return fmt.Errorf("update conversation: %w", err)
		}
	}

	var slotsJSON *string
	if len(decision.Slots) > 0 {
		data, err := json.Marshal(decision.Slots)
		if err != nil {
			return fmt.Errorf("marshal decision slots: %w", err)
		}
		s := string(data)
		slotsJSON = &s
	}
	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		INSERT INTO %s (conversation_id, step_kind, confidence, slots_json)
		VALUES ($1, $2, $3, $4)
	`, auditTable), conversationID, decision.StepKind, decision.Confidence, slotsJSON); err != nil {
		return fmt.Errorf("insert decision audit: %w", err)
	}

	return tx.Commit(ctx)
}

// Close marks the (channel, client) conversation closed; used for
// chat-closed channel signals. Missing conversation is a no-op.
func (r *ConversationRepository) Close(ctx context.Context, tc entities.TenantContext, channelID int, clientID int64) error {
	convTable, err := qualifyTenantTable(tc, "conversations")
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET status = 'closed', updated_at = NOW()
		WHERE channel_id = $1 AND client_id = $2
	`, convTable), channelID, clientID)
	return err
}

func (r *ConversationRepository) GetByID(ctx context.Context, tc entities.TenantContext, id int64) (*entities.Conversation, error) {
	convTable, err := qualifyTenantTable(tc, "conversations")
	if err != nil {
		return nil, err
	}

	var conv entities.Conversation
	var chatID, lastMessage *string
	err = r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", conversationColumns, convTable), id).
		Scan(&conv.ID, &conv.ChannelID, &conv.ClientID, &chatID, &lastMessage,
			&conv.MessagesCount, &conv.Status, &conv.CreatedAt, &conv.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %d: %w", id, err)
	}
	assignIfSet(&conv.ChatID, chatID)
	assignIfSet(&conv.LastMessage, lastMessage)
	return &conv, nil
}

func (r *ConversationRepository) List(ctx context.Context, tc entities.TenantContext, limit int) ([]entities.Conversation, error) {
	convTable, err := qualifyTenantTable(tc, "conversations")
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY updated_at DESC LIMIT $1", conversationColumns, convTable), limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	conversations := []entities.Conversation{}
	for rows.Next() {
		var conv entities.Conversation
		var chatID, lastMessage *string
		if err := rows.Scan(&conv.ID, &conv.ChannelID, &conv.ClientID, &chatID, &lastMessage,
			&conv.MessagesCount, &conv.Status, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, err
		}
		assignIfSet(&conv.ChatID, chatID)
		assignIfSet(&conv.LastMessage, lastMessage)
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}

func (r *ConversationRepository) GetMessage(ctx context.Context, tc entities.TenantContext, id int64) (*entities.Message, error) {
	msgTable, err := qualifyTenantTable(tc, "messages")
	if err != nil {
		return nil, err
	}

	var msg entities.Message
	err = r.db.QueryRow(ctx, fmt.Sprintf(`
		SELECT id, conversation_id, direction, content, raw_json, created_at
		FROM %s WHERE id = $1
	`, msgTable), id).
		Scan(&msg.ID, &msg.ConversationID, &msg.Direction, &msg.Content, &msg.RawJSON, &msg.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message %d: %w", id, err)
	}
	return &msg, nil
}

func (r *ConversationRepository) ListMessages(ctx context.Context, tc entities.TenantContext, conversationID int64, limit int) ([]entities.Message, error) {
	msgTable, err := qualifyTenantTable(tc, "messages")
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, fmt.Sprintf(`
		SELECT id, conversation_id, direction, content, raw_json, created_at
		FROM %s WHERE conversation_id = $1 ORDER BY id DESC LIMIT $2
	`, msgTable), conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []entities.Message{}
	for rows.Next() {
		var msg entities.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.Direction, &msg.Content, &msg.RawJSON, &msg.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// AppendOperatorMessage stores an operator reply and enqueues its delivery
// event in the same transaction.
func (r *ConversationRepository) AppendOperatorMessage(
	ctx context.Context,
	tc entities.TenantContext,
	conversationID int64,
	content string,
	enqueue func(tx pgx.Tx, message *entities.Message) error,
) (*entities.Message, error) {
	convTable, err := qualifyTenantTable(tc, "conversations")
	if err != nil {
		return nil, err
	}
	msgTable, err := qualifyTenantTable(tc, "messages")
	if err != nil {
		return nil, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	msg := entities.Message{
		ConversationID: conversationID,
		Direction:      entities.DirectionOutbound,
		Content:        content,
	}
	err = tx.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (conversation_id, direction, content)
		VALUES ($1, 'outbound', $2)
		RETURNING id, created_at
	`, msgTable), conversationID, content).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert operator message: %w", err)
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(`
		UPDATE %s SET last_message = $2, messages_count = messages_count + 1, updated_at = NOW()
		WHERE id = $1
	`, convTable), conversationID, content); err != nil {
		return nil, fmt.Errorf("update conversation: %w", err)
	}

	if enqueue != nil {
		if err := enqueue(tx, &msg); err != nil {
			return nil, err
		}
	}

	return &msg, tx.Commit(ctx)
}
