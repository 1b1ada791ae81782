// Package services – MessageService
//
// This file implements MessageService, the application-level component that
// owns the lifecycle of conversation messages. It validates inputs, checks
// conversation ownership, persists messages with idempotent retry support,
// and notifies connected realtime subscribers after a successful write.
//
// Idempotency: when a send carries a non-empty key, a replayed request
// returns the originally stored message instead of inserting a duplicate.
// The unique index on (couple, conversation, key) closes the race between
// concurrent first sends.
//
// Observability: all public methods are OpenTelemetry-instrumented; spans
// include conversation/couple identifiers and pagination parameters where
// applicable.

package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/creaotrhubn26/wedflow-sub006/internal/domain"
	"github.com/creaotrhubn26/wedflow-sub006/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Notifier pushes realtime events to conversation subscribers. The ws hub
// implements it; tests substitute a recorder.
type Notifier interface {
	BroadcastMessage(conversationID string, payload any)
	BroadcastTyping(conversationID, sender string)
}

// MessageService coordinates message persistence and realtime notification.
type MessageService struct {
	DB  *gorm.DB
	Hub Notifier

	// MaxBodyRunes caps message bodies by rune length; <=0 disables the cap.
	MaxBodyRunes int
	// IdempotencyTTL bounds replay detection; zero means 24h.
	IdempotencyTTL time.Duration
}

// SendInput carries the parameters of a send request.
type SendInput struct {
	ConversationID string
	Body           string
	AttachmentURL  *string
	AttachmentMIME *string
	// IdempotencyKey enables safe retries when non-empty.
	IdempotencyKey string
}

// Send validates and persists a couple's message, then broadcasts it. The
// returned bool reports whether this was a replay of an earlier send with
// the same idempotency key.
func (s *MessageService) Send(ctx context.Context, coupleID string, in SendInput) (*domain.Message, bool, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("conversation.id", in.ConversationID),
			attribute.String("couple.id", coupleID),
		),
	)
	defer span.End()

	body := strings.TrimSpace(in.Body)
	if body == "" && in.AttachmentURL == nil {
		return nil, false, ErrEmptyBody
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, false, ErrTooLong
	}

	if _, err := repo.GetConversation(ctx, s.DB, in.ConversationID, coupleID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, false, ErrConversationNotFound
		}
		return nil, false, err
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key != "" {
		if m, ok, err := s.replay(ctx, coupleID, in.ConversationID, key); err != nil {
			return nil, false, err
		} else if ok {
			return m, true, nil
		}
	}

	var msg *domain.Message
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m, err := repo.CreateMessage(ctx, tx, in.ConversationID, domain.SenderCouple, coupleID, body, in.AttachmentURL, in.AttachmentMIME)
		if err != nil {
			return err
		}
		if key != "" {
			if _, err := repo.CreateIdempotency(ctx, tx, coupleID, in.ConversationID, key, m.ID, http.StatusCreated, s.ttl()); err != nil {
				return err
			}
		}
		if err := repo.TouchConversation(ctx, tx, in.ConversationID); err != nil {
			return err
		}
		msg = m
		return nil
	})
	if errors.Is(err, repo.ErrDuplicate) {
		// Lost the race against a concurrent retry; serve its result.
		if m, ok, rerr := s.replay(ctx, coupleID, in.ConversationID, key); rerr == nil && ok {
			return m, true, nil
		}
		return nil, false, err
	}
	if err != nil {
		return nil, false, err
	}

	if s.Hub != nil {
		s.Hub.BroadcastMessage(in.ConversationID, msg)
	}
	return msg, false, nil
}

// replay looks up a previously stored send for the key.
func (s *MessageService) replay(ctx context.Context, coupleID, conversationID, key string) (*domain.Message, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, coupleID, conversationID, key, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	m, err := repo.GetMessage(ctx, s.DB, rec.MessageID)
	if errors.Is(err, repo.ErrNotFound) {
		// The original message has since been deleted; treat as a fresh send.
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return m, true, nil
}

func (s *MessageService) ttl() time.Duration {
	if s.IdempotencyTTL > 0 {
		return s.IdempotencyTTL
	}
	return 24 * time.Hour
}

// ListPage returns paginated messages for a conversation owned by the couple,
// oldest first.
func (s *MessageService) ListPage(ctx context.Context, coupleID, conversationID string, page, pageSize int) ([]domain.Message, int64, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	if _, err := repo.GetConversation(ctx, s.DB, conversationID, coupleID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, 0, ErrConversationNotFound
		}
		return nil, 0, err
	}

	total, err := repo.CountMessages(ctx, s.DB, conversationID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Message{}, 0, nil
	}

	items, err := repo.ListMessagesPage(ctx, s.DB, conversationID, offset, pageSize)
	return items, total, err
}

// Edit updates the body of a message the couple sent and broadcasts the
// edited message.
func (s *MessageService) Edit(ctx context.Context, coupleID, messageID, body string) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Edit",
		trace.WithAttributes(attribute.String("message.id", messageID)),
	)
	defer span.End()

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if s.MaxBodyRunes > 0 && utf8.RuneCountInString(body) > s.MaxBodyRunes {
		return nil, ErrTooLong
	}

	if err := s.ownMessage(ctx, coupleID, messageID); err != nil {
		return nil, err
	}

	msg, err := repo.UpdateMessageBody(ctx, s.DB, messageID, body)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.Hub != nil {
		s.Hub.BroadcastMessage(msg.ConversationID, msg)
	}
	return msg, nil
}

// Delete soft-deletes a message the couple sent.
func (s *MessageService) Delete(ctx context.Context, coupleID, messageID string) error {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("message.id", messageID)),
	)
	defer span.End()

	if err := s.ownMessage(ctx, coupleID, messageID); err != nil {
		return err
	}
	if err := repo.DeleteMessage(ctx, s.DB, messageID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	return nil
}

// Typing broadcasts a typing signal for a conversation owned by the couple.
// It is fire-and-forget: no state is persisted.
func (s *MessageService) Typing(ctx context.Context, coupleID, conversationID string) error {
	if _, err := repo.GetConversation(ctx, s.DB, conversationID, coupleID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrConversationNotFound
		}
		return err
	}
	if s.Hub != nil {
		s.Hub.BroadcastTyping(conversationID, domain.SenderCouple)
	}
	return nil
}

// ownMessage verifies the message exists, belongs to one of the couple's
// conversations, and was sent by the couple.
func (s *MessageService) ownMessage(ctx context.Context, coupleID, messageID string) error {
	msg, err := repo.GetMessage(ctx, s.DB, messageID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrMessageNotFound
	}
	if err != nil {
		return err
	}
	if _, err := repo.GetConversation(ctx, s.DB, msg.ConversationID, coupleID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrMessageNotFound
		}
		return err
	}
	if msg.SenderType != domain.SenderCouple || msg.SenderID != coupleID {
		return ErrForbiddenMessage
	}
	return nil
}
