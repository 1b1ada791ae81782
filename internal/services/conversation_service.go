// Package services – ConversationService
//
// This file implements ConversationService, which manages the lifecycle of
// couple↔vendor conversation threads. Starting a conversation is idempotent:
// a couple has at most one thread per vendor, and repeated starts return the
// existing one. Ownership rules are enforced here so handlers can map
// sentinel errors to HTTP results consistently.

package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/creaotrhubn26/wedflow-sub006/internal/domain"
	"github.com/creaotrhubn26/wedflow-sub006/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ConversationService provides conversation-level operations such as
// starting, listing, and fetching threads.
type ConversationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// Start returns the couple's conversation with the vendor, creating it if
// none exists. The vendor must exist.
func (s *ConversationService) Start(ctx context.Context, coupleID, vendorID string) (*domain.Conversation, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "Start",
		trace.WithAttributes(
			attribute.String("couple.id", coupleID),
			attribute.String("vendor.id", vendorID),
		),
	)
	defer span.End()

	if _, err := repo.GetVendor(ctx, s.DB, vendorID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, err
	}

	conv, err := repo.FindConversation(ctx, s.DB, coupleID, vendorID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return nil, err
	}
	return repo.CreateConversation(ctx, s.DB, coupleID, vendorID)
}

// Get fetches a conversation by ID, ensuring it belongs to the couple.
func (s *ConversationService) Get(ctx context.Context, coupleID, id string) (*domain.Conversation, error) {
	conv, err := repo.GetConversation(ctx, s.DB, id, coupleID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrConversationNotFound
	}
	return conv, err
}

// ListPage returns a page of the couple's conversations, most recently
// active first. It applies defaults for invalid page/pageSize and returns
// the total count.
func (s *ConversationService) ListPage(ctx context.Context, coupleID string, page, pageSize int) ([]domain.Conversation, int64, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("couple.id", coupleID),
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

	total, err := repo.CountConversations(ctx, s.DB, coupleID)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Conversation{}, 0, nil
	}

	items, err := repo.ListConversationsPage(ctx, s.DB, coupleID, offset, pageSize)
	return items, total, err
}
