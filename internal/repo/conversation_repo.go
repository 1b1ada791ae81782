// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// Conversation model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/creaotrhubn26/wedflow-sub006/internal/domain"
)

// CreateConversation inserts a new thread between coupleID and vendorID.
// The conversation ID is a randomly generated UUID, and CreatedAt is set to UTC.
func CreateConversation(ctx context.Context, db *gorm.DB, coupleID, vendorID string) (*domain.Conversation, error) {
	c := &domain.Conversation{
		ID:        uuid.NewString(),
		CoupleID:  coupleID,
		VendorID:  vendorID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// FindConversation returns the existing thread between coupleID and
// vendorID, or ErrNotFound.
func FindConversation(ctx context.Context, db *gorm.DB, coupleID, vendorID string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("couple_id = ? AND vendor_id = ?", coupleID, vendorID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetConversation fetches a conversation by ID enforcing couple ownership,
// or ErrNotFound if missing.
func GetConversation(ctx context.Context, db *gorm.DB, id, coupleID string) (*domain.Conversation, error) {
	var c domain.Conversation
	err := db.WithContext(ctx).
		Where("id = ? AND couple_id = ?", id, coupleID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CountConversations returns the total number of threads owned by coupleID.
func CountConversations(ctx context.Context, db *gorm.DB, coupleID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("couple_id = ?", coupleID).
		Count(&total).Error
	return total, err
}

// ListConversationsPage returns a paginated slice of conversations for
// coupleID, most recently updated first.
//
// The caller is responsible for computing offset and limit (e.g., (page-1)*pageSize).
func ListConversationsPage(ctx context.Context, db *gorm.DB, coupleID string, offset, limit int) ([]domain.Conversation, error) {
	var out []domain.Conversation
	err := db.WithContext(ctx).
		Where("couple_id = ?", coupleID).
		Order("updated_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// TouchConversation bumps UpdatedAt so recently active threads sort first.
func TouchConversation(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ?", id).
		Update("updated_at", time.Now().UTC()).Error
}
