// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for couples and
// their guest lists.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/creaotrhubn26/wedflow-sub006/internal/domain"
)

// GetCouple fetches a couple profile by ID, or ErrNotFound.
func GetCouple(ctx context.Context, db *gorm.DB, id string) (*domain.Couple, error) {
	var c domain.Couple
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCouple inserts a couple profile. Used by seed tooling and tests.
func CreateCouple(ctx context.Context, db *gorm.DB, c *domain.Couple) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	return db.WithContext(ctx).Create(c).Error
}

// GuestCounts returns the number of confirmed guests and the total guest
// list size for a couple. Declined guests count toward the total but are
// not confirmed.
func GuestCounts(ctx context.Context, db *gorm.DB, coupleID string) (confirmed, total int64, err error) {
	q := db.WithContext(ctx).Model(&domain.Guest{}).Where("couple_id = ?", coupleID)
	if err = q.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	if total == 0 {
		return 0, 0, nil
	}
	err = db.WithContext(ctx).
		Model(&domain.Guest{}).
		Where("couple_id = ? AND status = ?", coupleID, domain.GuestConfirmed).
		Count(&confirmed).Error
	return confirmed, total, err
}

// CreateGuest inserts a guest list entry for a couple.
func CreateGuest(ctx context.Context, db *gorm.DB, coupleID, name, status string) (*domain.Guest, error) {
	g := &domain.Guest{
		ID:        uuid.NewString(),
		CoupleID:  coupleID,
		Name:      name,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}
	return g, db.WithContext(ctx).Create(g).Error
}
