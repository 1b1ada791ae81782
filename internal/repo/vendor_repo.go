// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for vendors and
// their products.
//
// Error semantics:
//   - When a vendor is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/creaotrhubn26/wedflow-sub006/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ListVendorsByCategory returns every vendor in the given category with its
// products preloaded, ordered by creation time ascending so the matching
// layer receives a stable server order. An unknown category yields an empty
// slice.
func ListVendorsByCategory(ctx context.Context, db *gorm.DB, categoryID string) ([]domain.Vendor, error) {
	var out []domain.Vendor
	err := db.WithContext(ctx).
		Preload("Products").
		Where("category_id = ?", categoryID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// ListVendors returns all vendors with products preloaded, ordered by
// creation time ascending. Used to build the search index at startup.
func ListVendors(ctx context.Context, db *gorm.DB) ([]domain.Vendor, error) {
	var out []domain.Vendor
	err := db.WithContext(ctx).
		Preload("Products").
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// GetVendor fetches a single vendor by ID with products preloaded, or
// ErrNotFound if missing.
func GetVendor(ctx context.Context, db *gorm.DB, id string) (*domain.Vendor, error) {
	var v domain.Vendor
	err := db.WithContext(ctx).
		Preload("Products").
		Where("id = ?", id).
		First(&v).Error
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// CreateVendor inserts a vendor together with its products. Used by seed
// tooling and tests; the public API treats vendors as read-only.
func CreateVendor(ctx context.Context, db *gorm.DB, v *domain.Vendor) error {
	return db.WithContext(ctx).Create(v).Error
}
