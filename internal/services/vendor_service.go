// Package services – VendorService
//
// This file implements VendorService, which serves vendor lookups and the
// free-text vendor search. Search runs against an immutable in-memory index
// built at startup from the vendor table; the service only validates inputs
// and maps repository errors to service-level sentinels.

package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/creaotrhubn26/wedflow-sub006/internal/domain"
	"github.com/creaotrhubn26/wedflow-sub006/internal/repo"
	"github.com/creaotrhubn26/wedflow-sub006/internal/search"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// VendorService provides vendor lookups and free-text search.
type VendorService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Index is the in-memory search index over vendor profiles.
	Index search.Index
	// MaxResults caps search result counts; <=0 means the default of 10.
	MaxResults int
}

// Get fetches a single vendor by ID.
func (s *VendorService) Get(ctx context.Context, id string) (*domain.Vendor, error) {
	v, err := repo.GetVendor(ctx, s.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrVendorNotFound
	}
	return v, err
}

// Search returns up to k vendors ranked by similarity to the query.
// A nil index yields no results rather than an error.
func (s *VendorService) Search(ctx context.Context, query string, k int) ([]search.Result, error) {
	tr := otel.Tracer("services/VendorService")
	_, span := tr.Start(ctx, "Search",
		trace.WithAttributes(attribute.String("query", query)),
	)
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if s.Index == nil {
		return []search.Result{}, nil
	}

	max := s.MaxResults
	if max <= 0 {
		max = 10
	}
	if k <= 0 || k > max {
		k = max
	}
	results := s.Index.TopK(query, k)
	if results == nil {
		results = []search.Result{}
	}
	return results, nil
}
