// Package services – MatchService
//
// This file implements MatchService, the application-level component that
// ranks vendors for a couple. It merges the couple's stored profile, the
// confirmed-guest headcount, and any explicit query overrides into a single
// preference set, converts vendor rows into scoring candidates, and delegates
// the actual scoring to the match package.
//
// Preference precedence for the guest count: explicit override > estimate
// derived from confirmed guests (confirmed plus 10% headroom, rounded up)
// > the couple's stored estimate.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// couple and category identifiers.

package services

import (
	"context"
	"errors"
	"math"

	"gorm.io/gorm"

	"github.com/creaotrhubn26/wedflow-sub006/internal/domain"
	"github.com/creaotrhubn26/wedflow-sub006/internal/match"
	"github.com/creaotrhubn26/wedflow-sub006/internal/repo"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// guestHeadroom pads the confirmed headcount so couples are not matched
// against venues they would outgrow with a handful of late acceptances.
const guestHeadroom = 1.1

// MatchQuery carries per-request preference overrides. Nil/empty fields fall
// back to the couple's stored profile.
type MatchQuery struct {
	Category   string
	GuestCount *int
	Location   *string
	Cuisines   []string
	Traditions []string
}

// MatchService ranks vendors in a category against a couple's preferences.
type MatchService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Weights is the scoring weight table; zero value means defaults.
	Weights match.Weights
}

// NewMatchService constructs a MatchService with the default weight table.
func NewMatchService(db *gorm.DB) *MatchService {
	return &MatchService{DB: db, Weights: match.DefaultWeights()}
}

// Matches returns vendors in the requested category ranked by descending
// score. The couple's stored profile is optional: an unknown coupleID simply
// means no stored preferences contribute.
func (s *MatchService) Matches(ctx context.Context, coupleID string, q MatchQuery) ([]match.Result, error) {
	tr := otel.Tracer("services/MatchService")
	ctx, span := tr.Start(ctx, "Matches",
		trace.WithAttributes(
			attribute.String("couple.id", coupleID),
			attribute.String("vendor.category", q.Category),
		),
	)
	defer span.End()

	category := match.Category(q.Category)
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}

	prefs, err := s.buildPreferences(ctx, coupleID, q)
	if err != nil {
		return nil, err
	}

	vendors, err := repo.ListVendorsByCategory(ctx, s.DB, q.Category)
	if err != nil {
		return nil, err
	}

	candidates := make([]match.Candidate, 0, len(vendors))
	for i := range vendors {
		candidates = append(candidates, toCandidate(&vendors[i]))
	}
	return match.Rank(category, prefs, candidates, s.Weights), nil
}

// buildPreferences merges query overrides with the couple's stored profile.
func (s *MatchService) buildPreferences(ctx context.Context, coupleID string, q MatchQuery) (match.Preferences, error) {
	prefs := match.Preferences{
		GuestCount: q.GuestCount,
		Location:   q.Location,
		Cuisines:   q.Cuisines,
		Traditions: q.Traditions,
	}

	couple, err := repo.GetCouple(ctx, s.DB, coupleID)
	if errors.Is(err, repo.ErrNotFound) {
		return prefs, nil
	}
	if err != nil {
		return match.Preferences{}, err
	}

	prefs.WeddingDate = couple.WeddingDate
	if prefs.Location == nil {
		prefs.Location = couple.Location
	}

	if prefs.GuestCount == nil {
		confirmed, _, err := repo.GuestCounts(ctx, s.DB, coupleID)
		if err != nil {
			return match.Preferences{}, err
		}
		switch {
		case confirmed > 0:
			n := int(math.Ceil(float64(confirmed) * guestHeadroom))
			prefs.GuestCount = &n
		case couple.GuestEstimate != nil:
			prefs.GuestCount = couple.GuestEstimate
		}
	}
	return prefs, nil
}

// toCandidate flattens a vendor row into a scoring candidate. Venue capacity
// is the envelope over the vendor's products: the smallest minimum and the
// largest maximum.
func toCandidate(v *domain.Vendor) match.Candidate {
	c := match.Candidate{
		ID:                v.ID,
		BusinessName:      v.BusinessName,
		Description:       v.Description,
		Location:          v.Location,
		CateringMinGuests: v.CateringMinGuests,
		CateringMaxGuests: v.CateringMaxGuests,
		CulturalExpertise: v.CulturalExpertise,
	}
	for i := range v.Products {
		p := &v.Products[i]
		if p.VenueMinGuests != nil {
			if c.VenueMinGuests == nil || *p.VenueMinGuests < *c.VenueMinGuests {
				c.VenueMinGuests = p.VenueMinGuests
			}
		}
		if p.VenueMaxGuests != nil {
			if c.VenueMaxGuests == nil || *p.VenueMaxGuests > *c.VenueMaxGuests {
				c.VenueMaxGuests = p.VenueMaxGuests
			}
		}
	}
	return c
}
