package search

import (
	"strings"

	"github.com/creaotrhubn26/wedflow-sub006/internal/domain"
)

// FlattenProfile turns a vendor record into a single searchable text blob.
// Field order is fixed so the resulting snippet is stable across rebuilds.
//
// Notes:
//   - Empty fields are skipped rather than emitted as blanks.
//   - Product names are appended after the vendor's own fields, in stored
//     order.
func FlattenProfile(v domain.Vendor) string {
	parts := make([]string, 0, 8+len(v.Products))

	add := func(s string) {
		s = strings.TrimSpace(s)
		if s != "" {
			parts = append(parts, s)
		}
	}
	addPtr := func(p *string) {
		if p != nil {
			add(*p)
		}
	}

	add(v.BusinessName)
	addPtr(v.CategoryID)
	addPtr(v.Description)
	addPtr(v.Location)
	addPtr(v.PriceRange)
	for _, e := range v.CulturalExpertise {
		add(e)
	}
	for _, p := range v.Products {
		add(p.Name)
	}

	return strings.Join(parts, ". ")
}
