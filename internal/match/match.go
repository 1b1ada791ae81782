// Package match implements the vendor match scorer: a deterministic,
// side-effect-free ranking of candidate vendors against a couple's
// preferences. It is intentionally small and dependency-free:
//
//   - No logging and no I/O in the library (callers decide how/what to log)
//   - Pure and total: absent preference fields skip their rule, an empty
//     candidate list yields an empty result, and Rank never fails
//   - Deterministic scoring and sorting (stable order for ties, so the
//     server-provided order survives equal scores)
//   - All weight constants live in a Weights table rather than inline
//     literals; DefaultWeights() holds the tuned values
//
// Scoring is additive per candidate with no cross-candidate interaction:
// every triggered rule adjusts the score and appends one human-readable
// reason string (Norwegian, matching the product locale).
package match

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Category identifies a vendor category. Candidates are expected to be
// pre-filtered server-side to a single category before ranking.
type Category string

// The fixed vendor category set.
const (
	CategoryVenue        Category = "venue"
	CategoryPhotographer Category = "photographer"
	CategoryVideographer Category = "videographer"
	CategoryCatering     Category = "catering"
	CategoryFlorist      Category = "florist"
	CategoryMusic        Category = "music"
	CategoryCake         Category = "cake"
	CategoryBeauty       Category = "beauty"
	CategoryTransport    Category = "transport"
	CategoryPlanner      Category = "planner"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryVenue, CategoryPhotographer, CategoryVideographer,
		CategoryCatering, CategoryFlorist, CategoryMusic, CategoryCake,
		CategoryBeauty, CategoryTransport, CategoryPlanner:
		return true
	}
	return false
}

// Preferences carries the couple's side of the match. Nil fields mean
// "unknown" and disable the corresponding rules without penalty.
type Preferences struct {
	// GuestCount is the expected number of guests (non-negative).
	GuestCount *int
	// WeddingDate, when set, only contributes an informational reason.
	WeddingDate *time.Time
	// Location is the free-text wedding location.
	Location *string
	// Cuisines holds canonical cuisine keys (see CuisineAliases).
	Cuisines []string
	// Traditions holds canonical tradition keys the couple selected.
	Traditions []string
}

// Candidate is the immutable vendor snapshot being scored. Capacity bounds
// are nil unless the listing provides them.
type Candidate struct {
	ID                string
	BusinessName      string
	Description       *string
	Location          *string
	VenueMinGuests    *int
	VenueMaxGuests    *int
	CateringMinGuests *int
	CateringMaxGuests *int
	CulturalExpertise []string
}

// Result annotates a candidate with its computed score and the reasons that
// produced it. Reasons appear in rule-evaluation order.
type Result struct {
	Candidate Candidate
	Score     int
	Reasons   []string
}

// Weights is the scoring configuration table. The relative priority is
// capacity fit > tradition expertise > location > cuisine > secondary
// category bonuses; tests assert that ordering.
type Weights struct {
	Base            int
	CapacityFit     int // venue in-range and catering can-serve bonus
	BelowMinPenalty int // subtracted when guests fall under a venue minimum
	CuisinePerMatch int // per distinct matched cuisine
	TraditionMatch  int // per matched cultural tradition
	Location        int
	Cake            int
	Transport       int
	EventSize       int // photographer, videographer, music
	Beauty          int
	Florist         int
	PlannerLarge    int // > 100 guests
	PlannerMedium   int // > 50 guests
}

// DefaultWeights returns the tuned production weights.
func DefaultWeights() Weights {
	return Weights{
		Base:            50,
		CapacityFit:     30,
		BelowMinPenalty: 10,
		CuisinePerMatch: 20,
		TraditionMatch:  30,
		Location:        25,
		Cake:            15,
		Transport:       15,
		EventSize:       15,
		Beauty:          10,
		Florist:         10,
		PlannerLarge:    20,
		PlannerMedium:   15,
	}
}

// Rank scores every candidate independently and returns them sorted by
// score descending. Ties keep the input order. The zero-value Weights would
// score everything 0; use DefaultWeights unless tuning.
func Rank(category Category, prefs Preferences, candidates []Candidate, w Weights) []Result {
	out := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, score(category, prefs, c, w))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// score applies every rule whose inputs are present. Rule order is fixed so
// reason lists are deterministic.
func score(category Category, p Preferences, c Candidate, w Weights) Result {
	s := w.Base
	var reasons []string

	gc := 0
	hasGC := p.GuestCount != nil && *p.GuestCount >= 0
	if hasGC {
		gc = *p.GuestCount
	}

	// Venue capacity: rewarding a fit, penalizing "too small", and staying
	// neutral on "too big" (a large room is workable, a cramped one is not).
	if hasGC && category == CategoryVenue && c.VenueMinGuests != nil && c.VenueMaxGuests != nil {
		switch {
		case gc >= *c.VenueMinGuests && gc <= *c.VenueMaxGuests:
			s += w.CapacityFit
			reasons = append(reasons, fmt.Sprintf("Passer for %d gjester", gc))
		case gc < *c.VenueMinGuests:
			s -= w.BelowMinPenalty
			reasons = append(reasons, fmt.Sprintf("Minimum %d gjester", *c.VenueMinGuests))
		}
	}

	// Catering capacity: fit bonus only, no penalty branch.
	if hasGC && category == CategoryCatering && c.CateringMinGuests != nil && c.CateringMaxGuests != nil {
		if gc >= *c.CateringMinGuests && gc <= *c.CateringMaxGuests {
			s += w.CapacityFit
			reasons = append(reasons, fmt.Sprintf("Kan servere %d gjester", gc))
		}
	}

	// Cuisine keywords, catering only. Substring containment against the
	// alias table over description + business name.
	if category == CategoryCatering && len(p.Cuisines) > 0 && c.Description != nil {
		matched := MatchCuisines(p.Cuisines, *c.Description, c.BusinessName)
		if len(matched) > 0 {
			s += len(matched) * w.CuisinePerMatch
			labels := make([]string, 0, len(matched))
			for _, key := range matched {
				labels = append(labels, cuisineLabel(key))
			}
			reasons = append(reasons, fmt.Sprintf("Tilbyr %s mat", strings.Join(labels, ", ")))
		}
	}

	// Cultural tradition expertise, all categories.
	if len(p.Traditions) > 0 && len(c.CulturalExpertise) > 0 {
		var names []string
		for _, t := range p.Traditions {
			for _, e := range c.CulturalExpertise {
				if t == e {
					names = append(names, traditionName(t))
					break
				}
			}
		}
		if len(names) > 0 {
			s += len(names) * w.TraditionMatch
			reasons = append(reasons, fmt.Sprintf("Ekspertise i %s tradisjoner", strings.Join(names, ", ")))
		}
	}

	if hasGC {
		switch category {
		case CategoryCake:
			switch {
			case gc <= 50:
				reasons = append(reasons, fmt.Sprintf("Kake for ~%d personer", gc))
			case gc <= 100:
				reasons = append(reasons, fmt.Sprintf("Stor kake for ~%d personer", gc))
			default:
				reasons = append(reasons, fmt.Sprintf("Kake for %d+ gjester", gc))
			}
			s += w.Cake

		case CategoryTransport:
			if ceilDiv(gc, 50) > 1 {
				reasons = append(reasons, fmt.Sprintf("Transport for %d gjester", gc))
			}
			s += w.Transport

		case CategoryPhotographer, CategoryVideographer:
			if gc > 100 {
				reasons = append(reasons, "Erfaring med store arrangementer")
			} else if gc < 30 {
				reasons = append(reasons, "Intimt arrangement")
			}
			s += w.EventSize

		case CategoryBeauty:
			// Bridal party size is estimated from the guest list, capped at 8.
			party := ceilDiv(gc, 20)
			if party > 8 {
				party = 8
			}
			if party > 3 {
				reasons = append(reasons, fmt.Sprintf("Kan style %d+ personer", party))
			}
			s += w.Beauty

		case CategoryMusic:
			if gc > 80 {
				reasons = append(reasons, "Passer for stort selskap")
			} else if gc < 40 {
				reasons = append(reasons, "Intimt selskap")
			}
			s += w.EventSize

		case CategoryFlorist:
			reasons = append(reasons, fmt.Sprintf("~%d borddekorasjoner", ceilDiv(gc, 8)))
			s += w.Florist

		case CategoryPlanner:
			if gc > 100 {
				reasons = append(reasons, "Erfaring med store arrangementer")
				s += w.PlannerLarge
			} else if gc > 50 {
				reasons = append(reasons, "Mellomstort arrangement")
				s += w.PlannerMedium
			}
		}
	}

	// Location: case-insensitive substring match in either direction.
	if p.Location != nil && c.Location != nil {
		vl := strings.ToLower(*c.Location)
		pl := strings.ToLower(*p.Location)
		if vl != "" && pl != "" && (strings.Contains(vl, pl) || strings.Contains(pl, vl)) {
			s += w.Location
			reasons = append(reasons, fmt.Sprintf("I %s", *c.Location))
		}
	}

	// Wedding month: informational only, no score change.
	if p.WeddingDate != nil {
		reasons = append(reasons, fmt.Sprintf("Bryllup i %s", monthNameNO(p.WeddingDate.Month())))
	}

	return Result{Candidate: c, Score: s, Reasons: reasons}
}

// ceilDiv returns ceil(a/b) for positive b.
func ceilDiv(a, b int) int { return (a + b - 1) / b }

// cuisineLabel renders a canonical cuisine key for display: the first
// hyphen becomes a space and the first letter is upper-cased
// ("middle-eastern" → "Middle eastern").
func cuisineLabel(key string) string {
	label := strings.Replace(key, "-", " ", 1)
	r, size := utf8.DecodeRuneInString(label)
	if r == utf8.RuneError {
		return label
	}
	return string(unicode.ToUpper(r)) + label[size:]
}

// traditionNames maps canonical tradition keys to display names. Unknown
// keys fall through unchanged.
var traditionNames = map[string]string{
	"norway":  "Norsk",
	"sweden":  "Svensk",
	"denmark": "Dansk",
	"hindu":   "Hindu",
	"sikh":    "Sikh",
	"muslim":  "Muslim",
	"jewish":  "Jødisk",
	"chinese": "Kinesisk",
}

func traditionName(key string) string {
	if n, ok := traditionNames[key]; ok {
		return n
	}
	return key
}

// monthsNO are Norwegian month names indexed by time.Month-1.
var monthsNO = [...]string{
	"januar", "februar", "mars", "april", "mai", "juni",
	"juli", "august", "september", "oktober", "november", "desember",
}

func monthNameNO(m time.Month) string { return monthsNO[m-1] }
