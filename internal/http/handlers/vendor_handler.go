// Vendor HTTP handlers.
//
// This file exposes REST endpoints for vendor discovery:
//   - GET /api/vendors/matching  (rank a category against the couple's preferences)
//   - GET /api/vendors/search    (free-text search over vendor profiles)
//
// Handlers are transport-thin: they parse query parameters, delegate to the
// match and vendor services, and shape the results into response DTOs.
package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/creaotrhubn26/wedflow-sub006/internal/match"
	"github.com/creaotrhubn26/wedflow-sub006/internal/search"
	"github.com/creaotrhubn26/wedflow-sub006/internal/services"
	"github.com/creaotrhubn26/wedflow-sub006/internal/utils"
)

//
// DTOs
//

// VendorMatch is one ranked vendor in a matching response.
type VendorMatch struct {
	ID           string   `json:"id"`
	BusinessName string   `json:"businessName"`
	Description  *string  `json:"description,omitempty"`
	Location     *string  `json:"location,omitempty"`
	MatchScore   int      `json:"matchScore"`
	MatchReasons []string `json:"matchReasons"`
}

// MatchingResponse wraps the ranked vendors for a category.
type MatchingResponse struct {
	Category string        `json:"category"`
	Vendors  []VendorMatch `json:"vendors"`
}

// SearchResponse wraps free-text search results.
type SearchResponse struct {
	Query   string          `json:"query"`
	Results []search.Result `json:"results"`
}

// csvParam splits a comma-separated query parameter into trimmed, non-empty
// values. Returns nil when the parameter is absent.
func csvParam(c *gin.Context, name string) []string {
	raw := c.Query(name)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

//
// Handlers
//

// MatchingVendors godoc
// @ID          matchingVendors
// @Summary     Rank vendors for the couple
// @Description Scores all vendors in a category against the couple's preferences
// @Description and returns them ordered by descending match score. Query
// @Description parameters override the stored profile.
// @Tags        Vendors
// @Produce     json
//
// @Param       X-Couple-ID   header  string  false "Couple ID (demo header)"  example(couple123)
// @Param       category      query   string  true  "Vendor category"          Enums(venue,photographer,videographer,catering,music,florist,transport,cake,beauty,planner)
// @Param       guestCount    query   int     false "Expected number of guests" minimum(0)
// @Param       location      query   string  false "Wedding location"          example(Oslo)
// @Param       cuisineTypes  query   string  false "Comma-separated cuisine keys" example(indian,italian)
// @Param       traditions    query   string  false "Comma-separated tradition keys" example(india,norway)
//
// @Success     200  {object}  handlers.MatchingResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/vendors/matching [get]
func (h *Handlers) MatchingVendors(c *gin.Context) {
	category := strings.TrimSpace(c.Query("category"))
	if category == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "category required")
		return
	}

	q := services.MatchQuery{
		Category:   category,
		Cuisines:   csvParam(c, "cuisineTypes"),
		Traditions: csvParam(c, "traditions"),
	}
	if raw := strings.TrimSpace(c.Query("guestCount")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "guestCount must be a non-negative integer")
			return
		}
		q.GuestCount = &n
	}
	if loc := strings.TrimSpace(c.Query("location")); loc != "" {
		q.Location = &loc
	}

	results, err := h.matchSvc.Matches(c.Request.Context(), coupleID(c), q)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCategory) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown vendor category")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeMatchFailed, err.Error())
		return
	}

	ok(c, http.StatusOK, MatchingResponse{
		Category: category,
		Vendors:  toVendorMatches(results),
	})
}

// SearchVendors godoc
// @ID          searchVendors
// @Summary     Search vendors
// @Description Free-text search over vendor profiles, ranked by similarity.
// @Tags        Vendors
// @Produce     json
//
// @Param       q      query  string  true  "Search query"       example(blomster bergen)
// @Param       limit  query  int     false "Max results (1-10)" minimum(1) maximum(10) default(10)
//
// @Success     200  {object}  handlers.SearchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/vendors/search [get]
func (h *Handlers) SearchVendors(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	limit := utils.ClampInt(utils.AtoiDefault(c.Query("limit"), 10), 1, 10)

	results, err := h.vendorSvc.Search(c.Request.Context(), query, limit)
	if err != nil {
		if errors.Is(err, services.ErrEmptyQuery) {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "q required")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeSearchFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, SearchResponse{Query: query, Results: results})
}

// toVendorMatches flattens scored candidates into response DTOs, preserving
// the ranking order.
func toVendorMatches(results []match.Result) []VendorMatch {
	out := make([]VendorMatch, 0, len(results))
	for _, r := range results {
		reasons := r.Reasons
		if reasons == nil {
			reasons = []string{}
		}
		out = append(out, VendorMatch{
			ID:           r.Candidate.ID,
			BusinessName: r.Candidate.BusinessName,
			Description:  r.Candidate.Description,
			Location:     r.Candidate.Location,
			MatchScore:   r.Score,
			MatchReasons: reasons,
		})
	}
	return out
}
