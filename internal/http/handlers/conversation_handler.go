// Conversation HTTP handlers.
//
// This file exposes REST endpoints for conversation resources:
//   - POST /api/couples/conversations       (start a thread with a vendor)
//   - GET  /api/couples/conversations       (list, paginated, ETag support)
//
// It also holds the shared handler wiring: the service contracts consumed by
// the HTTP layer, the Handlers aggregate, and the couple-identity helper.
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/creaotrhubn26/wedflow-sub006/internal/domain"
	"github.com/creaotrhubn26/wedflow-sub006/internal/match"
	"github.com/creaotrhubn26/wedflow-sub006/internal/repo"
	"github.com/creaotrhubn26/wedflow-sub006/internal/search"
	"github.com/creaotrhubn26/wedflow-sub006/internal/services"
	"github.com/creaotrhubn26/wedflow-sub006/internal/sysutil"
	"github.com/creaotrhubn26/wedflow-sub006/internal/utils"
)

//
// Service contracts (context-aware)
//

// MatchService ranks vendors for a couple.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type MatchService interface {
	// Matches returns vendors in a category ranked by descending score.
	Matches(ctx context.Context, coupleID string, q services.MatchQuery) ([]match.Result, error)
}

// VendorService serves vendor lookups and free-text search.
type VendorService interface {
	// Get fetches a single vendor by ID.
	Get(ctx context.Context, id string) (*domain.Vendor, error)
	// Search returns up to k vendors ranked by similarity to the query.
	Search(ctx context.Context, query string, k int) ([]search.Result, error)
}

// ConversationService manages couple↔vendor threads.
type ConversationService interface {
	// Start returns the couple's thread with the vendor, creating it if needed.
	Start(ctx context.Context, coupleID, vendorID string) (*domain.Conversation, error)
	// ListPage returns a page of the couple's threads and the total count.
	ListPage(ctx context.Context, coupleID string, page, pageSize int) ([]domain.Conversation, int64, error)
}

// MessageService owns the message lifecycle within a conversation.
type MessageService interface {
	// Send persists a couple's message; the bool reports an idempotent replay.
	Send(ctx context.Context, coupleID string, in services.SendInput) (*domain.Message, bool, error)
	// ListPage returns a page of messages within a conversation.
	ListPage(ctx context.Context, coupleID, conversationID string, page, pageSize int) ([]domain.Message, int64, error)
	// Edit updates the body of a message the couple sent.
	Edit(ctx context.Context, coupleID, messageID, body string) (*domain.Message, error)
	// Delete soft-deletes a message the couple sent.
	Delete(ctx context.Context, coupleID, messageID string) error
	// Typing broadcasts a typing signal to the conversation.
	Typing(ctx context.Context, coupleID, conversationID string) error
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for vendor matching, search, conversations,
// and messages. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	matchSvc  MatchService
	vendorSvc VendorService
	convSvc   ConversationService
	msgSvc    MessageService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(matchSvc MatchService, vendorSvc VendorService, convSvc ConversationService, msgSvc MessageService) *Handlers {
	return &Handlers{matchSvc: matchSvc, vendorSvc: vendorSvc, convSvc: convSvc, msgSvc: msgSvc}
}

// coupleID extracts the authenticated couple id from Gin context (set by
// upstream middleware). If absent, it falls back to "X-Couple-ID" header
// (tests use it), and finally to "demo-couple". It never touches c.Request
// if it's nil.
func coupleID(c *gin.Context) string {
	var fromCtx string
	if v, ok := c.Get("coupleID"); ok {
		fromCtx, _ = v.(string)
	}
	var fromHeader string
	if c != nil && c.Request != nil {
		fromHeader = strings.TrimSpace(c.GetHeader("X-Couple-ID"))
	}
	return sysutil.FirstNonEmpty(fromCtx, fromHeader, "demo-couple")
}

//
// DTOs
//

// StartConversationRequest is the JSON payload for starting a conversation.
type StartConversationRequest struct {
	// VendorID identifies the vendor to open a thread with.
	VendorID string `json:"vendorId" binding:"required,min=1" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListConversationsResponse wraps a page of conversations and pagination
// information.
type ListConversationsResponse struct {
	Conversations []domain.Conversation `json:"conversations"`
	Pagination    Pagination            `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

//
// Handlers
//

// StartConversation godoc
// @ID          startConversation
// @Summary     Start a conversation with a vendor
// @Description Returns the couple's existing thread with the vendor or creates one.
// @Tags        Conversations
// @Accept      json
// @Produce     json
//
// @Param       X-Couple-ID  header  string  false "Couple ID (demo header)"  example(couple123)
// @Param       body         body    handlers.StartConversationRequest  true  "Start conversation payload"
//
// @Success     201  {object}  domain.Conversation
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Vendor not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /api/couples/conversations [post]
func (h *Handlers) StartConversation(c *gin.Context) {
	var req StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.VendorID) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "vendorId required")
		return
	}

	conv, err := h.convSvc.Start(c.Request.Context(), coupleID(c), strings.TrimSpace(req.VendorID))
	if err != nil {
		if errors.Is(err, services.ErrVendorNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "vendor not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, err.Error())
		return
	}
	ok(c, http.StatusCreated, conv)
}

// ListConversations godoc
// @ID          listConversations
// @Summary     List conversations (paginated)
// @Description Returns a page of the couple's conversations, most recently active first.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Conversations
// @Produce     json
//
// @Param       X-Couple-ID    header  string  false "Couple ID (demo header)"     example(couple123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       page           query   int     false "Page number"                  minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"               minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListConversationsResponse
// @Header      200  {string} ETag           "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/couples/conversations [get]
func (h *Handlers) ListConversations(c *gin.Context) {
	ctx := c.Request.Context()
	cid := coupleID(c)
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort).
	var db *gorm.DB
	if svc, ok := h.convSvc.(*services.ConversationService); ok {
		db = svc.DB
	}
	if db != nil {
		count, maxTS, err := repo.ConversationsStats(ctx, db, cid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"conversations:%s:%d:%d"`, cid, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	items, total, err := h.convSvc.ListPage(ctx, cid, page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListConversationsResponse{
		Conversations: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
