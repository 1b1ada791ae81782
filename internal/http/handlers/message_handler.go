// Message HTTP handlers.
//
// This file exposes REST endpoints for conversation messages:
//   - POST   /api/couples/messages                      (send into a conversation)
//   - GET    /api/couples/conversations/{id}/messages   (list, paginated, ETag)
//   - PUT    /api/couples/messages/{id}                 (edit own message)
//   - DELETE /api/couples/messages/{id}                 (soft-delete own message)
//   - POST   /api/couples/conversations/{id}/typing     (fire-and-forget signal)
//
// Handlers are transport-thin:
//   - validate & normalize inputs (including newline and length constraints)
//   - delegate to application services (MessageService)
//   - implement conditional responses (ETag) and idempotency semantics
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// send exists for (couple, conversation, key), the handler returns the stored
// message and sets `Idempotency-Replayed: true`.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/creaotrhubn26/wedflow-sub006/internal/domain"
	"github.com/creaotrhubn26/wedflow-sub006/internal/http/middleware"
	"github.com/creaotrhubn26/wedflow-sub006/internal/repo"
	"github.com/creaotrhubn26/wedflow-sub006/internal/services"
)

//
// DTOs
//

// SendMessageRequest is the JSON payload for sending a message.
//
// Body is normalized by the handler (line endings and excessive blank lines)
// before being passed to the service layer. The service also enforces a
// maximum rune count, which can be configured in MessageService.
type SendMessageRequest struct {
	// ConversationID identifies the thread to post into.
	ConversationID string `json:"conversationId" binding:"required,min=1" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	// Body is the message text. Required unless an attachment is supplied.
	Body string `json:"body" example:"Hei! Er lokalet ledig 14. juni?"`
	// AttachmentURL optionally references an uploaded file.
	AttachmentURL *string `json:"attachmentUrl,omitempty"`
	// AttachmentMIME is the attachment content type.
	AttachmentMIME *string `json:"attachmentMime,omitempty"`
}

// EditMessageRequest is the JSON payload for editing a message body.
type EditMessageRequest struct {
	// Body is the replacement text (non-empty).
	Body string `json:"body" binding:"required,min=1" example:"Er lokalet ledig 21. juni?"`
}

// MessageResponse is the JSON envelope for a single message.
type MessageResponse struct {
	Message *domain.Message `json:"message"`
}

// ListMessagesResponse contains a page of messages and pagination metadata.
type ListMessagesResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

//
// Helpers
//

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeBody normalizes user text for consistent downstream behavior:
//   - converts CRLF/CR to LF,
//   - collapses runs of 3+ LFs to exactly two (paragraph separation),
//   - trims surrounding whitespace.
func sanitizeBody(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// discoverMaxBodyRunes inspects the concrete MessageService for a configured
// body-length limit. If unavailable, it returns a conservative fallback.
func discoverMaxBodyRunes(msgSvc MessageService) int {
	const fallback = 4000
	if ms, ok := msgSvc.(*services.MessageService); ok {
		if ms.MaxBodyRunes > 0 {
			return ms.MaxBodyRunes
		}
	}
	return fallback
}

//
// Handlers
//

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a message
// @Description Appends a couple message to the conversation and broadcasts it to
// @Description realtime subscribers. Supports idempotency via the Idempotency-Key
// @Description header (same key → same stored message).
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       X-Couple-ID      header  string  false "Couple ID (demo header)"  example(couple123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.SendMessageRequest  true  "Message payload"
//
// @Success     201  {object}  handlers.MessageResponse  "Stored message"
// @Success     200  {object}  handlers.MessageResponse  "Replayed message"
// @Failure     400  {object}  handlers.ErrorResponse    "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse    "Conversation not found"
// @Failure     500  {object}  handlers.ErrorResponse    "Internal error"
// @Router      /api/couples/messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversationId required")
		return
	}

	// Sanitize + early size cap to fail fast at the edge.
	body := sanitizeBody(req.Body)
	maxRunes := discoverMaxBodyRunes(h.msgSvc)
	if maxRunes > 0 && utf8.RuneCountInString(body) > maxRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("body too long: max %d runes", maxRunes))
		return
	}
	if body == "" && req.AttachmentURL == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body or attachment required")
		return
	}

	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey == "" {
		idemKey = strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
	}

	msg, replayed, err := h.msgSvc.Send(c.Request.Context(), coupleID(c), services.SendInput{
		ConversationID: strings.TrimSpace(req.ConversationID),
		Body:           body,
		AttachmentURL:  req.AttachmentURL,
		AttachmentMIME: req.AttachmentMIME,
		IdempotencyKey: idemKey,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrConversationNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		case errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("body too long: max %d runes", maxRunes))
		case errors.Is(err, services.ErrEmptyBody):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body or attachment required")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeSendFailed, err.Error())
		}
		return
	}

	if replayed {
		c.Header("Idempotency-Replayed", "true")
		ok(c, http.StatusOK, MessageResponse{Message: msg})
		return
	}
	ok(c, http.StatusCreated, MessageResponse{Message: msg})
}

// ListMessages godoc
// @ID          listMessages
// @Summary     List messages in a conversation
// @Description Returns a paginated list of messages, oldest first. Supports weak
// @Description ETag via If-None-Match and may return 304.
// @Tags        Messages
// @Produce     json
//
// @Param       X-Couple-ID  header  string  false "Couple ID (demo header)"  example(couple123)
// @Param       id           path    string  true  "Conversation ID (UUID)"   format(uuid)
// @Param       page         query   int     false "Page number"              minimum(1) default(1)
// @Param       page_size    query   int     false "Items per page"           minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListMessagesResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/couples/conversations/{id}/messages [get]
func (h *Handlers) ListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	conversationID := c.Param("id")

	if _, err := uuid.Parse(conversationID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	// ETag pre-check (best effort). Ownership is verified first so that a
	// foreign couple cannot probe a conversation's message count or
	// last-activity time through the ETag.
	var db *gorm.DB
	if svc, ok := h.msgSvc.(*services.MessageService); ok {
		db = svc.DB
	}
	if db != nil {
		if _, err := repo.GetConversation(ctx, db, conversationID, coupleID(c)); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
				return
			}
			// Lookup failure: skip the pre-check; ListPage repeats the
			// ownership check with full error handling.
		} else if count, maxTS, err := repo.MessagesStats(ctx, db, conversationID); err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			etag := fmt.Sprintf(`W/"messages:%s:%d:%d"`, conversationID, count, ts)
			c.Header("ETag", etag)
			if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
				c.Status(http.StatusNotModified)
				return
			}
		}
	}

	page, pageSize := clampPagination(c)

	items, total, err := h.msgSvc.ListPage(ctx, coupleID(c), conversationID, page, pageSize)
	if err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// EditMessage godoc
// @ID          editMessage
// @Summary     Edit a message
// @Description Replaces the body of a message the couple sent and marks it edited.
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       X-Couple-ID  header  string  false "Couple ID (demo header)"  example(couple123)
// @Param       id           path    string  true  "Message ID (UUID)"        format(uuid)
// @Param       body         body    handlers.EditMessageRequest  true  "Replacement body"
//
// @Success     200  {object} handlers.MessageResponse
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not the sender"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/couples/messages/{id} [put]
func (h *Handlers) EditMessage(c *gin.Context) {
	messageID := c.Param("id")
	if _, err := uuid.Parse(messageID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a UUID")
		return
	}

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Body) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body required")
		return
	}

	msg, err := h.msgSvc.Edit(c.Request.Context(), coupleID(c), messageID, sanitizeBody(req.Body))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMessageNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		case errors.Is(err, services.ErrForbiddenMessage):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "cannot modify this message")
		case errors.Is(err, services.ErrEmptyBody), errors.Is(err, services.ErrTooLong):
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, MessageResponse{Message: msg})
}

// DeleteMessage godoc
// @ID          deleteMessage
// @Summary     Delete a message
// @Description Soft-deletes a message the couple sent.
// @Tags        Messages
// @Produce     json
//
// @Param       X-Couple-ID  header  string  false "Couple ID (demo header)"  example(couple123)
// @Param       id           path    string  true  "Message ID (UUID)"        format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     403  {object} handlers.ErrorResponse "Not the sender"
// @Failure     404  {object} handlers.ErrorResponse "Message not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/couples/messages/{id} [delete]
func (h *Handlers) DeleteMessage(c *gin.Context) {
	messageID := c.Param("id")
	if _, err := uuid.Parse(messageID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message id must be a UUID")
		return
	}

	if err := h.msgSvc.Delete(c.Request.Context(), coupleID(c), messageID); err != nil {
		switch {
		case errors.Is(err, services.ErrMessageNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "message not found")
		case errors.Is(err, services.ErrForbiddenMessage):
			fail(c, http.StatusForbidden, ErrCodeForbidden, "cannot modify this message")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	noContent(c)
}

// Typing godoc
// @ID          typing
// @Summary     Signal typing
// @Description Fire-and-forget typing signal; broadcasts to realtime subscribers.
// @Tags        Messages
// @Produce     json
//
// @Param       X-Couple-ID  header  string  false "Couple ID (demo header)"  example(couple123)
// @Param       id           path    string  true  "Conversation ID (UUID)"   format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Conversation not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /api/couples/conversations/{id}/typing [post]
func (h *Handlers) Typing(c *gin.Context) {
	conversationID := c.Param("id")
	if _, err := uuid.Parse(conversationID); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "conversation id must be a UUID")
		return
	}

	if err := h.msgSvc.Typing(c.Request.Context(), coupleID(c), conversationID); err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	noContent(c)
}
