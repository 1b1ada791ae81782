package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/creaotrhubn26/wedflow-sub006/internal/repo"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1 << 10,
	WriteBufferSize: 4 << 10,
	// Mobile clients connect from app webviews and native runtimes with no
	// meaningful Origin; auth is the token query parameter.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait = 10 * time.Second
	pingEvery = 30 * time.Second
	// readLimit bounds inbound frames; the couple socket is push-only so
	// anything beyond a control frame is noise.
	readLimit = 4 << 10
)

// TokenVerifier resolves a session token to a couple ID. An empty return
// rejects the upgrade.
type TokenVerifier func(ctx context.Context, token string) (coupleID string, err error)

// Handler upgrades couple clients and pumps hub frames to them.
type Handler struct {
	Hub    *Hub
	DB     *gorm.DB
	Verify TokenVerifier
}

// CoupleSocket handles GET /ws/couples?token=<sessionToken>&conversationId=<id>.
//
// The socket is one-way: frames flow server → client only (typing signals
// travel over REST). Inbound data frames are read and discarded to service
// control frames and detect disconnects. The subscriber is removed when
// either pump stops.
func (h *Handler) CoupleSocket(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	conversationID := strings.TrimSpace(c.Query("conversationId"))
	if token == "" || conversationID == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	coupleID, err := h.Verify(c.Request.Context(), token)
	if err != nil || coupleID == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	// The conversation must exist and belong to the authenticated couple.
	if _, err := repo.GetConversation(c.Request.Context(), h.DB, conversationID, coupleID); err != nil {
		c.AbortWithStatus(http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		log.Debug().Err(err).Msg("ws: upgrade failed")
		return
	}

	sub := h.Hub.subscribe(conversationID)
	log.Info().
		Str("conversation_id", conversationID).
		Str("couple_id", coupleID).
		Msg("ws: client connected")

	go h.writePump(conn, sub)
	go h.readPump(conn, sub)
}

// writePump forwards queued frames and keeps the connection alive with
// pings. It owns all writes on the connection.
func (h *Handler) writePump(conn *websocket.Conn, sub *subscriber) {
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-sub.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames until the peer goes away, then tears the
// subscriber down, which in turn stops the write pump.
func (h *Handler) readPump(conn *websocket.Conn, sub *subscriber) {
	defer func() {
		h.Hub.unsubscribe(sub)
		conn.Close()
		log.Info().Str("conversation_id", sub.conversationID).Msg("ws: client disconnected")
	}()

	conn.SetReadLimit(readLimit)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
