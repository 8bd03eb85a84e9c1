package handlers

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ibtikar/ibtikar-backend/internal/gateway"
	"github.com/ibtikar/ibtikar-backend/internal/messages"
	"github.com/ibtikar/ibtikar-backend/pkg/logger"
	"github.com/ibtikar/ibtikar-backend/pkg/metrics"
	"github.com/ibtikar/ibtikar-backend/pkg/middleware"
)

// MessagesHandler serves conversation history, sending, and the live feed.
type MessagesHandler struct {
	gw       gateway.Gateway
	messages *messages.Service
}

func NewMessagesHandler(gw gateway.Gateway, m *messages.Service) *MessagesHandler {
	return &MessagesHandler{gw: gw, messages: m}
}

func (h *MessagesHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/messages/:peerId", h.Conversation)
	rg.POST("/messages", h.Send)
	rg.GET("/messages/:peerId/live", h.Live)
}

func (h *MessagesHandler) Conversation(c *gin.Context) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	conv, err := h.messages.Conversation(c.Request.Context(), ident.ID, c.Param("peerId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "listing failed"})
		return
	}
	c.JSON(http.StatusOK, conv)
}

func (h *MessagesHandler) Send(c *gin.Context) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	var req struct {
		ReceiverID string `json:"receiverId" binding:"required"`
		Content    string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m, err := h.messages.Send(c.Request.Context(), ident, req.ReceiverID, req.Content)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, messages.ErrEmptyContent) || errors.Is(err, messages.ErrNoReceiver) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, m)
}

var feedUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Live streams the conversation over a websocket. The client gets the full
// ordered history on connect and a fresh batch after every delivered message.
// Sending {"peer":"<id>"} switches the conversation; the previous subscription
// is released before the new one opens.
func (h *MessagesHandler) Live(c *gin.Context) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	conn, err := feedUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf("feed upgrade failed for %s: %v", ident.ID, err)
		return
	}
	defer conn.Close()

	metrics.LiveFeeds.Inc()
	defer metrics.LiveFeeds.Dec()

	var writeMu sync.Mutex
	feed := messages.NewFeed(h.gw)
	defer feed.Close()

	open := func(peerID string) error {
		return feed.Open(c.Request.Context(), ident.ID, peerID, func(batch []*messages.Message) {
			writeMu.Lock()
			defer writeMu.Unlock()
			if err := conn.WriteJSON(gin.H{"peer": peerID, "messages": batch}); err != nil {
				logger.Debugf("feed write for %s failed: %v", ident.ID, err)
			}
		})
	}
	if err := open(c.Param("peerId")); err != nil {
		logger.Errorf("feed open failed for %s: %v", ident.ID, err)
		return
	}

	for {
		var req struct {
			Peer string `json:"peer"`
		}
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		if req.Peer == "" {
			continue
		}
		if err := open(req.Peer); err != nil {
			logger.Errorf("feed reopen failed for %s: %v", ident.ID, err)
			return
		}
	}
}
