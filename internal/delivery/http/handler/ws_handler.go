package handler

import (
	"net/http"
	"time"

	"lxcloud/internal/broadcast"
	"lxcloud/internal/config"
	"lxcloud/internal/logger"
	"lxcloud/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// WSHandler streams live screen updates to dashboard clients over a
// websocket. Browsers cannot set an Authorization header on the upgrade
// request, so the token rides in the query string instead.
type WSHandler struct {
	hub      *broadcast.Hub
	cfg      *config.Config
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *broadcast.Hub, cfg *config.Config) *WSHandler {
	return &WSHandler{
		hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

func (h *WSHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws", h.Stream)
}

func (h *WSHandler) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Token query parameter required")
		return
	}
	if _, err := utils.ValidateToken(token, h.cfg.JWT.Secret); err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	sub := h.hub.Subscribe()

	go h.writeLoop(conn, sub)
	h.readLoop(conn, sub)
}

// writeLoop pushes broadcast events and keepalive pings until the
// subscription or connection closes.
func (h *WSHandler) writeLoop(conn *websocket.Conn, sub *broadcast.Subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(event); err != nil {
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

// readLoop drains client frames so pong handling works and unsubscribes
// when the client goes away.
func (h *WSHandler) readLoop(conn *websocket.Conn, sub *broadcast.Subscriber) {
	defer func() {
		h.hub.Unsubscribe(sub)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
